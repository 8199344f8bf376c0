package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/deepdhani/kmrl/internal/api"
	"github.com/deepdhani/kmrl/internal/certificates"
	"github.com/deepdhani/kmrl/internal/config"
	"github.com/deepdhani/kmrl/internal/db"
	"github.com/deepdhani/kmrl/internal/ingestion"
	"github.com/deepdhani/kmrl/internal/jobcards"
	"github.com/deepdhani/kmrl/internal/middleware"
	"github.com/deepdhani/kmrl/internal/repository"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Server.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, cfg.Server.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Create repositories
	certRepo := repository.NewCertificateRepository(conn)
	jobRepo := repository.NewJobCardRepository(conn)

	// Create services
	certIngest := ingestion.NewCertificateService(certRepo, logger)
	jobIngest := ingestion.NewJobCardService(jobRepo, logger)
	certService := certificates.NewService(certRepo, certIngest, logger)
	jobService := jobcards.NewService(jobRepo, logger)

	seeds := api.SeedPaths{
		Certificates: cfg.Seed.CertificatesCSV,
		JobCards:     cfg.Seed.JobcardsCSV,
	}

	// Seed once on startup so the dashboard has data before any import call.
	seedOnStartup(ctx, logger, certIngest, jobIngest, seeds)

	handler := api.NewHandler(certService, jobService, certIngest, jobIngest, seeds)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(middleware.Logging(logger)(handler.Routes())),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting maintenance API server", zap.String("addr", cfg.Server.Addr))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func seedOnStartup(ctx context.Context, logger *zap.Logger, certIngest, jobIngest api.Ingestor, seeds api.SeedPaths) {
	seed := func(name, path string, ingest api.Ingestor) {
		if path == "" {
			return
		}
		result := ingest.UpsertFromFile(ctx, path)
		if result.Error != "" {
			logger.Warn("seed skipped",
				zap.String("dataset", name),
				zap.String("path", path),
				zap.String("error", result.Error),
			)
			return
		}
		logger.Info("seed complete",
			zap.String("dataset", name),
			zap.Int("imported", result.Imported),
			zap.Int("skipped", result.Skipped),
		)
	}
	seed("certificates", seeds.Certificates, certIngest)
	seed("jobcards", seeds.JobCards, jobIngest)
}
