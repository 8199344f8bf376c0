package config

import (
	"github.com/spf13/viper"

	"github.com/deepdhani/kmrl/internal/db"
)

// Config is the full server configuration.
type Config struct {
	Server   Server
	Database db.Config
	Seed     Seed
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr           string
	AllowedOrigins []string
	Development    bool
	MigrationsPath string
}

// Seed names the CSV files ingested at startup.
type Seed struct {
	CertificatesCSV string
	JobcardsCSV     string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			MigrationsPath: "./migrations",
		},
		Database: db.DefaultConfig(),
		Seed: Seed{
			CertificatesCSV: "./data/fitness_certificates_history.csv",
			JobcardsCSV:     "./data/jobcards.csv",
		},
	}
}

// Load reads config.yaml from the given path with environment overrides
// (KMRL_ prefix). A missing config file is not an error; defaults and env
// vars apply.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("KMRL")

	// Map nested keys to flat env vars like KMRL_DATABASE_HOST.
	v.BindEnv("server.addr", "KMRL_SERVER_ADDR")
	v.BindEnv("server.development", "KMRL_SERVER_DEVELOPMENT")
	v.BindEnv("database.host", "KMRL_DATABASE_HOST")
	v.BindEnv("database.port", "KMRL_DATABASE_PORT")
	v.BindEnv("database.user", "KMRL_DATABASE_USER")
	v.BindEnv("database.password", "KMRL_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "KMRL_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "KMRL_DATABASE_SSLMODE")

	if err := v.ReadInConfig(); err != nil {
		// No config.yaml; keep defaults plus env overrides.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.development") {
		cfg.Server.Development = v.GetBool("server.development")
	}
	if v.IsSet("server.migrations_path") {
		cfg.Server.MigrationsPath = v.GetString("server.migrations_path")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("seed.certificates_csv") {
		cfg.Seed.CertificatesCSV = v.GetString("seed.certificates_csv")
	}
	if v.IsSet("seed.jobcards_csv") {
		cfg.Seed.JobcardsCSV = v.GetString("seed.jobcards_csv")
	}

	return cfg, nil
}
