package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deepdhani/kmrl/internal/dates"
	"github.com/deepdhani/kmrl/internal/domain"
	"github.com/deepdhani/kmrl/internal/repository"
)

// Result is the outcome of ingesting one file. Failures that abort the whole
// batch are reported through Error; per-row defects only bump Skipped.
type Result struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// Column synonym sets for certificate sources, first match wins.
var (
	certTrainsetColumns = []string{"trainset_id", "train_id", "trainset", "rake_id", "code"}
	certDeptColumns     = []string{"dept", "department", "division"}
	certValidFromCols   = []string{"valid_from", "issue_date", "start"}
	certValidToCols     = []string{"valid_to", "valid_till", "expiry", "expires_on", "to", "valid_upto"}
	certStatusColumns   = []string{"status", "state", "certificate_status"}
)

// SourceCSVImport tags records created by bulk ingestion.
const SourceCSVImport = "csv-import"

// CertificateService ingests certificate history files into the store.
type CertificateService struct {
	repo   repository.CertificateRepository
	logger *zap.Logger
}

// NewCertificateService creates a new certificate ingestion service.
func NewCertificateService(repo repository.CertificateRepository, logger *zap.Logger) *CertificateService {
	return &CertificateService{repo: repo, logger: logger}
}

// UpsertFromFile reads a tabular source and merges it against persisted
// history. Re-ingesting the same file is idempotent: exact duplicates of the
// (trainset, dept, valid_to) tuple are skipped, never merged. The whole file
// commits in one transaction.
func (s *CertificateService) UpsertFromFile(ctx context.Context, path string) Result {
	tbl, err := readTable(path)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return Result{Error: fmt.Sprintf("file not found: %s", path)}
		}
		return Result{Error: err.Error()}
	}
	if len(tbl.rows) == 0 {
		return Result{Error: "csv empty"}
	}

	trainIdx := tbl.resolve(certTrainsetColumns...)
	deptIdx := tbl.resolve(certDeptColumns...)
	fromIdx := tbl.resolve(certValidFromCols...)
	toIdx := tbl.resolve(certValidToCols...)
	statusIdx := tbl.resolve(certStatusColumns...)
	if trainIdx < 0 || deptIdx < 0 || toIdx < 0 {
		return Result{Error: "required columns missing"}
	}

	validTos := dates.ParseColumn(tbl.column(toIdx), dates.DateLayouts)
	var validFroms []time.Time
	if fromIdx >= 0 {
		validFroms = dates.ParseColumn(tbl.column(fromIdx), dates.DateLayouts)
	}

	skipped := 0
	certs := make([]domain.Certificate, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		validTo := validTos[i]
		if validTo.IsZero() {
			skipped++
			continue
		}

		cert := domain.Certificate{
			TrainsetID: tbl.cell(row, trainIdx),
			Dept:       domain.NormalizeDept(tbl.cell(row, deptIdx)),
			ValidTo:    validTo,
			Source:     SourceCSVImport,
		}
		if statusIdx >= 0 {
			if raw := tbl.cell(row, statusIdx); !dates.IsEmptyMarker(raw) {
				status := domain.NormalizeStatus(raw)
				cert.Status = &status
			}
		}
		if fromIdx >= 0 && !validFroms[i].IsZero() {
			validFrom := validFroms[i]
			cert.ValidFrom = &validFrom
		}
		certs = append(certs, cert)
	}

	batch, err := s.repo.CreateBatch(ctx, certs)
	if err != nil {
		s.logger.Error("certificate ingestion failed", zap.String("path", path), zap.Error(err))
		return Result{Error: err.Error()}
	}

	s.logger.Info("certificates ingested",
		zap.String("path", path),
		zap.Int("imported", batch.Inserted),
		zap.Int("skipped", skipped+batch.Skipped),
	)
	return Result{Imported: batch.Inserted, Skipped: skipped + batch.Skipped}
}
