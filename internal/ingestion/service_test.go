package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deepdhani/kmrl/internal/dates"
	"github.com/deepdhani/kmrl/internal/domain"
	"github.com/deepdhani/kmrl/internal/repository"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestCertificateIngestBasic(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	path := writeFile(t, "certs.csv", `trainset_id,dept,valid_from,valid_to,status
T1,Rolling Stock,2025-01-01,2025-12-31,Valid
T2,Signalling,2025-01-01,2025-06-30,
`)

	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Imported != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected 2 records, got %d", len(repo.created))
	}
	first := repo.created[0]
	if first.Dept != domain.DeptRollingStock {
		t.Fatalf("dept should normalize to RS, got %q", first.Dept)
	}
	if first.Status == nil || *first.Status != "valid" {
		t.Fatalf("status should normalize to valid, got %v", first.Status)
	}
	if first.Source != SourceCSVImport {
		t.Fatalf("source should be tagged, got %q", first.Source)
	}
	if repo.created[1].Status != nil {
		t.Fatalf("empty status cell should stay absent")
	}
}

func TestCertificateIngestSynonymHeaders(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	path := writeFile(t, "certs.csv", `Rake ID,Department,Expiry
T5,Telecom,15/03/2026
`)

	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Imported != 1 {
		t.Fatalf("expected 1 imported, got %+v", result)
	}
	cert := repo.created[0]
	if cert.TrainsetID != "T5" || cert.Dept != domain.DeptTelecom {
		t.Fatalf("unexpected record: %+v", cert)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, dates.Location())
	if !cert.ValidTo.Equal(want) {
		t.Fatalf("valid_to = %v, want %v", cert.ValidTo, want)
	}
}

func TestCertificateIngestSkipsBadExpiry(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	path := writeFile(t, "certs.csv", `trainset_id,dept,valid_to
T1,RS,2025-12-31
T2,SIG,not-a-date
T3,TEL,
`)

	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Imported != 1 || result.Skipped != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCertificateIngestMissingColumns(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	path := writeFile(t, "certs.csv", `trainset_id,dept
T1,RS
`)

	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "required columns missing" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if len(repo.created) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestCertificateIngestFileNotFound(t *testing.T) {
	service := NewCertificateService(&stubCertRepo{}, zap.NewNop())
	result := service.UpsertFromFile(context.Background(), "/nope/missing.csv")
	if result.Error != "file not found: /nope/missing.csv" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
}

func TestCertificateIngestEmptyFile(t *testing.T) {
	service := NewCertificateService(&stubCertRepo{}, zap.NewNop())
	path := writeFile(t, "certs.csv", "trainset_id,dept,valid_to\n")
	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "csv empty" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
}

func TestCertificateIngestIdempotent(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	path := writeFile(t, "certs.csv", `trainset_id,dept,valid_to
T1,RS,2025-12-31
T1,RS,2025-12-31
`)

	first := service.UpsertFromFile(context.Background(), path)
	if first.Imported != 1 || first.Skipped != 1 {
		t.Fatalf("first pass: %+v", first)
	}
	second := service.UpsertFromFile(context.Background(), path)
	if second.Imported != 0 || second.Skipped != 2 {
		t.Fatalf("second pass: %+v", second)
	}
	if len(repo.created) != 1 {
		t.Fatalf("store should hold exactly one record, got %d", len(repo.created))
	}
}

func TestCertificateIngestBOM(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	path := writeFile(t, "certs.csv", "\xef\xbb\xbftrainset_id,dept,valid_to\nT1,RS,2025-12-31\n")
	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "" || result.Imported != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCertificateIngestWindows1252(t *testing.T) {
	repo := &stubCertRepo{}
	service := NewCertificateService(repo, zap.NewNop())

	// 0xE9 is é in cp1252 and invalid on its own as UTF-8.
	path := writeFile(t, "certs.csv", "trainset_id,dept,valid_to\nT\xe9,RS,2025-12-31\n")
	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "" || result.Imported != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if repo.created[0].TrainsetID != "Té" {
		t.Fatalf("expected decoded trainset id, got %q", repo.created[0].TrainsetID)
	}
}

func TestJobCardIngestBasic(t *testing.T) {
	repo := &stubJobRepo{}
	service := NewJobCardService(repo, zap.NewNop())

	path := writeFile(t, "jobs.csv", `trainset_id,status,severity,title,opened_at
T1,Open,A1,Brake check,2025-03-01 09:30
T2,closed,B,,
`)

	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Imported != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	first := repo.created[0]
	if first.Status != "open" {
		t.Fatalf("status should lowercase, got %q", first.Status)
	}
	if first.Severity == nil || *first.Severity != "A" {
		t.Fatalf("severity should collapse to first letter, got %v", first.Severity)
	}
	if first.OpenedAt == nil {
		t.Fatalf("opened_at should parse")
	}
	want := time.Date(2025, 3, 1, 9, 30, 0, 0, dates.Location())
	if !first.OpenedAt.Equal(want) {
		t.Fatalf("opened_at = %v, want %v", first.OpenedAt, want)
	}

	second := repo.created[1]
	if second.Title != nil || second.OpenedAt != nil {
		t.Fatalf("empty cells should stay absent: %+v", second)
	}
}

func TestJobCardIngestMissingColumns(t *testing.T) {
	service := NewJobCardService(&stubJobRepo{}, zap.NewNop())
	path := writeFile(t, "jobs.csv", "title,severity\nBrake check,A\n")
	result := service.UpsertFromFile(context.Background(), path)
	if result.Error != "required columns missing (trainset_id/status)" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
}

// stubCertRepo mimics the duplicate-skipping batch insert in memory.
type stubCertRepo struct {
	created []domain.Certificate
}

func (s *stubCertRepo) Create(_ context.Context, cert domain.Certificate) (domain.Certificate, error) {
	cert.ID = uuid.New()
	s.created = append(s.created, cert)
	return cert, nil
}

func (s *stubCertRepo) GetByID(context.Context, uuid.UUID) (domain.Certificate, error) {
	return domain.Certificate{}, domain.ErrNotFound
}

func (s *stubCertRepo) List(context.Context, int, int) ([]domain.Certificate, error) {
	return s.created, nil
}

func (s *stubCertRepo) Update(_ context.Context, cert domain.Certificate) (domain.Certificate, error) {
	return cert, nil
}

func (s *stubCertRepo) Delete(context.Context, uuid.UUID) error {
	return nil
}

func (s *stubCertRepo) CreateBatch(_ context.Context, certs []domain.Certificate) (repository.BatchResult, error) {
	var result repository.BatchResult
	for _, cert := range certs {
		if s.exists(cert) {
			result.Skipped++
			continue
		}
		cert.ID = uuid.New()
		s.created = append(s.created, cert)
		result.Inserted++
	}
	return result, nil
}

func (s *stubCertRepo) exists(cert domain.Certificate) bool {
	for _, existing := range s.created {
		if existing.TrainsetID == cert.TrainsetID &&
			existing.Dept == cert.Dept &&
			existing.ValidTo.Equal(cert.ValidTo) {
			return true
		}
	}
	return false
}

func (s *stubCertRepo) LatestPerPair(context.Context) ([]domain.Certificate, error) {
	return nil, nil
}

type stubJobRepo struct {
	created []domain.JobCard
}

func (s *stubJobRepo) Create(_ context.Context, card domain.JobCard) (domain.JobCard, error) {
	card.ID = uuid.New()
	s.created = append(s.created, card)
	return card, nil
}

func (s *stubJobRepo) GetByID(context.Context, uuid.UUID) (domain.JobCard, error) {
	return domain.JobCard{}, domain.ErrNotFound
}

func (s *stubJobRepo) List(context.Context, int, int) ([]domain.JobCard, error) {
	return s.created, nil
}

func (s *stubJobRepo) Update(_ context.Context, card domain.JobCard) (domain.JobCard, error) {
	return card, nil
}

func (s *stubJobRepo) Delete(context.Context, uuid.UUID) error {
	return nil
}

func (s *stubJobRepo) CreateBatch(_ context.Context, cards []domain.JobCard) (repository.BatchResult, error) {
	var result repository.BatchResult
	for _, card := range cards {
		card.ID = uuid.New()
		s.created = append(s.created, card)
		result.Inserted++
	}
	return result, nil
}

func (s *stubJobRepo) ListByTrainset(_ context.Context, trainsetID string) ([]domain.JobCard, error) {
	var out []domain.JobCard
	for _, card := range s.created {
		if card.TrainsetID == trainsetID {
			out = append(out, card)
		}
	}
	return out, nil
}
