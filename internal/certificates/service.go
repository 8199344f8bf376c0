package certificates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deepdhani/kmrl/internal/dates"
	"github.com/deepdhani/kmrl/internal/domain"
	"github.com/deepdhani/kmrl/internal/ingestion"
	"github.com/deepdhani/kmrl/internal/repository"
)

// Ingestor merges a tabular source into the store before a query runs.
type Ingestor interface {
	UpsertFromFile(ctx context.Context, path string) ingestion.Result
}

// Service answers validity/expiry queries over the reconciled certificate
// view and exposes single-record CRUD for the admin surface.
type Service struct {
	repo     repository.CertificateRepository
	ingestor Ingestor
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new certificate service.
func NewService(repo repository.CertificateRepository, ingestor Ingestor, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		ingestor: ingestor,
		logger:   logger,
		now:      dates.Now,
	}
}

// ExpiringRow is one entry of the expiring-within report. The expiry date is
// rendered DD/MM/YYYY for the dashboard table.
type ExpiringRow struct {
	TrainID      string `json:"train_id"`
	Department   string `json:"department"`
	ExpiryDate   string `json:"expiry_date"`
	DaysToExpiry int    `json:"days_to_expiry"`
}

// CountResult reports an aggregate count.
type CountResult struct {
	Count int `json:"count"`
}

// ListRow is one certificate in the admin listing. Dates are ISO formatted
// here, unlike the reporter's DD/MM/YYYY; the admin table's date inputs
// expect ISO.
type ListRow struct {
	ID         uuid.UUID `json:"id"`
	TrainsetID string    `json:"trainset_id"`
	Department string    `json:"department"`
	Status     *string   `json:"status"`
	ValidFrom  *string   `json:"valid_from"`
	ValidTo    string    `json:"valid_to"`
	Source     string    `json:"source"`
}

// ListResult pages the admin listing.
type ListResult struct {
	Rows   []ListRow `json:"rows"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Count  int       `json:"count"`
}

// AddResult reports a create outcome.
type AddResult struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Error string     `json:"error,omitempty"`
}

// UpdateResult reports a patch outcome.
type UpdateResult struct {
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// DeleteResult reports a delete outcome.
type DeleteResult struct {
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// AddRequest carries the fields accepted when creating one record.
type AddRequest struct {
	TrainsetID string `json:"trainset_id"`
	Dept       string `json:"dept"`
	Status     string `json:"status"`
	ValidFrom  string `json:"valid_from"`
	ValidTo    string `json:"valid_to"`
	Source     string `json:"source"`
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	TrainsetID *string `json:"trainset_id"`
	Dept       *string `json:"dept"`
	Status     *string `json:"status"`
	ValidFrom  *string `json:"valid_from"`
	ValidTo    *string `json:"valid_to"`
}

func (s *Service) ingestFirst(ctx context.Context, sourcePath string) {
	if sourcePath == "" {
		return
	}
	if res := s.ingestor.UpsertFromFile(ctx, sourcePath); res.Error != "" {
		s.logger.Warn("pre-query ingestion failed",
			zap.String("path", sourcePath),
			zap.String("error", res.Error),
		)
	}
}

// ExpiringWithin returns every (trainset, dept) pair whose latest
// certificate is currently valid and expires within the given number of
// calendar days (0..days inclusive). When sourcePath is non-empty the file
// is ingested first so the report reflects the freshest merge.
func (s *Service) ExpiringWithin(ctx context.Context, days int, sourcePath string) ([]ExpiringRow, error) {
	s.ingestFirst(ctx, sourcePath)

	now := s.now()
	latest, err := s.repo.LatestPerPair(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest certificates: %w", err)
	}

	rows := []ExpiringRow{}
	for _, cert := range latest {
		if !cert.CurrentlyValid(now) {
			continue
		}
		delta := dates.DaysUntil(cert.ValidTo, now)
		if delta < 0 || delta > days {
			continue
		}
		rows = append(rows, ExpiringRow{
			TrainID:      cert.TrainsetID,
			Department:   cert.Dept,
			ExpiryDate:   dates.FormatDMY(cert.ValidTo),
			DaysToExpiry: delta,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DaysToExpiry != rows[j].DaysToExpiry {
			return rows[i].DaysToExpiry < rows[j].DaysToExpiry
		}
		if rows[i].TrainID != rows[j].TrainID {
			return rows[i].TrainID < rows[j].TrainID
		}
		return rows[i].Department < rows[j].Department
	})
	return rows, nil
}

// TotalActive counts (trainset, dept) pairs whose latest certificate is
// currently valid, with no day-window filter.
func (s *Service) TotalActive(ctx context.Context, sourcePath string) (CountResult, error) {
	s.ingestFirst(ctx, sourcePath)

	now := s.now()
	latest, err := s.repo.LatestPerPair(ctx)
	if err != nil {
		return CountResult{}, fmt.Errorf("failed to load latest certificates: %w", err)
	}

	count := 0
	for _, cert := range latest {
		if cert.Active(now) {
			count++
		}
	}
	return CountResult{Count: count}, nil
}

// List returns one page of certificate records for the admin table.
func (s *Service) List(ctx context.Context, limit, offset int) (ListResult, error) {
	certs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return ListResult{}, err
	}

	rows := make([]ListRow, len(certs))
	for i, cert := range certs {
		row := ListRow{
			ID:         cert.ID,
			TrainsetID: cert.TrainsetID,
			Department: cert.Dept,
			Status:     cert.Status,
			ValidTo:    cert.ValidTo.In(dates.Location()).Format(time.RFC3339),
			Source:     cert.Source,
		}
		if cert.ValidFrom != nil {
			validFrom := cert.ValidFrom.In(dates.Location()).Format(time.RFC3339)
			row.ValidFrom = &validFrom
		}
		rows[i] = row
	}
	return ListResult{Rows: rows, Limit: limit, Offset: offset, Count: len(rows)}, nil
}

// Add creates a single record, bypassing bulk ingestion.
func (s *Service) Add(ctx context.Context, req AddRequest) AddResult {
	trainsetID := strings.TrimSpace(req.TrainsetID)
	dept := domain.NormalizeDept(req.Dept)
	validTo, ok := dates.Parse(req.ValidTo)
	if trainsetID == "" || dept == "" || !ok {
		return AddResult{Error: "trainset_id, dept, valid_to are required. Use YYYY-MM-DD / DD/MM/YYYY / MM/DD/YYYY."}
	}

	cert := domain.Certificate{
		TrainsetID: trainsetID,
		Dept:       dept,
		ValidTo:    validTo,
		Source:     req.Source,
	}
	if cert.Source == "" {
		cert.Source = "api"
	}
	if req.Status != "" {
		status := strings.ToLower(req.Status)
		cert.Status = &status
	}
	if validFrom, ok := dates.Parse(req.ValidFrom); ok {
		cert.ValidFrom = &validFrom
	}

	created, err := s.repo.Create(ctx, cert)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return AddResult{Error: "certificate already exists for this trainset, dept and valid_to"}
		}
		s.logger.Error("failed to add certificate", zap.Error(err))
		return AddResult{Error: err.Error()}
	}
	return AddResult{ID: &created.ID}
}

// Update applies a partial update to one record. An unparseable valid_to
// rejects the whole patch: it anchors both the uniqueness key and the
// validity computation.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) UpdateResult {
	cert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UpdateResult{Error: "not found"}
		}
		return UpdateResult{Error: err.Error()}
	}

	if patch.TrainsetID != nil {
		cert.TrainsetID = strings.TrimSpace(*patch.TrainsetID)
	}
	if patch.Dept != nil {
		cert.Dept = domain.NormalizeDept(*patch.Dept)
	}
	if patch.Status != nil {
		if status := strings.ToLower(strings.TrimSpace(*patch.Status)); status != "" {
			cert.Status = &status
		} else {
			cert.Status = nil
		}
	}
	if patch.ValidFrom != nil {
		if validFrom, ok := dates.Parse(*patch.ValidFrom); ok {
			cert.ValidFrom = &validFrom
		} else {
			cert.ValidFrom = nil
		}
	}
	if patch.ValidTo != nil {
		validTo, ok := dates.Parse(*patch.ValidTo)
		if !ok {
			return UpdateResult{Error: "valid_to must be a valid date"}
		}
		cert.ValidTo = validTo
	}

	if _, err := s.repo.Update(ctx, cert); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UpdateResult{Error: "not found"}
		}
		if errors.Is(err, domain.ErrDuplicate) {
			return UpdateResult{Error: "certificate already exists for this trainset, dept and valid_to"}
		}
		s.logger.Error("failed to update certificate", zap.String("id", id.String()), zap.Error(err))
		return UpdateResult{Error: err.Error()}
	}
	return UpdateResult{Updated: 1}
}

// Delete removes one record by identifier.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) DeleteResult {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DeleteResult{Error: "not found"}
		}
		s.logger.Error("failed to delete certificate", zap.String("id", id.String()), zap.Error(err))
		return DeleteResult{Error: err.Error()}
	}
	return DeleteResult{Deleted: 1}
}
