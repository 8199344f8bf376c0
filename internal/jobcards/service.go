package jobcards

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deepdhani/kmrl/internal/dates"
	"github.com/deepdhani/kmrl/internal/domain"
	"github.com/deepdhani/kmrl/internal/repository"
)

// Service exposes job-card CRUD and the per-train status summary.
type Service struct {
	repo   repository.JobCardRepository
	logger *zap.Logger
}

// NewService creates a new job-card service.
func NewService(repo repository.JobCardRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListRow is one job card in the admin listing, with ISO dates.
type ListRow struct {
	ID          uuid.UUID `json:"id"`
	TrainsetID  string    `json:"trainset_id"`
	Status      string    `json:"status"`
	Severity    *string   `json:"severity"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	OpenedAt    *string   `json:"opened_at"`
	ClosedAt    *string   `json:"closed_at"`
	Source      string    `json:"source"`
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

// Summary aggregates the job-card position for one trainset. CriticalAlert
// is YES when any open card carries the critical severity.
type Summary struct {
	TrainID       string `json:"train_id"`
	TotalJobs     int    `json:"total_jobs"`
	OpenJobs      int    `json:"open_jobs"`
	ClosedJobs    int    `json:"closed_jobs"`
	CriticalAlert string `json:"critical_alert"`
}

// AddRequest carries the fields accepted when creating one job card.
type AddRequest struct {
	TrainsetID  string `json:"trainset_id"`
	Status      string `json:"status"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OpenedAt    string `json:"opened_at"`
	ClosedAt    string `json:"closed_at"`
	Source      string `json:"source"`
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	TrainsetID  *string `json:"trainset_id"`
	Status      *string `json:"status"`
	Severity    *string `json:"severity"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	OpenedAt    *string `json:"opened_at"`
	ClosedAt    *string `json:"closed_at"`
}

// List returns one page of job cards, most recently opened first.
func (s *Service) List(ctx context.Context, limit, offset int) (ListResult, error) {
	cards, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return ListResult{}, err
	}

	rows := make([]ListRow, len(cards))
	for i, card := range cards {
		rows[i] = ListRow{
			ID:          card.ID,
			TrainsetID:  card.TrainsetID,
			Status:      card.Status,
			Severity:    card.Severity,
			Title:       card.Title,
			Description: card.Description,
			OpenedAt:    isoOrNil(card.OpenedAt),
			ClosedAt:    isoOrNil(card.ClosedAt),
			Source:      card.Source,
		}
	}
	return ListResult{Rows: rows, Limit: limit, Offset: offset, Count: len(rows)}, nil
}

// Add creates a single job card; status defaults to open.
func (s *Service) Add(ctx context.Context, req AddRequest) AddResult {
	trainsetID := strings.TrimSpace(req.TrainsetID)
	if trainsetID == "" {
		return AddResult{Error: "trainset_id is required"}
	}

	status := domain.NormalizeJobStatus(req.Status)
	if status == "" {
		status = domain.JobStatusOpen
	}

	card := domain.JobCard{
		TrainsetID: trainsetID,
		Status:     status,
		Source:     req.Source,
	}
	if card.Source == "" {
		card.Source = "api"
	}
	if sev := domain.NormalizeSeverity(req.Severity); sev != "" {
		card.Severity = &sev
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		card.Title = &title
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		card.Description = &desc
	}
	if openedAt, ok := dates.ParseTimestamp(req.OpenedAt); ok {
		card.OpenedAt = &openedAt
	}
	if closedAt, ok := dates.ParseTimestamp(req.ClosedAt); ok {
		card.ClosedAt = &closedAt
	}

	created, err := s.repo.Create(ctx, card)
	if err != nil {
		s.logger.Error("failed to add job card", zap.Error(err))
		return AddResult{Error: err.Error()}
	}
	return AddResult{ID: &created.ID}
}

// Update applies a partial update to one job card.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) UpdateResult {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UpdateResult{Error: "not found"}
		}
		return UpdateResult{Error: err.Error()}
	}

	if patch.TrainsetID != nil {
		card.TrainsetID = strings.TrimSpace(*patch.TrainsetID)
	}
	if patch.Status != nil {
		card.Status = domain.NormalizeJobStatus(*patch.Status)
	}
	if patch.Severity != nil {
		if sev := domain.NormalizeSeverity(*patch.Severity); sev != "" {
			card.Severity = &sev
		} else {
			card.Severity = nil
		}
	}
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != "" {
			card.Title = &title
		} else {
			card.Title = nil
		}
	}
	if patch.Description != nil {
		if desc := strings.TrimSpace(*patch.Description); desc != "" {
			card.Description = &desc
		} else {
			card.Description = nil
		}
	}
	if patch.OpenedAt != nil {
		if openedAt, ok := dates.ParseTimestamp(*patch.OpenedAt); ok {
			card.OpenedAt = &openedAt
		} else {
			card.OpenedAt = nil
		}
	}
	if patch.ClosedAt != nil {
		if closedAt, ok := dates.ParseTimestamp(*patch.ClosedAt); ok {
			card.ClosedAt = &closedAt
		} else {
			card.ClosedAt = nil
		}
	}

	if _, err := s.repo.Update(ctx, card); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UpdateResult{Error: "not found"}
		}
		s.logger.Error("failed to update job card", zap.String("id", id.String()), zap.Error(err))
		return UpdateResult{Error: err.Error()}
	}
	return UpdateResult{Updated: 1}
}

// Delete removes one job card by identifier.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) DeleteResult {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return DeleteResult{Error: "not found"}
		}
		s.logger.Error("failed to delete job card", zap.String("id", id.String()), zap.Error(err))
		return DeleteResult{Error: err.Error()}
	}
	return DeleteResult{Deleted: 1}
}

// SummaryForTrain aggregates the open/closed counts for one trainset.
func (s *Service) SummaryForTrain(ctx context.Context, trainsetID string) (Summary, error) {
	cards, err := s.repo.ListByTrainset(ctx, trainsetID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{TrainID: trainsetID, CriticalAlert: "NO"}
	for _, card := range cards {
		summary.TotalJobs++
		if card.Open() {
			summary.OpenJobs++
			if card.Critical() {
				summary.CriticalAlert = "YES"
			}
		} else {
			summary.ClosedJobs++
		}
	}
	return summary, nil
}

func isoOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	iso := t.In(dates.Location()).Format(time.RFC3339)
	return &iso
}
