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

// Column synonym sets for job-card sources, first match wins.
var (
	jobTrainsetColumns = []string{"trainset_id", "train_id", "train", "rake", "rake_id", "code"}
	jobStatusColumns   = []string{"status", "state"}
	jobSeverityColumns = []string{"severity", "priority", "sev"}
	jobTitleColumns    = []string{"title", "summary", "subject"}
	jobDescColumns     = []string{"description", "details", "note", "remark"}
	jobOpenedColumns   = []string{"opened_at", "open_date", "created", "created_at", "start"}
	jobClosedColumns   = []string{"closed_at", "close_date", "completed", "end", "finished_at"}
)

// JobCardService ingests job-card exports into the store.
type JobCardService struct {
	repo   repository.JobCardRepository
	logger *zap.Logger
}

// NewJobCardService creates a new job-card ingestion service.
func NewJobCardService(repo repository.JobCardRepository, logger *zap.Logger) *JobCardService {
	return &JobCardService{repo: repo, logger: logger}
}

// UpsertFromFile reads a tabular job-card source and merges it against the
// store, skipping rows whose (trainset, title, opened_at) triple is already
// present. The whole file commits in one transaction.
func (s *JobCardService) UpsertFromFile(ctx context.Context, path string) Result {
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

	trainIdx := tbl.resolve(jobTrainsetColumns...)
	statusIdx := tbl.resolve(jobStatusColumns...)
	sevIdx := tbl.resolve(jobSeverityColumns...)
	titleIdx := tbl.resolve(jobTitleColumns...)
	descIdx := tbl.resolve(jobDescColumns...)
	openedIdx := tbl.resolve(jobOpenedColumns...)
	closedIdx := tbl.resolve(jobClosedColumns...)
	if trainIdx < 0 || statusIdx < 0 {
		return Result{Error: "required columns missing (trainset_id/status)"}
	}

	var openedAts, closedAts []time.Time
	if openedIdx >= 0 {
		openedAts = dates.ParseColumn(tbl.column(openedIdx), dates.TimestampLayouts)
	}
	if closedIdx >= 0 {
		closedAts = dates.ParseColumn(tbl.column(closedIdx), dates.TimestampLayouts)
	}

	cards := make([]domain.JobCard, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		card := domain.JobCard{
			TrainsetID: tbl.cell(row, trainIdx),
			Status:     domain.NormalizeJobStatus(tbl.cell(row, statusIdx)),
			Source:     SourceCSVImport,
		}
		if sevIdx >= 0 {
			if sev := domain.NormalizeSeverity(tbl.cell(row, sevIdx)); sev != "" {
				card.Severity = &sev
			}
		}
		if titleIdx >= 0 {
			if title := tbl.cell(row, titleIdx); title != "" {
				card.Title = &title
			}
		}
		if descIdx >= 0 {
			if desc := tbl.cell(row, descIdx); desc != "" {
				card.Description = &desc
			}
		}
		if openedIdx >= 0 && !openedAts[i].IsZero() {
			openedAt := openedAts[i]
			card.OpenedAt = &openedAt
		}
		if closedIdx >= 0 && !closedAts[i].IsZero() {
			closedAt := closedAts[i]
			card.ClosedAt = &closedAt
		}
		cards = append(cards, card)
	}

	batch, err := s.repo.CreateBatch(ctx, cards)
	if err != nil {
		s.logger.Error("job-card ingestion failed", zap.String("path", path), zap.Error(err))
		return Result{Error: err.Error()}
	}

	s.logger.Info("job cards ingested",
		zap.String("path", path),
		zap.Int("imported", batch.Inserted),
		zap.Int("skipped", batch.Skipped),
	)
	return Result{Imported: batch.Inserted, Skipped: batch.Skipped}
}
