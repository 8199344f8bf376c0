package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deepdhani/kmrl/internal/db"
	"github.com/deepdhani/kmrl/internal/domain"
)

const jobCardColumns = `id, trainset_id, status, severity, title, description, opened_at, closed_at, COALESCE(source, ''), created_at, updated_at`

// jobCardRepository implements JobCardRepository on Postgres.
type jobCardRepository struct {
	conn *db.Connection
}

// NewJobCardRepository creates a new job-card repository.
func NewJobCardRepository(conn *db.Connection) JobCardRepository {
	return &jobCardRepository{conn: conn}
}

// Create inserts a single job card.
func (r *jobCardRepository) Create(ctx context.Context, card domain.JobCard) (domain.JobCard, error) {
	row := r.conn.Pool.QueryRow(ctx, `
		INSERT INTO jobcards (trainset_id, status, severity, title, description, opened_at, closed_at, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+jobCardColumns,
		card.TrainsetID, card.Status, card.Severity, card.Title, card.Description,
		card.OpenedAt, card.ClosedAt, card.Source,
	)
	created, err := scanJobCard(row)
	if err != nil {
		return domain.JobCard{}, fmt.Errorf("failed to create job card: %w", err)
	}
	return created, nil
}

// GetByID retrieves a job card by ID.
func (r *jobCardRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.JobCard, error) {
	row := r.conn.Pool.QueryRow(ctx, `
		SELECT `+jobCardColumns+`
		FROM jobcards
		WHERE id = $1`,
		id,
	)
	card, err := scanJobCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JobCard{}, domain.ErrNotFound
		}
		return domain.JobCard{}, fmt.Errorf("failed to get job card: %w", err)
	}
	return card, nil
}

// List retrieves job cards, most recently opened first.
func (r *jobCardRepository) List(ctx context.Context, limit, offset int) ([]domain.JobCard, error) {
	rows, err := r.conn.Pool.Query(ctx, `
		SELECT `+jobCardColumns+`
		FROM jobcards
		ORDER BY opened_at DESC NULLS LAST, id DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job cards: %w", err)
	}
	defer rows.Close()
	return collectJobCards(rows)
}

// Update replaces the mutable fields of a job card.
func (r *jobCardRepository) Update(ctx context.Context, card domain.JobCard) (domain.JobCard, error) {
	row := r.conn.Pool.QueryRow(ctx, `
		UPDATE jobcards
		SET trainset_id = $2, status = $3, severity = $4, title = $5, description = $6,
		    opened_at = $7, closed_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+jobCardColumns,
		card.ID, card.TrainsetID, card.Status, card.Severity, card.Title, card.Description,
		card.OpenedAt, card.ClosedAt,
	)
	updated, err := scanJobCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JobCard{}, domain.ErrNotFound
		}
		return domain.JobCard{}, fmt.Errorf("failed to update job card: %w", err)
	}
	return updated, nil
}

// Delete removes a job card by ID.
func (r *jobCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Pool.Exec(ctx, `DELETE FROM jobcards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateBatch inserts a whole ingestion batch in one transaction. There is
// no uniqueness constraint on jobcards (title and opened_at are nullable),
// so duplicates are detected with an existence check inside the transaction;
// NULLs compare equal via IS NOT DISTINCT FROM.
func (r *jobCardRepository) CreateBatch(ctx context.Context, cards []domain.JobCard) (BatchResult, error) {
	var result BatchResult
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, card := range cards {
			var exists bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM jobcards
					WHERE trainset_id = $1
					  AND title IS NOT DISTINCT FROM $2
					  AND opened_at IS NOT DISTINCT FROM $3
				)`,
				card.TrainsetID, card.Title, card.OpenedAt,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check job card existence: %w", err)
			}
			if exists {
				result.Skipped++
				continue
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO jobcards (trainset_id, status, severity, title, description, opened_at, closed_at, source)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				card.TrainsetID, card.Status, card.Severity, card.Title, card.Description,
				card.OpenedAt, card.ClosedAt, card.Source,
			)
			if err != nil {
				return fmt.Errorf("failed to insert job card for %s: %w", card.TrainsetID, err)
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// ListByTrainset retrieves every job card for one trainset.
func (r *jobCardRepository) ListByTrainset(ctx context.Context, trainsetID string) ([]domain.JobCard, error) {
	rows, err := r.conn.Pool.Query(ctx, `
		SELECT `+jobCardColumns+`
		FROM jobcards
		WHERE trainset_id = $1`,
		trainsetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job cards by trainset: %w", err)
	}
	defer rows.Close()
	return collectJobCards(rows)
}

func scanJobCard(row pgx.Row) (domain.JobCard, error) {
	var j domain.JobCard
	err := row.Scan(
		&j.ID, &j.TrainsetID, &j.Status, &j.Severity, &j.Title, &j.Description,
		&j.OpenedAt, &j.ClosedAt, &j.Source,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return domain.JobCard{}, err
	}
	return j, nil
}

func collectJobCards(rows pgx.Rows) ([]domain.JobCard, error) {
	cards := []domain.JobCard{}
	for rows.Next() {
		card, err := scanJobCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job cards: %w", err)
	}
	return cards, nil
}
