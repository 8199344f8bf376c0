package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deepdhani/kmrl/internal/db"
	"github.com/deepdhani/kmrl/internal/domain"
)

const certificateColumns = `id, trainset_id, dept, status, valid_from, valid_to, COALESCE(source, ''), created_at, updated_at`

// certificateRepository implements CertificateRepository on Postgres.
type certificateRepository struct {
	conn *db.Connection
}

// NewCertificateRepository creates a new certificate repository.
func NewCertificateRepository(conn *db.Connection) CertificateRepository {
	return &certificateRepository{conn: conn}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a single certificate record.
func (r *certificateRepository) Create(ctx context.Context, cert domain.Certificate) (domain.Certificate, error) {
	row := r.conn.Pool.QueryRow(ctx, `
		INSERT INTO certificates (trainset_id, dept, status, valid_from, valid_to, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+certificateColumns,
		cert.TrainsetID, cert.Dept, cert.Status, cert.ValidFrom, cert.ValidTo, cert.Source,
	)
	created, err := scanCertificate(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Certificate{}, domain.ErrDuplicate
		}
		return domain.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	return created, nil
}

// GetByID retrieves a certificate by ID.
func (r *certificateRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Certificate, error) {
	row := r.conn.Pool.QueryRow(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		WHERE id = $1`,
		id,
	)
	cert, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Certificate{}, domain.ErrNotFound
		}
		return domain.Certificate{}, fmt.Errorf("failed to get certificate: %w", err)
	}
	return cert, nil
}

// List retrieves certificates ordered for the admin table: by trainset,
// department, then newest expiry first.
func (r *certificateRepository) List(ctx context.Context, limit, offset int) ([]domain.Certificate, error) {
	rows, err := r.conn.Pool.Query(ctx, `
		SELECT `+certificateColumns+`
		FROM certificates
		ORDER BY trainset_id, dept, valid_to DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()
	return collectCertificates(rows)
}

// Update replaces the mutable fields of a certificate.
func (r *certificateRepository) Update(ctx context.Context, cert domain.Certificate) (domain.Certificate, error) {
	row := r.conn.Pool.QueryRow(ctx, `
		UPDATE certificates
		SET trainset_id = $2, dept = $3, status = $4, valid_from = $5, valid_to = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+certificateColumns,
		cert.ID, cert.TrainsetID, cert.Dept, cert.Status, cert.ValidFrom, cert.ValidTo,
	)
	updated, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Certificate{}, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Certificate{}, domain.ErrDuplicate
		}
		return domain.Certificate{}, fmt.Errorf("failed to update certificate: %w", err)
	}
	return updated, nil
}

// Delete removes a certificate by ID.
func (r *certificateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Pool.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateBatch inserts a whole ingestion batch in one transaction. Rows that
// collide with the uniqueness tuple are dropped by ON CONFLICT and counted
// as skipped, so re-ingesting the same file is idempotent and concurrent
// overlapping ingests cannot corrupt state.
func (r *certificateRepository) CreateBatch(ctx context.Context, certs []domain.Certificate) (BatchResult, error) {
	var result BatchResult
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, cert := range certs {
			tag, err := tx.Exec(ctx, `
				INSERT INTO certificates (trainset_id, dept, status, valid_from, valid_to, source)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT ON CONSTRAINT uq_cert_train_dept_to DO NOTHING`,
				cert.TrainsetID, cert.Dept, cert.Status, cert.ValidFrom, cert.ValidTo, cert.Source,
			)
			if err != nil {
				return fmt.Errorf("failed to insert certificate for %s/%s: %w", cert.TrainsetID, cert.Dept, err)
			}
			if tag.RowsAffected() == 0 {
				result.Skipped++
			} else {
				result.Inserted++
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// LatestPerPair returns the authoritative record per (trainset_id, dept):
// the one with the maximum valid_to.
func (r *certificateRepository) LatestPerPair(ctx context.Context) ([]domain.Certificate, error) {
	rows, err := r.conn.Pool.Query(ctx, `
		SELECT DISTINCT ON (trainset_id, dept) `+certificateColumns+`
		FROM certificates
		ORDER BY trainset_id, dept, valid_to DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest certificates: %w", err)
	}
	defer rows.Close()
	return collectCertificates(rows)
}

func scanCertificate(row pgx.Row) (domain.Certificate, error) {
	var c domain.Certificate
	err := row.Scan(
		&c.ID, &c.TrainsetID, &c.Dept, &c.Status,
		&c.ValidFrom, &c.ValidTo, &c.Source,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Certificate{}, err
	}
	return c, nil
}

func collectCertificates(rows pgx.Rows) ([]domain.Certificate, error) {
	certs := []domain.Certificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read certificates: %w", err)
	}
	return certs, nil
}
