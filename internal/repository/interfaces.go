package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepdhani/kmrl/internal/domain"
)

// BatchResult reports how an ingestion batch landed in storage.
type BatchResult struct {
	Inserted int
	Skipped  int
}

// CertificateRepository defines the interface for certificate storage.
// Inserts that collide with the (trainset_id, dept, valid_to) uniqueness
// constraint fail with domain.ErrDuplicate rather than overwriting.
type CertificateRepository interface {
	Create(ctx context.Context, cert domain.Certificate) (domain.Certificate, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Certificate, error)
	List(ctx context.Context, limit, offset int) ([]domain.Certificate, error)
	Update(ctx context.Context, cert domain.Certificate) (domain.Certificate, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateBatch inserts all certificates in one transaction; rows whose
	// uniqueness tuple already exists are skipped and counted.
	CreateBatch(ctx context.Context, certs []domain.Certificate) (BatchResult, error)

	// LatestPerPair returns, for each (trainset_id, dept) pair, the record
	// with the maximum valid_to.
	LatestPerPair(ctx context.Context) ([]domain.Certificate, error)
}

// JobCardRepository defines the interface for job-card storage.
type JobCardRepository interface {
	Create(ctx context.Context, card domain.JobCard) (domain.JobCard, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.JobCard, error)
	List(ctx context.Context, limit, offset int) ([]domain.JobCard, error)
	Update(ctx context.Context, card domain.JobCard) (domain.JobCard, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateBatch inserts all cards in one transaction, skipping rows whose
	// (trainset_id, title, opened_at) triple is already present.
	CreateBatch(ctx context.Context, cards []domain.JobCard) (BatchResult, error)

	// ListByTrainset returns every card for one trainset.
	ListByTrainset(ctx context.Context, trainsetID string) ([]domain.JobCard, error)
}
