package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job-card lifecycle states.
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
)

// SeverityCritical marks the job-card severity that raises a critical alert
// while the card is open.
const SeverityCritical = "A"

// JobCard is one maintenance ticket against a trainset.
type JobCard struct {
	ID          uuid.UUID  `json:"id"`
	TrainsetID  string     `json:"trainset_id"`
	Status      string     `json:"status"`
	Severity    *string    `json:"severity"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	OpenedAt    *time.Time `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	Source      string     `json:"source"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NormalizeSeverity collapses a raw severity/priority value onto its first
// letter, uppercased (A/B/C). Empty input yields empty output.
func NormalizeSeverity(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	return s[:1]
}

// NormalizeJobStatus lowercases a raw job-card status.
func NormalizeJobStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Open reports whether the card is in the open state.
func (j JobCard) Open() bool {
	return strings.EqualFold(j.Status, JobStatusOpen)
}

// Critical reports whether the card is open with the critical severity.
func (j JobCard) Critical() bool {
	if !j.Open() || j.Severity == nil {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(*j.Severity), SeverityCritical)
}
