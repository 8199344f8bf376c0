package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Certificate is one fitness-certificate record for a trainset/department
// pair. History accumulates: a new valid_to is always a new record, and the
// (trainset_id, dept, valid_to) tuple is unique in storage.
type Certificate struct {
	ID         uuid.UUID  `json:"id"`
	TrainsetID string     `json:"trainset_id"`
	Dept       string     `json:"dept"`
	Status     *string    `json:"status"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidTo    time.Time  `json:"valid_to"`
	Source     string     `json:"source"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Canonical department codes.
const (
	DeptRollingStock = "RS"
	DeptSignalling   = "SIG"
	DeptTelecom      = "TEL"
)

// validStatuses are the synonyms that classify a status value as "valid".
var validStatuses = map[string]struct{}{
	"valid":   {},
	"active":  {},
	"ok":      {},
	"cleared": {},
	"1":       {},
	"true":    {},
	"v":       {},
}

// NormalizeDept maps free-text department names onto the canonical codes via
// prefix rules. Unknown values are uppercased and truncated to 8 characters,
// never rejected.
func NormalizeDept(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(s, "ROLLING"):
		return DeptRollingStock
	case strings.HasPrefix(s, "SIG"):
		return DeptSignalling
	case strings.HasPrefix(s, "TEL"):
		return DeptTelecom
	}
	switch s {
	case DeptRollingStock, DeptSignalling, DeptTelecom:
		return s
	}
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// NormalizeStatus lowercases a raw status and collapses the valid synonyms
// onto "valid". Unrecognized values are kept, lowercased, as-is.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := validStatuses[s]; ok {
		return "valid"
	}
	return s
}

// IsValidStatus reports whether a status string belongs to the valid
// synonym set.
func IsValidStatus(status string) bool {
	_, ok := validStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// CurrentlyValid reports whether a certificate is valid at the given
// instant: an explicit status must be in the valid synonym set; an absent
// status defers to the expiry boundary. An explicit but unrecognized status
// (e.g. "revoked") makes the record invalid even when valid_to is future.
func (c Certificate) CurrentlyValid(now time.Time) bool {
	if c.Status != nil {
		return IsValidStatus(*c.Status)
	}
	return !c.ValidTo.Before(now)
}

// Active reports whether a certificate counts toward the active total:
// the status must allow it (or be absent) and valid_to must not have passed.
func (c Certificate) Active(now time.Time) bool {
	if c.Status != nil && !IsValidStatus(*c.Status) {
		return false
	}
	return !c.ValidTo.Before(now)
}
