package dates

import (
	"strings"
	"sync"
	"time"
)

// All instants in the system are anchored to the operating region's local
// time. Naive values are tagged with this zone, never converted.
const referenceZone = "Asia/Kolkata"

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the reference timezone.
func Location() *time.Location {
	locOnce.Do(func() {
		l, err := time.LoadLocation(referenceZone)
		if err != nil {
			// IST has a fixed +05:30 offset and no DST history worth
			// modelling when tzdata is unavailable.
			l = time.FixedZone("IST", 5*3600+30*60)
		}
		loc = l
	})
	return loc
}

// Now returns the current instant in the reference timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// DateLayouts are the explicit formats tried, in order, for date-only
// columns. Day-first layouts precede month-first so an ambiguous value like
// 01/02/2024 resolves to 1 February.
var DateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
}

// TimestampLayouts extends DateLayouts with the HH:MM variants seen in
// job-card exports.
var TimestampLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
}

// fallbackLayouts back the permissive parse once the explicit list is
// exhausted. Day-first variants come first.
var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"2006/01/02",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"02.01.2006",
}

// IsEmptyMarker reports whether a raw cell value means "no value".
func IsEmptyMarker(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "null", "NaT":
		return true
	}
	return false
}

// Parse normalizes a raw date string into a reference-timezone instant.
// The explicit format list is tried first, then the permissive fallback.
func Parse(raw string) (time.Time, bool) {
	return parseWith(raw, DateLayouts)
}

// ParseTimestamp behaves like Parse but also accepts HH:MM suffixed values.
func ParseTimestamp(raw string) (time.Time, bool) {
	return parseWith(raw, TimestampLayouts)
}

func parseWith(raw string, layouts []string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if IsEmptyMarker(s) {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, s, Location()); err == nil {
			return ts, true
		}
	}
	return parseFallback(s)
}

func parseFallback(s string) (time.Time, bool) {
	for _, layout := range fallbackLayouts {
		if ts, err := time.ParseInLocation(layout, s, Location()); err == nil {
			return ts.In(Location()), true
		}
	}
	return time.Time{}, false
}

// ParseColumn parses a whole column of raw values with a single format: each
// explicit layout is tried across the column and the first layout producing
// at least one hit owns the interpretation. Cells that fail the winning
// layout stay zero so a column is never read with mixed conventions. Only
// when no explicit layout matches anything does the permissive fallback run
// per cell.
func ParseColumn(values []string, layouts []string) []time.Time {
	out := make([]time.Time, len(values))
	for _, layout := range layouts {
		hits := 0
		for i, v := range values {
			s := strings.TrimSpace(v)
			if IsEmptyMarker(s) {
				continue
			}
			if ts, err := time.ParseInLocation(layout, s, Location()); err == nil {
				out[i] = ts
				hits++
			}
		}
		if hits > 0 {
			return out
		}
	}
	for i, v := range values {
		if ts, ok := parseFallback(strings.TrimSpace(v)); ok {
			out[i] = ts
		}
	}
	return out
}

// FormatDMY renders an instant as DD/MM/YYYY in the reference timezone.
func FormatDMY(t time.Time) string {
	return t.In(Location()).Format("02/01/2006")
}

// DaysUntil returns the calendar-day difference between t and now, both
// truncated to dates in the reference timezone. A certificate expiring at
// any time tomorrow is always exactly one day out.
func DaysUntil(t, now time.Time) int {
	l := Location()
	a := now.In(l)
	b := t.In(l)
	aDate := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, l)
	bDate := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, l)
	return int(bDate.Sub(aDate) / (24 * time.Hour))
}
