package dates

import (
	"testing"
	"time"
)

func TestParseExplicitFormats(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-15": time.Date(2025, 3, 15, 0, 0, 0, 0, Location()),
		"15/03/2025": time.Date(2025, 3, 15, 0, 0, 0, 0, Location()),
		"15-03-2025": time.Date(2025, 3, 15, 0, 0, 0, 0, Location()),
	}
	for raw, want := range cases {
		got, ok := Parse(raw)
		if !ok {
			t.Fatalf("Parse(%q) failed", raw)
		}
		if !got.Equal(want) {
			t.Fatalf("Parse(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseAmbiguousDayFirst(t *testing.T) {
	got, ok := Parse("01/02/2024")
	if !ok {
		t.Fatalf("Parse failed")
	}
	if got.Month() != time.February || got.Day() != 1 {
		t.Fatalf("expected 1 February, got %v", got)
	}
}

func TestParseEmptyMarkers(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "NaT"} {
		if _, ok := Parse(raw); ok {
			t.Fatalf("Parse(%q) should fail", raw)
		}
	}
}

func TestParseRoundTripDMY(t *testing.T) {
	got, ok := Parse("15/03/2025")
	if !ok {
		t.Fatalf("Parse failed")
	}
	if FormatDMY(got) != "15/03/2025" {
		t.Fatalf("round trip produced %s", FormatDMY(got))
	}
}

func TestParseTimestampHHMM(t *testing.T) {
	got, ok := ParseTimestamp("15/03/2025 09:30")
	if !ok {
		t.Fatalf("ParseTimestamp failed")
	}
	want := time.Date(2025, 3, 15, 9, 30, 0, 0, Location())
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseColumnSingleConvention(t *testing.T) {
	// ISO wins for the whole column; the cell that only fits the
	// day-first layout stays zero instead of flipping conventions.
	values := []string{"2025-01-02", "2025-03-04", "05/06/2025"}
	parsed := ParseColumn(values, DateLayouts)

	if parsed[0].IsZero() || parsed[1].IsZero() {
		t.Fatalf("ISO cells should parse: %v", parsed)
	}
	if parsed[0].Day() != 2 || parsed[0].Month() != time.January {
		t.Fatalf("expected 2 January, got %v", parsed[0])
	}
	if !parsed[2].IsZero() {
		t.Fatalf("off-convention cell should stay zero, got %v", parsed[2])
	}
}

func TestParseColumnFallbackWhenNoExplicitHit(t *testing.T) {
	values := []string{"02 Jan 2026", ""}
	parsed := ParseColumn(values, DateLayouts)
	if parsed[0].IsZero() {
		t.Fatalf("fallback should parse long-form dates")
	}
	if !parsed[1].IsZero() {
		t.Fatalf("empty cell should stay zero")
	}
}

func TestDaysUntilCalendarBoundary(t *testing.T) {
	now := time.Date(2025, 3, 15, 23, 50, 0, 0, Location())
	tomorrow := time.Date(2025, 3, 16, 0, 5, 0, 0, Location())
	if d := DaysUntil(tomorrow, now); d != 1 {
		t.Fatalf("expected 1 calendar day, got %d", d)
	}

	sameDay := time.Date(2025, 3, 15, 0, 0, 0, 0, Location())
	if d := DaysUntil(sameDay, now); d != 0 {
		t.Fatalf("expected 0 for today, got %d", d)
	}

	yesterday := time.Date(2025, 3, 14, 12, 0, 0, 0, Location())
	if d := DaysUntil(yesterday, now); d != -1 {
		t.Fatalf("expected -1 for yesterday, got %d", d)
	}
}
