package event

import (
	"testing"
	"time"
)

func TestMeetingName(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{
			"glyph prefix and dash separator",
			"🏁 FORMULA 1 PIRELLI GRAND PRIX DU CANADA 2025 - Race",
			"FORMULA 1 PIRELLI GRAND PRIX DU CANADA 2025",
		},
		{
			"dash separator only",
			"FORMULA 1 AUSTRIAN GRAND PRIX 2025 - Sprint Qualifying",
			"FORMULA 1 AUSTRIAN GRAND PRIX 2025",
		},
		{
			"rightmost dash wins",
			"FORMULA 1 ROLEX - AUSSIE GP - Qualifying",
			"FORMULA 1 ROLEX - AUSSIE GP",
		},
		{
			"indicator fallback",
			"FORMULA 1 BRITISH GRAND PRIX Race",
			"FORMULA 1 BRITISH GRAND PRIX",
		},
		{
			"no separator and no indicator",
			"FORMULA 1 TESTING",
			"FORMULA 1 TESTING",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeetingName(tt.summary); got != tt.want {
				t.Errorf("MeetingName(%q) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	june2025 := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC).Unix()
	tests := []struct {
		name    string
		meeting string
		session SessionType
		start   int64
		want    string
	}{
		{
			"canada race",
			"FORMULA 1 PIRELLI GRAND PRIX DU CANADA 2025",
			Race,
			june2025,
			"2025-pirelli-gp-du-canada-race",
		},
		{
			"sprint qualifying suffix",
			"FORMULA 1 QATAR AIRWAYS GRAND PRIX 2025",
			SprintQualifying,
			june2025,
			"2025-qatar-airways-gp-sprint-qualifying",
		},
		{
			"livery suffix",
			"Scuderia Ferrari",
			LiveryReveal,
			time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC).Unix(),
			"2025-scuderia-ferrari-livery",
		},
		{
			"year from start time not name",
			"FORMULA 1 GRAND PRIX 2024",
			Qualifying,
			june2025,
			"2025-gp-qualifying",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.meeting, tt.session, tt.start); got != tt.want {
				t.Errorf("Slug() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlugStableAcrossRefetch(t *testing.T) {
	// The slug is the upsert key: the same meeting, type and start must
	// collide on purpose.
	start := time.Date(2025, 9, 7, 13, 0, 0, 0, time.UTC).Unix()
	a := Slug("FORMULA 1 PIRELLI GRAN PREMIO D'ITALIA 2025", Race, start)
	b := Slug("FORMULA 1 PIRELLI GRAN PREMIO D'ITALIA 2025", Race, start)
	if a != b {
		t.Errorf("slugs differ across derivations: %q vs %q", a, b)
	}
}
