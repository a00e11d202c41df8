package event

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	formulaOnePattern = regexp.MustCompile(`(?i)formula\s*1\s*`)
	yearPattern       = regexp.MustCompile(`\d{4}`)
	grandPrixPattern  = regexp.MustCompile(`(?i)grand prix`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	hyphenRun         = regexp.MustCompile(`-+`)
)

// meetingIndicators are the leading-space-delimited session labels used to
// truncate a summary that lacks a " - " separator. The leading space keeps
// e.g. a meeting name containing "Monza Race Circuit" from matching too
// eagerly; this is a heuristic, not a guarantee.
var meetingIndicators = []string{
	" Race",
	" Sprint",
	" Qualifying",
	" FP1",
	" FP2",
	" FP3",
	" Practice 1",
	" Practice 2",
	" Practice 3",
	" Livery",
}

// MeetingName extracts the meeting name from a calendar summary such as
// "🏁 FORMULA 1 PIRELLI GRAND PRIX DU CANADA 2025 - Race". Decorative glyph
// prefixes are stripped, then everything before the rightmost " - " is taken;
// without such a separator the summary is truncated at the first session-label
// indicator, and failing that returned whole.
func MeetingName(summary string) string {
	clean := strings.TrimSpace(strings.TrimLeftFunc(summary, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && !unicode.IsSpace(r)
	}))

	if idx := strings.LastIndex(clean, " - "); idx > 0 {
		return strings.TrimSpace(clean[:idx])
	}

	for _, indicator := range meetingIndicators {
		if idx := strings.Index(clean, indicator); idx > 0 {
			return strings.TrimSpace(clean[:idx])
		}
	}

	return clean
}

// Slug derives the stable identifier for a session, formatted as
// "{year}-{normalized-meeting-name}-{type-suffix}", e.g.
// "2025-pirelli-gp-du-canada-race". Two fetches of the same session always
// produce the same slug, which is exactly what makes it usable as the events
// table upsert key: re-ingesting a calendar updates rows instead of
// duplicating them.
func Slug(meetingName string, t SessionType, startTime int64) string {
	year := time.Unix(startTime, 0).UTC().Year()

	name := strings.ToLower(meetingName)
	name = formulaOnePattern.ReplaceAllString(name, "")
	name = yearPattern.ReplaceAllString(name, "")
	name = grandPrixPattern.ReplaceAllString(name, "gp")
	name = strings.TrimSpace(name)
	name = whitespaceRun.ReplaceAllString(name, "-")
	name = hyphenRun.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	return fmt.Sprintf("%d-%s-%s", year, name, t.slugSuffix())
}
