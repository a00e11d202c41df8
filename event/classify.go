package event

import "strings"

// summaryPatterns is an ordered table, not a map: "sprint qualifying" must be
// tested before both "qualifying" and "sprint", and the "practice N"/"fpN"
// variants before the generic terms they contain. Reordering these entries
// changes classification results.
var summaryPatterns = []struct {
	pattern string
	session SessionType
}{
	{"sprint qualifying", SprintQualifying},
	{"qualifying", Qualifying},
	{"practice 1", FreePractice1},
	{"fp1", FreePractice1},
	{"practice 2", FreePractice2},
	{"fp2", FreePractice2},
	{"practice 3", FreePractice3},
	{"fp3", FreePractice3},
	{"sprint", Sprint},
	{"race", Race},
	{"livery", LiveryReveal},
}

// ClassifySummary maps a free-text calendar summary onto a session type.
// Matching is case-insensitive substring search over the ordered pattern
// table; the first hit wins. Returns (0, false) when the text matches no
// tracked session type, which callers treat as "ignore this entry".
func ClassifySummary(summary string) (SessionType, bool) {
	lower := strings.ToLower(summary)
	for _, p := range summaryPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.session, true
		}
	}
	return 0, false
}

// sessionKeys is the controlled vocabulary used by the live-timing API in its
// archive paths. Unlike calendar summaries these are exact keys, so a lookup
// table is safe here.
var sessionKeys = map[string]SessionType{
	"fp1":              FreePractice1,
	"fp2":              FreePractice2,
	"fp3":              FreePractice3,
	"qualifying":       Qualifying,
	"sprint":           Sprint,
	"race":             Race,
	"sprintqualifying": SprintQualifying,
}

// ClassifySessionKey maps a path-derived session key (e.g. "fp2", "race",
// "sprintQualifying") onto a session type. Keys are matched case-insensitively
// but exactly, not by substring.
func ClassifySessionKey(key string) (SessionType, bool) {
	t, ok := sessionKeys[strings.ToLower(key)]
	return t, ok
}

// SessionKeyFromPath extracts the session key from a live-timing archive path
// such as "2025/2025-06-15_Canadian_Grand_Prix/2025-06-15_Race/": the last
// non-empty path segment, then the token after the final underscore.
func SessionKeyFromPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	segments := strings.Split(trimmed, "/")
	last := ""
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			last = segments[i]
			break
		}
	}
	if last == "" {
		return ""
	}
	parts := strings.Split(last, "_")
	return strings.ToLower(parts[len(parts)-1])
}

// commandPatterns covers the looser vocabulary users type at the `when`
// command. Same ordering rule as summaryPatterns: specific before general
// ("sq" before "q", "sprint" after "sq"). Single-letter entries are exact
// shorthands, matched against the whole argument rather than as substrings.
var commandPatterns = []struct {
	pattern string
	session SessionType
}{
	{"fp1", FreePractice1},
	{"practice1", FreePractice1},
	{"p1", FreePractice1},
	{"fp2", FreePractice2},
	{"practice2", FreePractice2},
	{"p2", FreePractice2},
	{"fp3", FreePractice3},
	{"practice3", FreePractice3},
	{"p3", FreePractice3},
	{"sq", SprintQualifying},
	{"quali", Qualifying},
	{"qualifying", Qualifying},
	{"q", Qualifying},
	{"sprint", Sprint},
	{"sprint race", Sprint},
	{"s", Sprint},
	{"race", Race},
	{"r", Race},
	{"gp", Race},
	{"livery", LiveryReveal},
	{"l", LiveryReveal},
}

// ClassifyCommand maps a user-supplied session argument (from `when`) onto a
// session type. Empty or unrecognized input returns (0, false).
func ClassifyCommand(arg string) (SessionType, bool) {
	if arg == "" {
		return 0, false
	}
	lower := strings.ToLower(arg)
	for _, p := range commandPatterns {
		// Single-letter shorthands only count as the whole argument;
		// matching them as substrings would swallow words like "livery".
		if len(p.pattern) == 1 {
			if lower == p.pattern {
				return p.session, true
			}
			continue
		}
		if strings.Contains(lower, p.pattern) {
			return p.session, true
		}
	}
	return 0, false
}
