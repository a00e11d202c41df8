package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimezone turns a user-supplied timezone token of the form
// "[utc|gmt]±H[:MM]" into an offset in minutes. Hours run -12..+14 and
// minutes 0..59; anything outside that, or unparseable, returns (0, false)
// and callers fall back to a relative countdown. A bare "utc" or "gmt" is
// offset zero.
func ParseTimezone(token string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(token))
	if lower == "" {
		return 0, false
	}
	for _, prefix := range []string{"utc", "gmt"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if rest == "" {
				return 0, true
			}
			return parseOffset(rest)
		}
	}
	return parseOffset(lower)
}

func parseOffset(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	default:
		return 0, false
	}

	hoursText, minutesText, hasMinutes := strings.Cut(s, ":")
	hours, err := strconv.Atoi(hoursText)
	if err != nil || hours < 0 {
		return 0, false
	}
	if (sign > 0 && hours > 14) || (sign < 0 && hours > 12) {
		return 0, false
	}
	minutes := 0
	if hasMinutes {
		minutes, err = strconv.Atoi(minutesText)
		if err != nil || minutes < 0 || minutes > 59 {
			return 0, false
		}
	}
	return sign * (hours*60 + minutes), true
}

// FormatOffset renders a minute offset as "UTC±HH:MM".
func FormatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}

// TimeString renders an event start either as a local absolute time (when an
// offset is supplied) or as a relative countdown.
func TimeString(start time.Time, now time.Time, offset int, haveOffset bool) string {
	if haveOffset {
		local := start.UTC().Add(time.Duration(offset) * time.Minute)
		return fmt.Sprintf("starts on %s at %s %s",
			local.Format("Monday, January 2"), local.Format("15:04"), FormatOffset(offset))
	}
	return fmt.Sprintf("begins in %s", FormatDuration(start.Sub(now)))
}

// FormatDuration renders a countdown as days, hours and minutes joined with
// " and ", omitting zero units. Non-positive durations render as "0 seconds".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, " and ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
