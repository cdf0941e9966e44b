// README: Parameter extraction (result count, date hint) from message text.
package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	limitAfterKeyword = regexp.MustCompile(`(?i)(?:top|first|next)\s+(\d{1,2})\b`)
	limitBeforeEvents = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:events?)\b`)

	todayHint    = regexp.MustCompile(`\btoday\b`)
	tomorrowHint = regexp.MustCompile(`\btomorrow\b`)
	thisWeekHint = regexp.MustCompile(`\bthis week\b`)
)

// ParseLimit extracts "top/first/next N" or "N events". Only the first
// matching form is considered; N outside [1, MaxLimit] yields false.
func ParseLimit(text string) (int, bool) {
	m := limitAfterKeyword.FindStringSubmatch(text)
	if m == nil {
		m = limitBeforeEvents.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > MaxLimit {
		return 0, false
	}
	return n, true
}

// ParseDateRange maps "today", "tomorrow" and "this week" to a day-aligned
// window in now's location. Weeks start on Monday.
func ParseDateRange(text string, now time.Time) *DateRange {
	t := strings.ToLower(text)
	switch {
	case todayHint.MatchString(t):
		return dayRange(now, 0, 0)
	case tomorrowHint.MatchString(t):
		return dayRange(now, 1, 1)
	case thisWeekHint.MatchString(t):
		back := (int(now.Weekday()) + 6) % 7
		return dayRange(now, -back, 6-back)
	}
	return nil
}

func dayRange(now time.Time, fromDays, toDays int) *DateRange {
	y, m, d := now.Date()
	loc := now.Location()
	return &DateRange{
		Start: time.Date(y, m, d+fromDays, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+toDays, 23, 59, 59, 999_000_000, loc),
	}
}
