// README: Rule-based intent classifier over normalized message text.
package intent

import (
	"regexp"
	"strings"
	"time"
)

var (
	curlyApostrophe = strings.NewReplacer("’", "'", "‘", "'")
	rsvpedVariant   = regexp.MustCompile(`rsvp(?:[- ]?e|')d`)
	rsvpTo          = regexp.MustCompile(`\brsvp\b\s*to\b`)
)

// Normalize lower-cases text, unifies apostrophes and folds the RSVP
// spellings ("rsvp'd", "rsvp-ed", "rsvp to") into "rsvped".
func Normalize(text string) string {
	t := strings.ToLower(text)
	t = curlyApostrophe.Replace(t)
	t = rsvpedVariant.ReplaceAllString(t, "rsvped")
	t = rsvpTo.ReplaceAllString(t, "rsvped to")
	return t
}

// Rule maps a predicate over normalized text to an intent.
type Rule struct {
	Intent   Intent
	Patterns []*regexp.Regexp
}

// Match reports whether any of the rule's patterns occurs in t.
func (r Rule) Match(t string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

// Rules are evaluated in order; the first match wins.
var Rules = []Rule{
	{
		Intent: UpcomingEvents,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(upcoming|next|soon)\b.*\bevents?\b`),
			regexp.MustCompile(`\bevents?\b.*\b(upcoming|next|soon|today|tomorrow|this week)\b`),
			regexp.MustCompile(`^events?\b`),
			regexp.MustCompile(`\bwhat'?s on\b`),
		},
	},
	{
		Intent: MyRsvps,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bwhat\b.*\bevents?\b.*\b(am|i)\b.*\b(rsvped|registered|signed up|attending|going)\b`),
			regexp.MustCompile(`\bmy\b.*\b(rsvps?|registrations?|events?)\b`),
			regexp.MustCompile(`\b(show|list|see|display)\b.*\bmy\b.*\b(rsvps?|registrations?|events?)\b`),
		},
	},
	{
		Intent: MyOrganizing,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(what|which)\b.*\bevents?\b.*\b(i|am)\b.*\b(organis(?:e|ing)|organiz(?:e|ing)|hosting|running)\b`),
			regexp.MustCompile(`\bmy\b.*\b(organized|organised|organizing|hosting)\b.*\bevents?\b`),
		},
	},
}

// Detect returns the intent of a message, General when no rule matches.
func Detect(text string) Intent {
	if strings.TrimSpace(text) == "" {
		return General
	}
	t := Normalize(text)
	for _, r := range Rules {
		if r.Match(t) {
			return r.Intent
		}
	}
	return General
}

// Classify detects the intent and extracts the result limit and date hint.
// The limit is already defaulted.
func Classify(text string, now time.Time) Result {
	limit, ok := ParseLimit(text)
	if !ok {
		limit = DefaultLimit
	}
	return Result{
		Intent: Detect(text),
		Limit:  limit,
		Range:  ParseDateRange(text, now),
	}
}
