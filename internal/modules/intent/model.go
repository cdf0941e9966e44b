// README: Intent tags and classification result.
package intent

import "time"

type Intent string

const (
	UpcomingEvents Intent = "upcoming"
	MyRsvps        Intent = "my-rsvps"
	MyOrganizing   Intent = "organizing"
	General        Intent = "general"
)

const (
	// DefaultLimit is used when the message names no result count.
	DefaultLimit = 3
	// MaxLimit is the largest count ParseLimit accepts.
	MaxLimit = 20
)

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies inside the window, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

type Result struct {
	Intent Intent `json:"intent"`
	Limit  int    `json:"limit"`
	// Range is nil when the message carries no date hint.
	Range *DateRange `json:"range,omitempty"`
}
