// README: Snapshot builder; partitions and sorts events, derives per-intent views and the grounding payload.
package snapshot

import (
	"sort"
	"time"

	"prestige/internal/modules/entity"
)

// DefaultContextLimit caps every list included in the payload.
const DefaultContextLimit = 200

type Input struct {
	Profile      entity.Profile
	Events       []entity.Event
	Transactions []entity.Transaction
	Now          time.Time
	// ContextLimit <= 0 means DefaultContextLimit.
	ContextLimit int
	// EventsTruncated and TransactionsTruncated are set when the
	// corresponding pager hit its page ceiling.
	EventsTruncated       bool
	TransactionsTruncated bool
}

type Counts struct {
	TotalEvents           int  `json:"totalEvents"`
	Upcoming              int  `json:"upcoming"`
	Past                  int  `json:"past"`
	RSVPs                 int  `json:"rsvps"`
	Organizing            int  `json:"organizing"`
	Transactions          int  `json:"transactions"`
	EventsTruncated       bool `json:"eventsTruncated,omitempty"`
	TransactionsTruncated bool `json:"transactionsTruncated,omitempty"`
}

// Snapshot holds the uncapped derived views and the capped, serialized payload.
// It is never mutated after Build returns.
type Snapshot struct {
	BuiltAt    time.Time
	Upcoming   []entity.Event
	Past       []entity.Event
	RSVPs      []entity.Event
	Organizing []entity.Event
	Counts     Counts
	Payload    string
}

// Build is deterministic: identical inputs (including Now) yield a
// byte-identical payload.
func Build(in Input) *Snapshot {
	limit := in.ContextLimit
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	events := entity.DedupEvents(in.Events)
	upcoming, past := Split(events, in.Now)
	rsvps := Registered(events)
	organizing := OrganizedBy(events, in.Profile)

	s := &Snapshot{
		BuiltAt:    in.Now,
		Upcoming:   upcoming,
		Past:       past,
		RSVPs:      rsvps,
		Organizing: organizing,
		Counts: Counts{
			TotalEvents:           len(events),
			Upcoming:              len(upcoming),
			Past:                  len(past),
			RSVPs:                 len(rsvps),
			Organizing:            len(organizing),
			Transactions:          len(in.Transactions),
			EventsTruncated:       in.EventsTruncated,
			TransactionsTruncated: in.TransactionsTruncated,
		},
	}
	s.Payload = render(in.Profile, s, in.Transactions, limit)
	return s
}

// IsUpcoming: starts at or after now, or has no start but ends at or after
// now, or is in progress.
func IsUpcoming(e entity.Event, now time.Time) bool {
	switch {
	case e.Start != nil && !e.Start.Before(now):
		return true
	case e.Start == nil && e.End != nil && !e.End.Before(now):
		return true
	case e.Start != nil && e.End != nil && e.Start.Before(now) && !e.End.Before(now):
		return true
	}
	return false
}

// Split partitions events into upcoming (ascending by start, then end,
// undated last) and past (descending by end, then start, undated last).
func Split(events []entity.Event, now time.Time) (upcoming, past []entity.Event) {
	upcoming = make([]entity.Event, 0, len(events))
	past = make([]entity.Event, 0)
	for _, e := range events {
		if IsUpcoming(e, now) {
			upcoming = append(upcoming, e)
		} else {
			past = append(past, e)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return ascendingKeyLess(upcoming[i], upcoming[j])
	})
	sort.SliceStable(past, func(i, j int) bool {
		return pastKey(past[i]).After(pastKey(past[j]))
	})
	return upcoming, past
}

// ascendingKeyLess orders by start, falling back to end; events with
// neither sort as if infinitely far in the future.
func ascendingKeyLess(a, b entity.Event) bool {
	ka, okA := firstTime(a.Start, a.End)
	kb, okB := firstTime(b.Start, b.End)
	switch {
	case !okA:
		return false
	case !okB:
		return true
	}
	return ka.Before(kb)
}

func pastKey(e entity.Event) time.Time {
	if k, ok := firstTime(e.End, e.Start); ok {
		return k
	}
	return time.UnixMilli(0)
}

func firstTime(ts ...*time.Time) (time.Time, bool) {
	for _, t := range ts {
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

// Registered keeps the original event order.
func Registered(events []entity.Event) []entity.Event {
	out := make([]entity.Event, 0)
	for _, e := range events {
		if e.Registered {
			out = append(out, e)
		}
	}
	return out
}

// OrganizedBy returns events owned by the profile or listing it as an organizer.
func OrganizedBy(events []entity.Event, p entity.Profile) []entity.Event {
	out := make([]entity.Event, 0)
	if p.ID == "" {
		return out
	}
	for _, e := range events {
		if e.OwnerID == p.ID || contains(e.Organizers, p.ID) {
			out = append(out, e)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
