// README: Canonical profile, event and transaction shapes plus the raw upstream records they come from.
package entity

import (
	"encoding/json"
	"time"
)

// Raw records are the upstream JSON objects as received. Field naming
// varies across backend versions; only this package reads them.
type (
	RawProfile     json.RawMessage
	RawEvent       json.RawMessage
	RawTransaction json.RawMessage
)

type Role string

const (
	RoleRegular   Role = "regular"
	RoleCashier   Role = "cashier"
	RoleManager   Role = "manager"
	RoleSuperuser Role = "superuser"
)

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Points   *int64 `json:"points"`
}

// Viewer is the subset of a profile used to recognise the current user
// inside guest and organizer lists.
type Viewer struct {
	ID       string
	Username string
}

func (p Profile) Viewer() Viewer {
	return Viewer{ID: p.ID, Username: p.Username}
}

type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Start       *time.Time `json:"startTime"`
	End         *time.Time `json:"endTime"`
	Capacity    *int       `json:"capacity"`
	GuestsCount *int       `json:"guestsCount"`
	Published   bool       `json:"published"`
	Registered  bool       `json:"meRsvped"`
	Organizers  []string   `json:"organizers"`
	OwnerID     string     `json:"ownerId"`
}

type Transaction struct {
	ID        string     `json:"id"`
	Points    int64      `json:"points"`
	Type      string     `json:"type"`
	CreatedAt *time.Time `json:"createdAt"`
	Note      string     `json:"note"`
	EventID   string     `json:"eventId"`
}

// DedupEvents keeps the first occurrence of every event id. Events
// without an id are always kept.
func DedupEvents(events []Event) []Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.ID != "" {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}
