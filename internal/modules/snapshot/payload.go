package snapshot

import (
	"encoding/json"
	"time"

	"prestige/internal/modules/entity"
)

// PayloadPrefix marks the grounding block for the completion service.
const PayloadPrefix = "DATA_SNAPSHOT:\n"

type userSummary struct {
	ID       *string `json:"id"`
	Name     *string `json:"name"`
	Username *string `json:"utorid"`
	Role     *string `json:"role"`
	Points   *int64  `json:"points"`
}

type eventView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Capacity    *int       `json:"capacity"`
	GuestsCount *int       `json:"guestsCount"`
	Published   bool       `json:"published"`
	Registered  bool       `json:"meRsvped"`
}

type transactionView struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Points    int64      `json:"points"`
	CreatedAt *time.Time `json:"createdAt"`
	Note      string     `json:"note"`
	EventID   *string    `json:"eventId"`
}

type payload struct {
	User         userSummary       `json:"user"`
	Counts       Counts            `json:"counts"`
	RSVPs        []eventView       `json:"rsvps"`
	Organizing   []eventView       `json:"organizing"`
	Upcoming     []eventView       `json:"upcoming"`
	Past         []eventView       `json:"past"`
	Transactions []transactionView `json:"transactions"`
}

func render(p entity.Profile, s *Snapshot, txns []entity.Transaction, limit int) string {
	doc := payload{
		User: userSummary{
			ID:       nullable(p.ID),
			Name:     nullable(p.Name),
			Username: nullable(p.Username),
			Role:     nullable(string(p.Role)),
			Points:   p.Points,
		},
		Counts:       s.Counts,
		RSVPs:        eventViews(s.RSVPs, limit),
		Organizing:   eventViews(s.Organizing, limit),
		Upcoming:     eventViews(s.Upcoming, limit),
		Past:         eventViews(s.Past, limit),
		Transactions: transactionViews(txns, limit),
	}
	// Only plain structs, slices and pointers are encoded; Marshal cannot fail.
	b, _ := json.MarshalIndent(doc, "", "  ")
	return PayloadPrefix + string(b)
}

func eventViews(events []entity.Event, limit int) []eventView {
	events = capped(events, limit)
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			ID:          e.ID,
			Name:        e.Name,
			Location:    e.Location,
			StartTime:   e.Start,
			EndTime:     e.End,
			Capacity:    e.Capacity,
			GuestsCount: e.GuestsCount,
			Published:   e.Published,
			Registered:  e.Registered,
		})
	}
	return out
}

func transactionViews(txns []entity.Transaction, limit int) []transactionView {
	txns = capped(txns, limit)
	out := make([]transactionView, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionView{
			ID:        t.ID,
			Type:      t.Type,
			Points:    t.Points,
			CreatedAt: t.CreatedAt,
			Note:      t.Note,
			EventID:   nullable(t.EventID),
		})
	}
	return out
}

func capped[T any](list []T, limit int) []T {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
