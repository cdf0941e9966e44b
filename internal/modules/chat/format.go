package chat

import (
	"fmt"
	"strings"
	"time"

	"prestige/internal/modules/entity"
	"prestige/internal/modules/intent"
)

// formatEvents renders one bullet line per event, such as
// "• Name — Oct 20 6:00 PM–8:00 PM @ Location (12/50)".
func formatEvents(events []entity.Event, loc *time.Location) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		var b strings.Builder
		b.WriteString("• ")
		b.WriteString(e.Name)
		if when := timeRange(e, loc); when != "" {
			b.WriteString(" — ")
			b.WriteString(when)
		}
		if e.Location != "" {
			b.WriteString(" @ ")
			b.WriteString(e.Location)
		}
		if e.GuestsCount != nil && e.Capacity != nil {
			fmt.Fprintf(&b, " (%d/%d)", *e.GuestsCount, *e.Capacity)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func timeRange(e entity.Event, loc *time.Location) string {
	if e.Start == nil {
		return ""
	}
	s := e.Start.In(loc)
	out := s.Format("Jan 2") + " " + s.Format("3:04 PM")
	if e.End != nil {
		out += "–" + e.End.In(loc).Format("3:04 PM")
	}
	return out
}

func inPeriod(r *intent.DateRange) string {
	if r == nil {
		return ""
	}
	return " in that period"
}

func upcomingReply(top []entity.Event, r *intent.DateRange, loc *time.Location) string {
	if len(top) == 0 {
		return "I couldn't find any upcoming events" + inPeriod(r) + "."
	}
	return fmt.Sprintf("Here are the next %d upcoming events:\n%s", len(top), formatEvents(top, loc))
}

func rsvpReply(top []entity.Event, r *intent.DateRange, loc *time.Location) string {
	if len(top) == 0 {
		return "You have no upcoming RSVP’d events" + inPeriod(r) + "."
	}
	return fmt.Sprintf("Your next %d RSVP’d events:\n%s", len(top), formatEvents(top, loc))
}

func organizingReply(top []entity.Event, loc *time.Location) string {
	if len(top) == 0 {
		return "You are not listed as an organizer for any events."
	}
	return fmt.Sprintf("You’re organizing %d event(s):\n%s", len(top), formatEvents(top, loc))
}
