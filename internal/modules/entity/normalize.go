// README: Entity normalizer; maps raw upstream records onto canonical shapes using ordered field-priority lists.
package entity

import (
	"strings"

	"github.com/tidwall/gjson"
)

const untitledEvent = "Untitled event"

// Field priority lists, first present non-null value wins.
var (
	eventIDFields          = []string{"id", "_id", "eventId", "uuid"}
	eventNameFields        = []string{"name", "title"}
	eventDescriptionFields = []string{"description", "eventDescription", "longDescription", "details", "summary", "desc"}
	eventLocationFields    = []string{"location", "where"}
	eventStartFields       = []string{"startTime", "start_time"}
	eventEndFields         = []string{"endTime", "end_time"}
	eventGuestsCountFields = []string{"guestsCount", "guests_count", "numGuests"}
	eventPublishedFields   = []string{"published", "isPublished", "is_published"}
	eventRegisteredFields  = []string{"meRsvped", "rsvped", "isRsvped", "registered"}
	eventOrganizerLists    = []string{"organizers", "organiser"}
	eventOwnerFields       = []string{"ownerId", "createdBy", "owner"}

	guestRefFields     = []string{"id", "userId", "utorid", "email"}
	organizerRefFields = []string{"id", "userId", "_id", "user.id", "user._id"}
	nestedIDFields     = []string{"id", "_id"}

	txIDFields      = []string{"id", "_id", "uuid"}
	txPointsFields  = []string{"points", "amount"}
	txTypeFields    = []string{"type", "kind"}
	txCreatedFields = []string{"createdAt", "time", "date"}
	txNoteFields    = []string{"note", "reason"}
	txEventFields   = []string{"eventId", "event.id"}

	profileIDFields       = []string{"id", "_id"}
	profileNameFields     = []string{"name", "fullName", "displayName"}
	profileUsernameFields = []string{"utorid", "utorId", "username"}
	profilePointsFields   = []string{"points", "balance"}
)

// parse returns the record as a JSON object; anything else (invalid JSON,
// arrays, scalars) is treated as an empty object.
func parse(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return gjson.Result{}
	}
	return doc
}

func first(doc gjson.Result, fields []string) gjson.Result {
	for _, f := range fields {
		if r := doc.Get(f); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func firstString(doc gjson.Result, fields []string) string {
	r := first(doc, fields)
	if !r.Exists() || r.IsObject() || r.IsArray() {
		return ""
	}
	return r.String()
}

func intPtr(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	n := int(r.Int())
	return &n
}

// ref reduces a scalar or an object carrying an id-like field to a string reference.
func ref(r gjson.Result, fields []string) string {
	if r.IsObject() {
		return firstString(r, fields)
	}
	if r.IsArray() || !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

// IsViewer reports whether v names the viewer by id or username, ignoring case.
func IsViewer(v string, me Viewer) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return false
	}
	return (me.ID != "" && v == strings.ToLower(me.ID)) ||
		(me.Username != "" && v == strings.ToLower(me.Username))
}

// NormalizeEvent never fails: missing or malformed fields fall back to zero values.
func NormalizeEvent(raw RawEvent, me Viewer) Event {
	doc := parse(raw)

	ev := Event{
		ID:          firstString(doc, eventIDFields),
		Name:        firstString(doc, eventNameFields),
		Description: firstString(doc, eventDescriptionFields),
		Location:    firstString(doc, eventLocationFields),
		Start:       parseTime(first(doc, eventStartFields)),
		End:         parseTime(first(doc, eventEndFields)),
		Capacity:    intPtr(doc.Get("capacity")),
		Published:   first(doc, eventPublishedFields).Bool(),
		OwnerID:     ref(first(doc, eventOwnerFields), nestedIDFields),
		Organizers:  []string{},
	}
	if ev.Name == "" {
		ev.Name = untitledEvent
	}

	guests := doc.Get("guests")
	ev.GuestsCount = intPtr(first(doc, eventGuestsCountFields))
	if ev.GuestsCount == nil && guests.IsArray() {
		n := len(guests.Array())
		ev.GuestsCount = &n
	}

	for _, f := range eventRegisteredFields {
		if doc.Get(f).Bool() {
			ev.Registered = true
			break
		}
	}
	if !ev.Registered && guests.IsArray() {
		for _, g := range guests.Array() {
			if IsViewer(ref(g, guestRefFields), me) {
				ev.Registered = true
				break
			}
		}
	}

	for _, f := range eventOrganizerLists {
		list := doc.Get(f)
		if !list.IsArray() {
			continue
		}
		for _, o := range list.Array() {
			if id := ref(o, organizerRefFields); id != "" {
				ev.Organizers = append(ev.Organizers, id)
			}
		}
		break
	}
	return ev
}

func NormalizeTransaction(raw RawTransaction) Transaction {
	doc := parse(raw)
	return Transaction{
		ID:        firstString(doc, txIDFields),
		Points:    first(doc, txPointsFields).Int(),
		Type:      firstString(doc, txTypeFields),
		CreatedAt: parseTime(first(doc, txCreatedFields)),
		Note:      firstString(doc, txNoteFields),
		EventID:   ref(first(doc, txEventFields), nestedIDFields),
	}
}

// NormalizeProfile maps the /users/me payload. fallbackID is used when the
// payload carries no id (including when the fetch failed and raw is nil).
func NormalizeProfile(raw RawProfile, fallbackID string) Profile {
	doc := parse(raw)
	p := Profile{
		ID:       firstString(doc, profileIDFields),
		Name:     firstString(doc, profileNameFields),
		Username: firstString(doc, profileUsernameFields),
		Role:     Role(firstString(doc, []string{"role"})),
	}
	if p.ID == "" {
		p.ID = fallbackID
	}
	if r := first(doc, profilePointsFields); r.Type == gjson.Number {
		n := r.Int()
		p.Points = &n
	}
	return p
}
