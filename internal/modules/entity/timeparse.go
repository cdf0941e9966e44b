package entity

import (
	"time"

	"github.com/tidwall/gjson"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC3339 strings, zone-less datetimes (read as local
// time) and epoch milliseconds. Anything else is treated as absent.
func parseTime(r gjson.Result) *time.Time {
	switch r.Type {
	case gjson.Number:
		t := time.UnixMilli(r.Int()).UTC()
		return &t
	case gjson.String:
		s := r.String()
		for _, layout := range timeLayouts {
			var (
				t   time.Time
				err error
			)
			if layout == time.RFC3339Nano {
				t, err = time.Parse(layout, s)
			} else {
				t, err = time.ParseInLocation(layout, s, time.Local)
			}
			if err == nil {
				return &t
			}
		}
	}
	return nil
}
