package backend

import (
	"github.com/tidwall/gjson"
)

// envelope is a listing response in any of the shapes the backend has used:
// {items|results|<container>: [...], totalPages|total|count} or a bare list.
type envelope struct {
	items      [][]byte
	reported   int
	totalCount int
	hasTotal   bool
}

func parseEnvelope(body []byte, containerKey string) envelope {
	if !gjson.ValidBytes(body) {
		return envelope{}
	}
	doc := gjson.ParseBytes(body)

	list := doc
	if !doc.IsArray() {
		list = gjson.Result{}
		for _, k := range []string{"items", "results", containerKey} {
			if r := doc.Get(k); r.IsArray() {
				list = r
				break
			}
		}
	}

	var env envelope
	for _, item := range list.Array() {
		env.items = append(env.items, []byte(item.Raw))
	}
	if doc.IsObject() {
		env.reported = int(doc.Get("totalPages").Int())
		for _, k := range []string{"total", "count"} {
			if r := doc.Get(k); r.Type == gjson.Number {
				env.totalCount = int(r.Int())
				env.hasTotal = true
				break
			}
		}
	}
	return env
}

// totalPages prefers the reported page count, then derives one from the
// reported item total (or what was fetched so far), never less than 1.
func (e envelope) totalPages(fetched, pageSize int) int {
	if e.reported > 0 {
		return e.reported
	}
	total := fetched
	if e.hasTotal {
		total = e.totalCount
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}
