// README: Session state model (per-identity world data, derived snapshot, bounded conversation history).
package session

import (
	"time"

	"prestige/internal/ai"
	"prestige/internal/modules/entity"
	"prestige/internal/modules/snapshot"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultHistoryPairs = 6
	DefaultMaxEntries   = 10000
	DefaultIdle         = time.Hour
	// MaxEntryChars bounds a single history entry.
	MaxEntryChars = 4000
)

// Data is the canonical fetched world for one identity. It is what the L2
// store persists; the snapshot is always rebuilt from it.
type Data struct {
	Profile               entity.Profile       `json:"profile"`
	Events                []entity.Event       `json:"events"`
	Transactions          []entity.Transaction `json:"transactions"`
	EventsTruncated       bool                 `json:"eventsTruncated,omitempty"`
	TransactionsTruncated bool                 `json:"transactionsTruncated,omitempty"`
	// FetchedAt is when the upstream fetch began. Freshness is measured
	// from it, including for data read back from the L2 store.
	FetchedAt time.Time `json:"fetchedAt"`
}

// World is Data plus everything derived from it at refresh time.
type World struct {
	Data
	Snapshot *snapshot.Snapshot
	// Degraded is set when any upstream fetch failed during the refresh.
	Degraded bool
}

// State is owned by Cache. Lists are replaced wholesale on refresh and
// never mutated in place.
type State struct {
	World
	Refreshed   bool
	RefreshedAt time.Time
	LastAccess  time.Time
	History     []ai.Message
}
