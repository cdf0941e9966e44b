// README: Per-identity session cache (lazy TTL refresh, single-flight loads, LRU and idle eviction, history).
package session

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"prestige/internal/ai"
	"prestige/internal/types"
)

var ErrNoIdentity = errors.New("session: identity has no id")

// Loader fetches and derives the world for an identity. Implementations
// degrade on upstream failure rather than erroring where they can.
type Loader interface {
	Load(ctx context.Context, id types.Identity) (World, error)
}

type Options struct {
	TTL            time.Duration
	HistoryPairs   int
	MaxEntries     int
	RefreshTimeout time.Duration
	// Now is the clock used for TTL and idle decisions.
	Now func() time.Time
}

type entry struct {
	key   string
	state *State
}

type Cache struct {
	loader Loader
	opts   Options
	group  singleflight.Group

	mu      sync.Mutex
	lru     *list.List
	entries map[string]*list.Element
}

func NewCache(loader Loader, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HistoryPairs <= 0 {
		opts.HistoryPairs = DefaultHistoryPairs
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		loader:  loader,
		opts:    opts,
		lru:     list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *Cache) TTL() time.Duration {
	return c.opts.TTL
}

// Ensure returns a fresh world for the identity, refreshing it through the
// loader when missing or older than the TTL. Concurrent callers for the same
// identity share one refresh. The refresh itself is detached from ctx so a
// caller giving up does not fail the other waiters.
func (c *Cache) Ensure(ctx context.Context, id types.Identity) (World, error) {
	key := string(id.ID)
	if key == "" {
		return World{}, ErrNoIdentity
	}

	c.mu.Lock()
	st := c.touchLocked(key)
	if st.Refreshed && c.opts.Now().Sub(st.RefreshedAt) < c.opts.TTL {
		w := st.World
		c.mu.Unlock()
		return w, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		started := c.opts.Now()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.RefreshTimeout)
		defer cancel()

		w, err := c.loader.Load(rctx, id)
		if err != nil {
			return World{}, fmt.Errorf("session: refresh %s: %w", key, err)
		}
		c.install(key, w, started)
		return w, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return World{}, res.Err
		}
		return res.Val.(World), nil
	case <-ctx.Done():
		return World{}, ctx.Err()
	}
}

// install replaces the world unless a newer refresh already landed. The
// world ages from its FetchedAt when that predates the refresh, so data
// served from a shared store is not kept beyond its original TTL.
func (c *Cache) install(key string, w World, started time.Time) {
	refreshedAt := started
	if !w.FetchedAt.IsZero() && w.FetchedAt.Before(started) {
		refreshedAt = w.FetchedAt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.touchLocked(key)
	if st.Refreshed && st.RefreshedAt.After(refreshedAt) {
		return
	}
	st.World = w
	st.Refreshed = true
	st.RefreshedAt = refreshedAt
}

// touchLocked returns the state for key, creating it if needed, and marks it
// most recently used. Caller holds c.mu.
func (c *Cache) touchLocked(key string) *State {
	now := c.opts.Now()
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		st := el.Value.(*entry).state
		st.LastAccess = now
		return st
	}
	st := &State{LastAccess: now}
	c.entries[key] = c.lru.PushFront(&entry{key: key, state: st})
	for c.lru.Len() > c.opts.MaxEntries {
		c.removeLocked(c.lru.Back())
	}
	return st
}

func (c *Cache) removeLocked(el *list.Element) {
	c.lru.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

// History returns a copy of the conversation history for the identity.
func (c *Cache) History(id types.Identity) []ai.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[string(id.ID)]
	if !ok {
		return nil
	}
	h := el.Value.(*entry).state.History
	return append([]ai.Message(nil), h...)
}

// AppendExchange records one user/model pair, trimming the oldest entries
// beyond the configured number of pairs.
func (c *Cache) AppendExchange(id types.Identity, user, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.touchLocked(string(id.ID))

	h := make([]ai.Message, 0, len(st.History)+2)
	h = append(h, st.History...)
	h = append(h,
		ai.Message{Role: ai.RoleUser, Content: bound(user)},
		ai.Message{Role: ai.RoleModel, Content: bound(model)},
	)
	if limit := 2 * c.opts.HistoryPairs; len(h) > limit {
		h = h[len(h)-limit:]
	}
	st.History = h
}

// Invalidate forces the next Ensure for the identity to refresh. History is kept.
func (c *Cache) Invalidate(id types.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[string(id.ID)]; ok {
		el.Value.(*entry).state.Refreshed = false
	}
}

// Sweep drops sessions not accessed within idle and reports how many went.
func (c *Cache) Sweep(idle time.Duration) int {
	cutoff := c.opts.Now().Add(-idle)
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry).state.LastAccess.After(cutoff) {
			// Everything in front of this entry was touched later.
			break
		}
		c.removeLocked(el)
		removed++
		el = prev
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func bound(s string) string {
	r := []rune(s)
	if len(r) <= MaxEntryChars {
		return s
	}
	return string(r[:MaxEntryChars])
}
