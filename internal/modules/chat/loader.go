package chat

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"prestige/internal/backend"
	"prestige/internal/modules/entity"
	"prestige/internal/modules/session"
	"prestige/internal/modules/snapshot"
	"prestige/internal/types"
)

// Fetcher is the subset of the backend client the loader needs.
type Fetcher interface {
	FetchProfile(ctx context.Context, token string) (entity.RawProfile, error)
	FetchEvents(ctx context.Context, token string) (backend.Listing[entity.RawEvent], error)
	FetchTransactions(ctx context.Context, token string) (backend.Listing[entity.RawTransaction], error)
}

// WorldLoader fetches, normalizes and snapshots an identity's world. It
// implements session.Loader.
type WorldLoader struct {
	fetcher      Fetcher
	store        session.Store
	storeTTL     time.Duration
	contextLimit int
	now          func() time.Time
}

type LoaderOptions struct {
	// Store is optional.
	Store        session.Store
	StoreTTL     time.Duration
	ContextLimit int
	Now          func() time.Time
}

func NewWorldLoader(f Fetcher, opts LoaderOptions) *WorldLoader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StoreTTL <= 0 {
		opts.StoreTTL = session.DefaultTTL
	}
	return &WorldLoader{
		fetcher:      f,
		store:        opts.Store,
		storeTTL:     opts.StoreTTL,
		contextLimit: opts.ContextLimit,
		now:          opts.Now,
	}
}

// Load never fails on upstream errors: it logs them, keeps whatever was
// fetched and marks the world degraded.
func (l *WorldLoader) Load(ctx context.Context, id types.Identity) (session.World, error) {
	key := string(id.ID)

	if l.store != nil {
		d, ok, err := l.store.Load(ctx, key)
		if err != nil {
			log.Printf("session store load failed for %s: %v", key, err)
		}
		if ok && l.now().Sub(d.FetchedAt) < l.storeTTL {
			return l.derive(d, false), nil
		}
	}

	d, degraded := l.fetch(ctx, id)
	if l.store != nil && !degraded {
		if err := l.store.Save(ctx, key, d, l.storeTTL); err != nil {
			log.Printf("session store save failed for %s: %v", key, err)
		}
	}
	return l.derive(d, degraded), nil
}

func (l *WorldLoader) fetch(ctx context.Context, id types.Identity) (session.Data, bool) {
	degraded := false
	fetchedAt := l.now()

	rawProfile, err := l.fetcher.FetchProfile(ctx, id.Token)
	if err != nil {
		log.Printf("profile fetch failed for %s: %v", id.ID, err)
		degraded = true
	}
	profile := entity.NormalizeProfile(rawProfile, string(id.ID))
	if profile.Username == "" {
		profile.Username = id.Username
	}
	if profile.Role == "" && id.Role != "" {
		profile.Role = entity.Role(id.Role)
	}
	me := profile.Viewer()

	// Partial listings are still useful, so neither fetch cancels the other.
	var (
		g         errgroup.Group
		events    backend.Listing[entity.RawEvent]
		txns      backend.Listing[entity.RawTransaction]
		eventsErr error
		txnsErr   error
	)
	g.Go(func() error {
		events, eventsErr = l.fetcher.FetchEvents(ctx, id.Token)
		return nil
	})
	g.Go(func() error {
		txns, txnsErr = l.fetcher.FetchTransactions(ctx, id.Token)
		return nil
	})
	_ = g.Wait()

	if eventsErr != nil {
		log.Printf("events fetch failed for %s (kept %d): %v", id.ID, len(events.Records), eventsErr)
		degraded = true
	}
	if txnsErr != nil {
		log.Printf("transactions fetch failed for %s (kept %d): %v", id.ID, len(txns.Records), txnsErr)
		degraded = true
	}
	if events.Truncated {
		log.Printf("events listing for %s truncated at page ceiling (%d records)", id.ID, len(events.Records))
	}
	if txns.Truncated {
		log.Printf("transactions listing for %s truncated at page ceiling (%d records)", id.ID, len(txns.Records))
	}

	d := session.Data{
		Profile:               profile,
		Events:                make([]entity.Event, 0, len(events.Records)),
		Transactions:          make([]entity.Transaction, 0, len(txns.Records)),
		EventsTruncated:       events.Truncated,
		TransactionsTruncated: txns.Truncated,
		FetchedAt:             fetchedAt,
	}
	for _, raw := range events.Records {
		d.Events = append(d.Events, entity.NormalizeEvent(raw, me))
	}
	d.Events = entity.DedupEvents(d.Events)
	for _, raw := range txns.Records {
		d.Transactions = append(d.Transactions, entity.NormalizeTransaction(raw))
	}
	return d, degraded
}

func (l *WorldLoader) derive(d session.Data, degraded bool) session.World {
	snap := snapshot.Build(snapshot.Input{
		Profile:               d.Profile,
		Events:                d.Events,
		Transactions:          d.Transactions,
		Now:                   l.now(),
		ContextLimit:          l.contextLimit,
		EventsTruncated:       d.EventsTruncated,
		TransactionsTruncated: d.TransactionsTruncated,
	})
	truncated := d.EventsTruncated || d.TransactionsTruncated
	return session.World{Data: d, Snapshot: snap, Degraded: degraded || truncated}
}
