package chat

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"prestige/internal/modules/entity"
	"prestige/internal/modules/session"
)

func TestWorldLoader_NormalizesAndDedups(t *testing.T) {
	f := &fakeFetcher{
		profile: `{"_id": "42", "fullName": "Jo Smith", "utorId": "smithj", "role": "manager", "balance": 120}`,
		events: []string{
			`{"id": 1, "name": "A", "startTime": "2026-10-16T18:00:00Z"}`,
			`{"id": 1, "name": "A again", "startTime": "2026-10-16T18:00:00Z"}`,
		},
		txns: []string{`{"id": "t1", "amount": 25, "kind": "earn"}`},
	}
	w, err := NewWorldLoader(f, LoaderOptions{Now: func() time.Time { return testNow }}).Load(context.Background(), jo)
	if err != nil {
		t.Fatal(err)
	}
	if w.Profile.Name != "Jo Smith" || w.Profile.Role != entity.RoleManager || *w.Profile.Points != 120 {
		t.Errorf("unexpected profile %+v", w.Profile)
	}
	if len(w.Events) != 1 || w.Snapshot.Counts.TotalEvents != 1 {
		t.Errorf("duplicate events must collapse, got %d", len(w.Events))
	}
	if len(w.Transactions) != 1 || w.Transactions[0].Points != 25 {
		t.Errorf("unexpected transactions %+v", w.Transactions)
	}
	if w.Degraded {
		t.Error("clean load must not be degraded")
	}
}

func TestWorldLoader_ProfileFailureFallsBackToIdentity(t *testing.T) {
	f := &fakeFetcher{profileErr: errBoom}
	w, err := NewWorldLoader(f, LoaderOptions{}).Load(context.Background(), jo)
	if err != nil {
		t.Fatal(err)
	}
	if w.Profile.ID != "42" || w.Profile.Username != "smithj" || w.Profile.Role != entity.RoleRegular {
		t.Errorf("expected identity fallback, got %+v", w.Profile)
	}
	if !w.Degraded {
		t.Error("expected degraded world")
	}
}

func TestWorldLoader_TruncationIsFlagged(t *testing.T) {
	f := &fakeFetcher{truncated: true, events: []string{`{"id": 1}`}}
	w, _ := NewWorldLoader(f, LoaderOptions{}).Load(context.Background(), jo)
	if !w.EventsTruncated || !w.Snapshot.Counts.EventsTruncated || !w.Degraded {
		t.Errorf("truncation must reach counts and the degraded flag: %+v", w.Snapshot.Counts)
	}
}

func TestWorldLoader_UsesStore(t *testing.T) {
	store := &memStore{}
	f := &fakeFetcher{profile: `{"id": 42}`, events: []string{`{"id": 1, "name": "A"}`}}
	l := NewWorldLoader(f, LoaderOptions{Store: store})

	if _, err := l.Load(context.Background(), jo); err != nil {
		t.Fatal(err)
	}
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
	before := atomic.LoadInt32(&f.calls)
	w, _ := l.Load(context.Background(), jo)
	if atomic.LoadInt32(&f.calls) != before {
		t.Error("store hit must not refetch")
	}
	if len(w.Events) != 1 || w.Snapshot == nil {
		t.Errorf("store hit must rebuild the snapshot: %+v", w)
	}

	// Degraded fetches are not shared with other instances.
	degraded := &memStore{}
	_, _ = NewWorldLoader(&fakeFetcher{profileErr: errBoom}, LoaderOptions{Store: degraded}).Load(context.Background(), jo)
	if degraded.saves != 0 {
		t.Error("degraded world must not be saved")
	}
}

// Two instances share one store: the second must not keep the first one's
// fetch for longer than a TTL from when it was fetched.
func TestWorldLoader_SharedStoreRespectsTTL(t *testing.T) {
	const ttl = 5 * time.Minute
	clock := &testClock{now: testNow}
	store := &expiringStore{now: clock.Now}
	newInstance := func(f *fakeFetcher) *session.Cache {
		l := NewWorldLoader(f, LoaderOptions{Store: store, StoreTTL: ttl, Now: clock.Now})
		return session.NewCache(l, session.Options{TTL: ttl, Now: clock.Now})
	}
	ctx := context.Background()

	a := newInstance(&fakeFetcher{profile: `{"id": 42}`, events: []string{`{"id": 1, "name": "Old"}`}})
	if _, err := a.Ensure(ctx, jo); err != nil {
		t.Fatal(err)
	}

	fb := &fakeFetcher{profile: `{"id": 42}`, events: []string{`{"id": 1, "name": "New"}`}}
	b := newInstance(fb)
	clock.Advance(4*time.Minute + 59*time.Second)
	w, _ := b.Ensure(ctx, jo)
	if len(w.Events) != 1 || w.Events[0].Name != "Old" {
		t.Fatalf("expected the shared record, got %+v", w.Events)
	}
	if atomic.LoadInt32(&fb.calls) != 0 {
		t.Fatal("store hit must not refetch")
	}

	clock.Advance(4*time.Minute + 31*time.Second)
	w, _ = b.Ensure(ctx, jo)
	if atomic.LoadInt32(&fb.calls) == 0 {
		t.Fatal("expected an upstream refetch once the original fetch is older than the TTL")
	}
	if w.Events[0].Name != "New" {
		t.Errorf("served stale event %q", w.Events[0].Name)
	}
	if !w.FetchedAt.Equal(clock.Now()) {
		t.Errorf("expected FetchedAt %v, got %v", clock.Now(), w.FetchedAt)
	}
}

func TestWorldLoader_IgnoresExpiredStoreRecord(t *testing.T) {
	store := &memStore{data: map[string]session.Data{"42": {FetchedAt: testNow.Add(-time.Hour)}}}
	f := &fakeFetcher{profile: `{"id": 42}`}
	l := NewWorldLoader(f, LoaderOptions{Store: store, Now: func() time.Time { return testNow }})
	if _, err := l.Load(context.Background(), jo); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&f.calls) == 0 {
		t.Error("a record older than the store TTL must be refetched")
	}
}

func TestWorldLoader_TransactionTruncationIsFlagged(t *testing.T) {
	f := &fakeFetcher{txnsTruncated: true, txns: []string{`{"id": 9, "amount": 5}`}}
	w, _ := NewWorldLoader(f, LoaderOptions{}).Load(context.Background(), jo)
	if !w.TransactionsTruncated || !w.Snapshot.Counts.TransactionsTruncated || !w.Degraded {
		t.Errorf("transaction truncation must reach counts and the degraded flag: %+v", w.Snapshot.Counts)
	}
	if !strings.Contains(w.Snapshot.Payload, `"transactionsTruncated": true`) {
		t.Errorf("expected truncation marker in payload:\n%s", w.Snapshot.Payload)
	}
}
