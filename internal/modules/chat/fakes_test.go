package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"prestige/internal/ai"
	"prestige/internal/backend"
	"prestige/internal/modules/entity"
	"prestige/internal/modules/session"
	"prestige/internal/types"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) // Thursday

type fakeFetcher struct {
	profile   string
	events    []string
	txns      []string
	truncated bool
	// txnsTruncated marks the transaction listing as cut at the page ceiling.
	txnsTruncated bool

	profileErr error
	eventsErr  error

	calls int32
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, token string) (entity.RawProfile, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return entity.RawProfile(f.profile), nil
}

func (f *fakeFetcher) FetchEvents(ctx context.Context, token string) (backend.Listing[entity.RawEvent], error) {
	atomic.AddInt32(&f.calls, 1)
	out := backend.Listing[entity.RawEvent]{Truncated: f.truncated}
	for _, e := range f.events {
		out.Records = append(out.Records, entity.RawEvent(e))
	}
	return out, f.eventsErr
}

func (f *fakeFetcher) FetchTransactions(ctx context.Context, token string) (backend.Listing[entity.RawTransaction], error) {
	atomic.AddInt32(&f.calls, 1)
	out := backend.Listing[entity.RawTransaction]{Truncated: f.txnsTruncated}
	for _, t := range f.txns {
		out.Records = append(out.Records, entity.RawTransaction(t))
	}
	return out, nil
}

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []ai.Request
}

func (c *fakeCompleter) Model() string { return "fake-model" }

func (c *fakeCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	return c.reply, c.err
}

func (c *fakeCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (s *fakeSpeech) Enabled() bool { return true }

func (s *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return s.audio, s.err
}

type fakeQuota struct {
	err error

	mu      sync.Mutex
	used    int
	refunds int
}

func (q *fakeQuota) UseToken(ctx context.Context, uid string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.used++
	return nil
}

func (q *fakeQuota) Refund(ctx context.Context, uid string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.refunds++
	q.used--
	return nil
}

func (q *fakeQuota) balance() (used, refunds int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used, q.refunds
}

type memStore struct {
	data  map[string]session.Data
	saves int
}

func (m *memStore) Load(ctx context.Context, key string) (session.Data, bool, error) {
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memStore) Save(ctx context.Context, key string, d session.Data, ttl time.Duration) error {
	if m.data == nil {
		m.data = map[string]session.Data{}
	}
	m.data[key] = d
	m.saves++
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// expiringStore drops records once their ttl has passed, like SET EX.
type expiringStore struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]session.Data
	expires map[string]time.Time
}

func (s *expiringStore) Load(ctx context.Context, key string) (session.Data, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.now().Before(s.expires[key]) {
		return session.Data{}, false, nil
	}
	d, ok := s.data[key]
	return d, ok, nil
}

func (s *expiringStore) Save(ctx context.Context, key string, d session.Data, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string]session.Data{}
		s.expires = map[string]time.Time{}
	}
	s.data[key] = d
	s.expires[key] = s.now().Add(ttl)
	return nil
}

var errBoom = errors.New("boom")

var jo = types.Identity{ID: "42", Username: "smithj", Role: "regular", Token: "tok"}

type harness struct {
	svc       *Service
	fetcher   *fakeFetcher
	completer *fakeCompleter
}

func newHarness(f *fakeFetcher, c *fakeCompleter, deps Deps, cfg Config) harness {
	now := func() time.Time { return testNow }
	loader := NewWorldLoader(f, LoaderOptions{Now: now})
	deps.Cache = session.NewCache(loader, session.Options{Now: now})
	if c != nil {
		deps.Completer = c
	}
	cfg.Location = time.UTC
	cfg.Now = now
	return harness{svc: NewService(deps, cfg), fetcher: f, completer: c}
}

func lines(s string) []string {
	return strings.Split(s, "\n")
}
