package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prestige/internal/ai"
	"prestige/internal/modules/entity"
	"prestige/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingLoader struct {
	calls   int32
	release chan struct{}
	err     error
}

func (l *countingLoader) Load(ctx context.Context, id types.Identity) (World, error) {
	n := atomic.AddInt32(&l.calls, 1)
	if l.release != nil {
		<-l.release
	}
	if l.err != nil {
		return World{}, l.err
	}
	return World{Data: Data{Profile: entity.Profile{ID: string(id.ID), Name: fmt.Sprintf("load-%d", n)}}}, nil
}

func newTestCache(l Loader, opts Options) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	return NewCache(l, opts), clock
}

var alice = types.Identity{ID: "1", Username: "alice"}

func TestEnsure_RefreshesOnlyAfterTTL(t *testing.T) {
	l := &countingLoader{}
	c, clock := newTestCache(l, Options{})
	ctx := context.Background()

	w, err := c.Ensure(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "load-1", w.Profile.Name)

	clock.Advance(4 * time.Minute)
	w, err = c.Ensure(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "load-1", w.Profile.Name, "within TTL must not refetch")

	clock.Advance(2 * time.Minute)
	w, err = c.Ensure(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "load-2", w.Profile.Name)
	assert.EqualValues(t, 2, atomic.LoadInt32(&l.calls))
}

func TestEnsure_SingleFlightPerIdentity(t *testing.T) {
	l := &countingLoader{release: make(chan struct{})}
	c, _ := newTestCache(l, Options{})

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Ensure(context.Background(), alice)
			errs <- err
		}()
	}
	// Let every caller reach the in-flight load before releasing it.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&l.calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(l.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&l.calls))
}

func TestEnsure_CallerCancellationDoesNotAbortRefresh(t *testing.T) {
	l := &countingLoader{release: make(chan struct{})}
	c, _ := newTestCache(l, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Ensure(ctx, alice)
		done <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&l.calls) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(l.release)
	require.Eventually(t, func() bool {
		w, err := c.Ensure(context.Background(), alice)
		return err == nil && w.Profile.Name == "load-1"
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&l.calls))
}

func TestEnsure_LoaderError(t *testing.T) {
	c, _ := newTestCache(&countingLoader{err: errors.New("boom")}, Options{})
	_, err := c.Ensure(context.Background(), alice)
	assert.Error(t, err)

	_, err = c.Ensure(context.Background(), types.Identity{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestInstall_KeepsNewerRefresh(t *testing.T) {
	c, clock := newTestCache(&countingLoader{}, Options{})
	older := clock.Now()
	clock.Advance(time.Second)
	c.install("1", World{Data: Data{Profile: entity.Profile{Name: "newer"}}}, clock.Now())
	c.install("1", World{Data: Data{Profile: entity.Profile{Name: "stale"}}}, older)

	w, err := c.Ensure(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "newer", w.Profile.Name)
}

func TestAppendExchange_BoundsHistory(t *testing.T) {
	c, _ := newTestCache(&countingLoader{}, Options{})
	for i := 0; i < 10; i++ {
		c.AppendExchange(alice, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	h := c.History(alice)
	require.Len(t, h, 12)
	assert.Equal(t, ai.Message{Role: ai.RoleUser, Content: "q4"}, h[0])
	assert.Equal(t, ai.Message{Role: ai.RoleModel, Content: "a9"}, h[11])

	long := make([]rune, MaxEntryChars+50)
	for i := range long {
		long[i] = 'é'
	}
	c.AppendExchange(alice, string(long), "ok")
	h = c.History(alice)
	assert.Len(t, []rune(h[len(h)-2].Content), MaxEntryChars)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	c, _ := newTestCache(&countingLoader{}, Options{})
	c.AppendExchange(alice, "q", "a")
	h := c.History(alice)
	h[0].Content = "mutated"
	assert.Equal(t, "q", c.History(alice)[0].Content)
	assert.Nil(t, c.History(types.Identity{ID: "unknown"}))
}

func TestInvalidate_KeepsHistory(t *testing.T) {
	l := &countingLoader{}
	c, _ := newTestCache(l, Options{})
	_, _ = c.Ensure(context.Background(), alice)
	c.AppendExchange(alice, "q", "a")

	c.Invalidate(alice)
	w, err := c.Ensure(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "load-2", w.Profile.Name)
	assert.Len(t, c.History(alice), 2)
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(&countingLoader{}, Options{MaxEntries: 2})
	ctx := context.Background()
	for _, id := range []types.ID{"a", "b"} {
		_, err := c.Ensure(ctx, types.Identity{ID: id})
		require.NoError(t, err)
	}
	// Touch "a" so "b" becomes least recently used.
	_, _ = c.Ensure(ctx, types.Identity{ID: "a"})
	_, _ = c.Ensure(ctx, types.Identity{ID: "c"})

	assert.Equal(t, 2, c.Len())
	c.mu.Lock()
	_, hasB := c.entries["b"]
	_, hasA := c.entries["a"]
	c.mu.Unlock()
	assert.False(t, hasB)
	assert.True(t, hasA)
}

func TestSweep_DropsIdleSessions(t *testing.T) {
	c, clock := newTestCache(&countingLoader{}, Options{})
	ctx := context.Background()
	_, _ = c.Ensure(ctx, types.Identity{ID: "old"})
	clock.Advance(90 * time.Minute)
	_, _ = c.Ensure(ctx, types.Identity{ID: "fresh"})

	assert.Equal(t, 1, c.Sweep(time.Hour))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Sweep(time.Hour))
}

type agedLoader struct {
	age   time.Duration
	now   func() time.Time
	calls int32
}

func (l *agedLoader) Load(ctx context.Context, id types.Identity) (World, error) {
	atomic.AddInt32(&l.calls, 1)
	return World{Data: Data{FetchedAt: l.now().Add(-l.age)}}, nil
}

// Data read back from a shared store keeps aging from its original fetch.
func TestEnsure_AgesFromFetchedAt(t *testing.T) {
	l := &agedLoader{age: 4*time.Minute + 59*time.Second}
	c, clock := newTestCache(l, Options{TTL: 5 * time.Minute})
	l.now = clock.Now
	ctx := context.Background()

	_, err := c.Ensure(ctx, alice)
	require.NoError(t, err)
	_, _ = c.Ensure(ctx, alice)
	assert.EqualValues(t, 1, atomic.LoadInt32(&l.calls))

	clock.Advance(2 * time.Second)
	_, _ = c.Ensure(ctx, alice)
	assert.EqualValues(t, 2, atomic.LoadInt32(&l.calls), "world older than the TTL must refresh")
}
