package discover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot/models"
)

// blockingSearcher parks each call until released or cancelled.
type blockingSearcher struct {
	mu      sync.Mutex
	started chan string
	release map[string]chan Result
	errs    map[string]error
}

func newBlockingSearcher() *blockingSearcher {
	return &blockingSearcher{
		started: make(chan string, 8),
		release: make(map[string]chan Result),
		errs:    make(map[string]error),
	}
}

func (b *blockingSearcher) gate(city string) chan Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.release[city]
	if !ok {
		ch = make(chan Result, 1)
		b.release[city] = ch
	}
	return ch
}

func (b *blockingSearcher) Search(ctx context.Context, q models.DiscoverQuery) (Result, error) {
	gate := b.gate(q.City)
	b.started <- q.City
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-gate:
		b.mu.Lock()
		err := b.errs[q.City]
		b.mu.Unlock()
		return res, err
	}
}

func TestSessionLifecycle(t *testing.T) {
	searcher := newBlockingSearcher()
	s := NewSession(searcher)
	assert.Equal(t, StateIdle, s.State())

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), models.DiscoverQuery{City: "Austin"})
		done <- err
	}()

	<-searcher.started
	snap := s.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Error)

	searcher.gate("Austin") <- Result{Events: evs("a", "b")}
	require.NoError(t, <-done)

	snap = s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Error)
	assert.Equal(t, []string{"a", "b"}, idsOf(snap.Events))
	assert.Equal(t, StateSuccess, s.State())

	s.Reset()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Snapshot().Events)
}

func TestSessionErrorClearsEvents(t *testing.T) {
	searcher := newBlockingSearcher()
	s := NewSession(searcher)

	go func() { <-searcher.started; searcher.gate("Ok") <- Result{Events: evs("a")} }()
	_, err := s.Run(context.Background(), models.DiscoverQuery{City: "Ok"})
	require.NoError(t, err)

	searcher.errs["Empty"] = &Error{Kind: ErrNoEvents, Message: MsgNoEvents}
	go func() { <-searcher.started; searcher.gate("Empty") <- Result{} }()
	_, err = s.Run(context.Background(), models.DiscoverQuery{City: "Empty"})
	require.ErrorIs(t, err, ErrNoEvents)

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Error)
	assert.Equal(t, MsgNoEvents, *snap.Error)
	assert.Empty(t, snap.Events)
	assert.NotNil(t, snap.Events)
}

func TestSessionNewerSearchWins(t *testing.T) {
	searcher := newBlockingSearcher()
	s := NewSession(searcher)

	first := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), models.DiscoverQuery{City: "Old"})
		first <- err
	}()
	require.Equal(t, "Old", <-searcher.started)

	second := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), models.DiscoverQuery{City: "New"})
		second <- err
	}()
	require.Equal(t, "New", <-searcher.started)

	select {
	case err := <-first:
		assert.True(t, errors.Is(err, ErrSuperseded), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("first search was not cancelled")
	}
	assert.True(t, s.Snapshot().Loading, "newer search still loading")

	searcher.gate("New") <- Result{Events: evs("n")}
	require.NoError(t, <-second)
	assert.Equal(t, []string{"n"}, idsOf(s.Snapshot().Events))
}

func TestSessionsGetAndSweep(t *testing.T) {
	m := NewSessions(newBlockingSearcher(), time.Minute, 0)

	a := m.Get("client-a")
	assert.Same(t, a, m.Get("client-a"))
	m.Get("client-b")
	assert.Equal(t, 2, m.Len())

	_, ok := m.Lookup("client-c")
	assert.False(t, ok)

	assert.Zero(t, m.Sweep(time.Now()))
	assert.Equal(t, 2, m.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, m.Len())
}

func TestSessionsCapEvictsOldestSettled(t *testing.T) {
	searcher := newBlockingSearcher()
	m := NewSessions(searcher, time.Hour, 3)

	busy := m.Get("busy")
	done := make(chan error, 1)
	go func() {
		_, err := busy.Run(context.Background(), models.DiscoverQuery{City: "Busy"})
		done <- err
	}()
	require.Equal(t, "Busy", <-searcher.started)

	m.Get("old")
	time.Sleep(2 * time.Millisecond)
	m.Get("newer")
	require.Equal(t, 3, m.Len())

	// rotating ids never grow the map past the cap
	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		time.Sleep(2 * time.Millisecond)
		m.Get(id)
		assert.Equal(t, 3, m.Len())
	}

	_, ok := m.Lookup("old")
	assert.False(t, ok, "oldest settled session should be evicted first")
	got, ok := m.Lookup("busy")
	require.True(t, ok, "loading session must survive eviction")
	assert.Same(t, busy, got)

	searcher.gate("Busy") <- Result{Events: evs("b")}
	require.NoError(t, <-done)
}
