package discover

import (
	"context"
	"errors"
	"sync"
	"time"

	"spot/models"
)

// ErrSuperseded is returned to a search whose session started a newer one.
var ErrSuperseded = errors.New("search superseded by a newer request")

// State is the lifecycle position of a session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

type searcher interface {
	Search(ctx context.Context, q models.DiscoverQuery) (Result, error)
}

var _ searcher = (*Service)(nil)

// Session holds one client's discovery view: the displayed events, the
// loading flag and the last error. Starting a search cancels the previous
// in-flight search so the latest request always wins.
type Session struct {
	svc searcher

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	state    State
	events   []models.Event
	errMsg   string
	lastUsed time.Time
}

func NewSession(svc searcher) *Session {
	return &Session{svc: svc, state: StateIdle, events: []models.Event{}, lastUsed: time.Now()}
}

// Run executes one search and records its outcome. A superseded search
// returns ErrSuperseded and leaves the session untouched.
func (s *Session) Run(ctx context.Context, q models.DiscoverQuery) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.state = StateLoading
	s.errMsg = ""
	s.lastUsed = time.Now()
	s.mu.Unlock()

	res, err := s.svc.Search(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return Result{}, ErrSuperseded
	}
	s.cancel = nil
	s.lastUsed = time.Now()
	if err != nil {
		s.state = StateError
		s.errMsg = UserMessage(err)
		s.events = []models.Event{}
		return res, err
	}
	s.state = StateSuccess
	s.events = res.Events
	return res, nil
}

// Snapshot returns the {events, loading, error} view.
func (s *Session) Snapshot() models.DiscoverState {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := models.DiscoverState{
		Events:  append([]models.Event(nil), s.events...),
		Loading: s.state == StateLoading,
	}
	if view.Events == nil {
		view.Events = []models.Event{}
	}
	if s.state == StateError {
		msg := s.errMsg
		view.Error = &msg
	}
	return view
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset returns a settled session to idle. A loading session is left alone.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading {
		return
	}
	s.state = StateIdle
	s.errMsg = ""
	s.events = []models.Event{}
}

// settledAt reports when a settled session was last used. Loading sessions
// are not settled.
func (s *Session) settledAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed, s.state != StateLoading
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLoading {
		return 0
	}
	return now.Sub(s.lastUsed)
}

// DefaultMaxSessions caps the registry when NewSessions is given no limit.
const DefaultMaxSessions = 10000

// Sessions maps client ids to sessions. It holds at most maxSessions entries;
// inserting past the cap evicts the least recently used settled session.
type Sessions struct {
	svc         searcher
	maxIdle     time.Duration
	maxSessions int

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessions(svc searcher, maxIdle time.Duration, maxSessions int) *Sessions {
	if maxIdle <= 0 {
		maxIdle = 30 * time.Minute
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Sessions{svc: svc, maxIdle: maxIdle, maxSessions: maxSessions, sessions: make(map[string]*Session)}
}

// Get returns the session for clientID, creating it when missing.
func (m *Sessions) Get(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[clientID]
	if !ok {
		if len(m.sessions) >= m.maxSessions {
			m.evictOldestLocked()
		}
		s = NewSession(m.svc)
		m.sessions[clientID] = s
	}
	return s
}

// evictOldestLocked drops the least recently used settled session. Loading
// sessions are never evicted, so the map may briefly exceed the cap while
// that many searches are in flight.
func (m *Sessions) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
		found    bool
	)
	for id, s := range m.sessions {
		at, settled := s.settledAt()
		if !settled {
			continue
		}
		if !found || at.Before(oldestAt) {
			oldestID, oldestAt, found = id, at, true
		}
	}
	if found {
		delete(m.sessions, oldestID)
	}
}

// Lookup returns an existing session.
func (m *Sessions) Lookup(clientID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[clientID]
	return s, ok
}

// Len returns the number of tracked sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops settled sessions idle longer than maxIdle and returns how many it removed.
func (m *Sessions) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.maxIdle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Sessions) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}
