package session

import (
	"sync"
	"time"
)

type State int

const (
	// AwaitingMessage means the guided flow is waiting for the reminder text.
	AwaitingMessage State = iota
	// AwaitingTime means the reminder text is captured and the flow is
	// waiting for a clock time.
	AwaitingTime
)

// Session is the ephemeral per-address state of the guided reminder flow.
type Session struct {
	State          State
	PendingMessage string
}

type entry struct {
	sess      Session
	touchedAt time.Time
}

// Store holds conversational state keyed by channel address. It is owned by
// the chat service and handed to nothing else; there is no global state.
// Entries expire lazily after the configured TTL.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	ttl         time.Duration
	sessions    map[string]entry
	weatherCity map[string]time.Time
}

// NewStore builds a Store with an injected clock and TTL. A zero TTL disables
// expiry.
func NewStore(now func() time.Time, ttl time.Duration) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:         now,
		ttl:         ttl,
		sessions:    make(map[string]entry),
		weatherCity: make(map[string]time.Time),
	}
}

func (s *Store) expired(touchedAt time.Time) bool {
	return s.ttl > 0 && s.now().Sub(touchedAt) > s.ttl
}

// Get returns the session for addr, if one exists and has not expired.
func (s *Store) Get(addr string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[addr]
	if !ok {
		return Session{}, false
	}
	if s.expired(e.touchedAt) {
		delete(s.sessions, addr)
		return Session{}, false
	}
	return e.sess, true
}

// Put stores (or replaces) the session for addr and refreshes its TTL.
func (s *Store) Put(addr string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[addr] = entry{sess: sess, touchedAt: s.now()}
}

// Clear removes any session for addr.
func (s *Store) Clear(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, addr)
}

// AwaitCity flags addr so that its next message is consumed verbatim as a
// city name.
func (s *Store) AwaitCity(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weatherCity[addr] = s.now()
}

// ConsumeCity reports whether addr had an open city flag and clears it. The
// flag is single-use regardless of what the caller does with the message.
func (s *Store) ConsumeCity(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.weatherCity[addr]
	if !ok {
		return false
	}
	delete(s.weatherCity, addr)
	return !s.expired(at)
}
