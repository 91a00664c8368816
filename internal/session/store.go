package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store keeps live sessions and expires idle ones
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	svc      Services
	ttl      time.Duration
	logger   *zap.Logger
}

// NewStore creates a store whose sessions share svc. A ttl of zero disables expiry.
func NewStore(svc Services, ttl time.Duration) *Store {
	svc = svc.withDefaults()
	return &Store{
		sessions: make(map[string]*Session),
		svc:      svc,
		ttl:      ttl,
		logger:   svc.Logger,
	}
}

// Create starts a new session
func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.svc)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.logger.Debug("Session created", zap.String("session_id", s.ID))
	return s
}

// Get looks up a session by id
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

const observerTimeout = 5 * time.Second

// Delete closes and removes a session and tells every SessionObserver about
// it. Returns false if it did not exist.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	st.logger.Debug("Session deleted", zap.String("session_id", id))

	ctx, cancel := context.WithTimeout(st.svc.Context, observerTimeout)
	defer cancel()
	for _, obs := range st.svc.Observers {
		if so, ok := obs.(SessionObserver); ok {
			so.SessionDeleted(ctx, id)
		}
	}
	return true
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle since before now-ttl and returns how many were removed
func (st *Store) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-st.ttl)

	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		st.logger.Info("Expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || st.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(st.svc.Now())
		}
	}
}

// Close closes every session
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
