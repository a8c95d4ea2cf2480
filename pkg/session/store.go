package session

import (
	"context"
	"sync"
	"time"

	errs "github.com/matzehuels/imgstack/pkg/errors"
)

// DefaultTTL is how long an idle session is kept by a [Store].
const DefaultTTL = 30 * time.Minute

// Factory creates a new session for a [Store].
type Factory func() (*Session, error)

// Store keeps sessions in memory, keyed by ID. Sessions idle for longer
// than the TTL are treated as missing and removed by [Store.Cleanup].
// Nothing survives a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	factory  Factory
	now      func() time.Time
}

// NewStore creates an empty store. A ttl <= 0 uses [DefaultTTL].
func NewStore(ttl time.Duration, factory Factory) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if factory == nil {
		factory = func() (*Session, error) { return New(nil) }
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// Create makes and stores a new session.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	sess, err := s.factory()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get returns the session with the given ID and records the access.
// Missing and expired sessions return SESSION_NOT_FOUND.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session not found")
	}
	if s.expired(sess) {
		s.Delete(ctx, id)
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session expired")
	}
	sess.Touch()
	return sess, nil
}

// GetOrCreate returns the session for id, creating a new one when it is
// missing or expired. created reports which happened.
func (s *Store) GetOrCreate(ctx context.Context, id string) (sess *Session, created bool, err error) {
	if id != "" {
		if sess, err := s.Get(ctx, id); err == nil {
			return sess, false, nil
		}
	}
	sess, err = s.Create(ctx)
	return sess, err == nil, err
}

// Delete removes a session and releases its images. Deleting a missing
// session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.Reset()
	}
	return nil
}

// Cleanup removes every expired session and returns how many were removed.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if s.expired(sess) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Reset()
	}
	return len(stale), nil
}

// Len returns the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close releases every session.
func (s *Store) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Reset()
	}
	return nil
}

func (s *Store) expired(sess *Session) bool {
	return s.now().Sub(sess.LastAccess()) > s.ttl
}
