// Package session keeps conversation state in memory for the life of the process.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"lexassist-backend/logger"
	"lexassist-backend/metrics"
	"lexassist-backend/models"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Store maps session IDs to sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
	idleTTL  time.Duration
	log      logger.Logger
}

type StoreOption func(*Store)

// WithIdleTTL expires sessions unused for longer than ttl; zero keeps them forever.
// Expired sessions are dropped whenever a new one is created.
func WithIdleTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.idleTTL = ttl
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
		log:      logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new empty session
func (s *Store) Create() *models.Session {
	now := s.now().UTC()
	sess := models.NewSession(uuid.NewString(), now)

	s.mu.Lock()
	expired := s.expireLocked(now)
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	if expired > 0 {
		s.log.Info("expired idle sessions", map[string]interface{}{"count": expired, "remaining": n})
	}
	metrics.ActiveSessions.Set(float64(n))
	return sess
}

// Get returns a session and marks it active
func (s *Store) Get(id string) (*models.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Touch(s.now().UTC())
	return sess, nil
}

// Reset clears a session's history, uploads and cached questions but keeps its ID
func (s *Store) Reset(id string) (*models.Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	return sess, nil
}

// Delete forgets a session entirely
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// expireLocked drops sessions idle for longer than the idle TTL and returns how many went
func (s *Store) expireLocked(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTTL)
	count := 0
	for id, sess := range s.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			count++
		}
	}
	return count
}
