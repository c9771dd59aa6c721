package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/pkg/model"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session IDs
var ErrSessionNotFound = errors.New("session not found")

// trackedSession pairs a questionnaire session with its lifecycle state.
// Everything but lastSeen is guarded by mu; lastSeen belongs to the store.
type trackedSession struct {
	mu sync.Mutex

	id          string
	q           *questionnaire.Session
	status      model.SessionStatus
	submitting  bool
	submitted   *model.TriageRequest
	result      *model.TriageResult
	archivePath string
	startedAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time

	lastSeen time.Time
}

// SessionStore keeps live sessions in memory and forgets them after ttl of
// inactivity
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*trackedSession
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionStore creates an empty store
func NewSessionStore(ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*trackedSession),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// create registers a fresh session under a new ID
func (s *SessionStore) create(q *questionnaire.Session) *trackedSession {
	now := s.now().UTC()
	ts := &trackedSession{
		id:        uuid.New().String(),
		q:         q,
		status:    model.SessionStatusActive,
		startedAt: now,
		updatedAt: now,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[ts.id] = ts
	s.mu.Unlock()

	return ts
}

// get returns a live session and marks it as seen
func (s *SessionStore) get(id string) (*trackedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := s.now().UTC()
	if s.expired(ts, now) {
		delete(s.sessions, id)
		s.logger.Info("session expired on access", zap.String("session_id", id))
		return nil, ErrSessionNotFound
	}
	ts.lastSeen = now

	return ts, nil
}

func (s *SessionStore) expired(ts *trackedSession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(ts.lastSeen) > s.ttl
}

// Len returns the number of sessions held, expired or not
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every expired session and returns their IDs
func (s *SessionStore) Sweep() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var removed []string
	for id, ts := range s.sessions {
		if s.expired(ts, now) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		s.logger.Info("expired sessions swept",
			zap.Int("count", len(removed)),
			zap.Int("remaining", len(s.sessions)),
		)
	}

	return removed
}

// StartJanitor sweeps every interval until ctx is done. onSweep, when not
// nil, receives the IDs of each non-empty sweep.
func (s *SessionStore) StartJanitor(ctx context.Context, interval time.Duration, onSweep func([]string)) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("session janitor stopped")
				return
			case <-ticker.C:
				if removed := s.Sweep(); len(removed) > 0 && onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}
