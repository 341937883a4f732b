package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps conversations in process memory. Sessions are created
// implicitly on first access and capped: above maxSessions the least recently
// used session is evicted, and a janitor expires sessions idle beyond a TTL.
type InMemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*sessionState
	maxSessions int
}

type sessionState struct {
	mu           sync.Mutex
	turns        []Turn
	createdAt    time.Time
	lastActivity time.Time
}

func NewInMemoryStore(maxSessions int) *InMemoryStore {
	if maxSessions <= 0 {
		maxSessions = 10000
	}
	return &InMemoryStore{
		sessions:    make(map[string]*sessionState),
		maxSessions: maxSessions,
	}
}

// getOrCreate returns the session state, creating it on first access. The
// store lock only covers map access; per-session work happens under the
// session's own lock so sessions never block each other.
func (s *InMemoryStore) getOrCreate(sessionID string) *sessionState {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		if len(s.sessions) >= s.maxSessions {
			s.evictOldestLocked()
		}
		st = &sessionState{createdAt: now}
		s.sessions[sessionID] = st
	}
	st.lastActivity = now
	return st
}

func (s *InMemoryStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, st := range s.sessions {
		if oldestID == "" || st.lastActivity.Before(oldest) {
			oldestID = id
			oldest = st.lastActivity
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

func (s *InMemoryStore) History(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	st := s.getOrCreate(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.turns) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(st.turns) {
		limit = len(st.turns)
	}
	out := make([]Turn, limit)
	copy(out, st.turns[len(st.turns)-limit:])
	return out, nil
}

func (s *InMemoryStore) AppendTurn(_ context.Context, sessionID string, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	st := s.getOrCreate(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = append(st.turns, turn)
	return nil
}

func (s *InMemoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		// Resetting a never-seen session succeeds.
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = nil
	return nil
}

// SessionCount reports how many sessions are currently tracked.
func (s *InMemoryStore) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ExpireIdle removes sessions idle for ttl or longer and returns how many
// were removed.
func (s *InMemoryStore) ExpireIdle(ttl time.Duration) int {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.sessions {
		if now.Sub(st.lastActivity) >= ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor periodically expires idle sessions until ctx is done.
func (s *InMemoryStore) StartJanitor(ctx context.Context, interval, ttl time.Duration, onExpire func(int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.ExpireIdle(ttl); n > 0 && onExpire != nil {
					onExpire(n)
				}
			}
		}
	}()
}

func (s *InMemoryStore) Close() error { return nil }
