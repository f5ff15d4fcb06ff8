package history

import (
	"context"
	"sync"
	"time"
)

type userEntry struct {
	sessions    map[string][]Turn
	lastMatched string
}

// MemoryStore keeps all conversation state in process memory. A single
// mutex guards the nested maps so first access to a (user, session) pair is
// an atomic get-or-create: concurrent first writers cannot produce two
// divergent empty histories.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*userEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userEntry)}
}

// user returns the entry for userID, creating it empty on first access.
// Callers must hold s.mu.
func (s *MemoryStore) user(userID string) *userEntry {
	e, ok := s.users[userID]
	if !ok {
		e = &userEntry{sessions: make(map[string][]Turn)}
		s.users[userID] = e
	}
	return e
}

func (s *MemoryStore) Append(ctx context.Context, userID, sessionID string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.user(userID)
	e.sessions[sessionID] = append(e.sessions[sessionID], Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) SessionHistory(ctx context.Context, userID, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.user(userID).sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) LastMatched(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user(userID).lastMatched, nil
}

func (s *MemoryStore) SetLastMatched(ctx context.Context, userID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user(userID).lastMatched = category
	return nil
}

func (s *MemoryStore) ClearUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID)
	return nil
}

func (s *MemoryStore) ClearSession(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.users[userID]; ok {
		delete(e.sessions, sessionID)
	}
	return nil
}

func (s *MemoryStore) StartNewSession(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &userEntry{sessions: make(map[string][]Turn)}
	e.sessions[sessionID] = nil
	s.users[userID] = e
	return nil
}

var _ Store = (*MemoryStore)(nil)
