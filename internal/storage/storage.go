package storage

import (
	"context"
	"sync"
	"time"

	"github.com/transbraille/transbraille/internal/pipeline"
)

type SessionStore struct {
	sessions map[string]*pipeline.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*pipeline.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*pipeline.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *pipeline.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

func (s *SessionStore) GetAll() map[string]*pipeline.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*pipeline.Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

// Delete removes the session and tears it down. It reports whether the
// session existed.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		session.Close(ctx)
	}
	return exists
}

// CloseAll tears down every session.
func (s *SessionStore) CloseAll(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*pipeline.Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close(ctx)
	}
}

// ExpireIdle tears down every session that has been idle since before
// cutoff and returns their ids. Sessions with an operation in flight are kept.
func (s *SessionStore) ExpireIdle(ctx context.Context, cutoff time.Time) []string {
	s.mu.Lock()
	var expired []*pipeline.Session
	for id, session := range s.sessions {
		if last, ok := session.IdleSince(); ok && last.Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, session := range expired {
		session.Close(ctx)
		ids = append(ids, session.ID)
	}
	return ids
}
