package redis

import (
	"context"
	"sync"
	"time"

	"quizhost/internal/app"
	"quizhost/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Sessions themselves stay in a local in-process map; the state machine,
//     its mutex and its timers are not shareable between instances.
//   - Redis marks session liveness so dashboards and sibling services can see
//     which sessions are running; MarkEnded clears the marker.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
	players  map[string]string
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
		players:  make(map[string]string),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.QuizID(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) ByPlayer(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) BindPlayer(playerID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[playerID] = sessionID
}

func (s *SessionStore) ActiveCount(quizID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, session := range s.sessions {
		if session.QuizID() == quizID && session.State() != domain.StateEnd {
			count++
		}
	}
	return count
}

func (s *SessionStore) MarkEnded(session *app.Session) {
	_ = s.client.Del(context.Background(), s.key(session.ID())).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "session:live:" + sessionID
}
