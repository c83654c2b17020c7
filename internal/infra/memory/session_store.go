package memory

import (
	"sync"

	"quizhost/internal/app"
	"quizhost/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	players  map[string]string // player id -> session id
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		players:  make(map[string]string),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
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

// ActiveCount counts sessions for the quiz that have not reached END.
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

// MarkEnded is a no-op here: ended sessions stay queryable and ActiveCount
// already skips them by state.
func (s *SessionStore) MarkEnded(*app.Session) {}
