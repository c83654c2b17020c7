package app

import (
	"context"
	"time"

	"quizhost/internal/domain"

	"github.com/google/uuid"
)

const (
	// MaxSessionsPerQuiz caps concurrent non-END sessions for one quiz.
	MaxSessionsPerQuiz = 10
	// MaxAutoStartNum is the upper bound of the auto-start threshold.
	MaxAutoStartNum = 50
)

// SessionStore abstracts how live sessions are tracked (in-memory, Redis, etc).
type SessionStore interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	ByPlayer(playerID string) (*Session, bool)
	BindPlayer(playerID, sessionID string)
	ActiveCount(quizID string) int
	MarkEnded(session *Session)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Registry owns session creation and routes every player and admin operation
// to the right session's state machine.
type Registry struct {
	store     SessionStore
	quizzes   QuizRepository
	scheduler Scheduler
	countdown time.Duration
	now       func() time.Time
}

func NewRegistry(store SessionStore, quizzes QuizRepository, scheduler Scheduler, countdown time.Duration) *Registry {
	return newRegistryWithClock(store, quizzes, scheduler, countdown, time.Now)
}

// NewRegistryWithClock is test-only for deterministic timestamps.
func NewRegistryWithClock(store SessionStore, quizzes QuizRepository, scheduler Scheduler, countdown time.Duration, now func() time.Time) *Registry {
	return newRegistryWithClock(store, quizzes, scheduler, countdown, now)
}

func newRegistryWithClock(store SessionStore, quizzes QuizRepository, scheduler Scheduler, countdown time.Duration, now func() time.Time) *Registry {
	if countdown <= 0 {
		countdown = DefaultCountdown
	}
	return &Registry{
		store:     store,
		quizzes:   quizzes,
		scheduler: scheduler,
		countdown: countdown,
		now:       now,
	}
}

// CreateSession starts a new LOBBY session bound to a deep copy of the quiz's
// current questions.
func (r *Registry) CreateSession(ctx context.Context, quizID string, autoStartNum int) (*Session, error) {
	if autoStartNum < 0 || autoStartNum > MaxAutoStartNum {
		return nil, domain.ErrInvalidAutoStartNum
	}

	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.Active {
		return nil, domain.ErrQuizInactive
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizHasNoQuestions
	}
	if r.store.ActiveCount(quizID) >= MaxSessionsPerQuiz {
		return nil, domain.ErrTooManySessions
	}

	session := newSessionWithClock(uuid.NewString(), quiz, autoStartNum, r.scheduler, r.countdown, r.now)
	r.store.Put(session)
	return session, nil
}

// Join adds a player to a lobby session and indexes the player for later
// answer and chat routing.
func (r *Registry) Join(ctx context.Context, sessionID, name string) (domain.Player, error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return domain.Player{}, domain.ErrSessionNotFound
	}
	player, err := session.Join(name)
	if err != nil {
		return domain.Player{}, err
	}
	r.store.BindPlayer(player.ID, sessionID)
	return player, nil
}

// SubmitAnswer records (or replaces) a player's answer for an open question.
func (r *Registry) SubmitAnswer(ctx context.Context, playerID string, position int, answerIDs []string) error {
	session, ok := r.store.ByPlayer(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	return session.SubmitAnswer(playerID, position, answerIDs)
}

// Dispatch applies an admin action to a session's state machine.
func (r *Registry) Dispatch(ctx context.Context, sessionID string, action domain.Action) (domain.SessionState, error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	state, err := session.Dispatch(action)
	if err != nil {
		return state, err
	}
	if state == domain.StateEnd {
		r.store.MarkEnded(session)
	}
	return state, nil
}

// Status reports the current state, question index and joined players.
func (r *Registry) Status(ctx context.Context, sessionID string) (domain.SessionStatus, error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return domain.SessionStatus{}, domain.ErrSessionNotFound
	}
	return session.Status(), nil
}

// QuestionResult returns the aggregate result of an already-revealed question.
func (r *Registry) QuestionResult(ctx context.Context, sessionID string, position int) (domain.QuestionResult, error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return domain.QuestionResult{}, domain.ErrSessionNotFound
	}
	return session.QuestionResult(position)
}

// FinalResult returns the final ranking once the session has reached FINAL_RESULTS.
func (r *Registry) FinalResult(ctx context.Context, sessionID string) (domain.FinalResult, error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return domain.FinalResult{}, domain.ErrSessionNotFound
	}
	return session.FinalResult()
}

// PostMessage appends a chat message authored by a joined player.
func (r *Registry) PostMessage(ctx context.Context, playerID, body string) (domain.ChatMessage, error) {
	session, ok := r.store.ByPlayer(playerID)
	if !ok {
		return domain.ChatMessage{}, domain.ErrPlayerNotFound
	}
	return session.PostMessage(playerID, body)
}

// Messages returns a session's chat history in send order.
func (r *Registry) Messages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Messages(), nil
}

// Subscribe returns a channel that receives status snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (r *Registry) Subscribe(ctx context.Context, sessionID string) (<-chan domain.SessionStatus, func(), error) {
	session, ok := r.store.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}
