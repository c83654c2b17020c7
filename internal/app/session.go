package app

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"quizhost/internal/domain"

	"github.com/google/uuid"
)

// DefaultCountdown is the delay between announcing a question and opening it.
const DefaultCountdown = 3 * time.Second

// Session is one live run-through of a quiz: the per-session state machine,
// its players, chat and computed results. All mutating entry points serialize
// on the session mutex; timer-fired transitions go through the same lock as
// admin-triggered ones.
type Session struct {
	id           string
	quiz         domain.Quiz // frozen snapshot, never mutated after creation
	autoStartNum int
	createdAt    time.Time

	now       func() time.Time
	scheduler Scheduler
	countdown time.Duration
	rnd       *rand.Rand

	mu          sync.Mutex
	state       domain.SessionState
	atQuestion  int // 1-based; 0 outside question states
	timerEpoch  uint64
	players     map[string]*domain.Player
	joinOrder   []*domain.Player
	messages    []domain.ChatMessage
	openedAt    map[int]time.Time
	results     map[int]domain.QuestionResult
	final       *domain.FinalResult
	subscribers map[chan domain.SessionStatus]struct{}
}

// NewSession creates a session in LOBBY bound to a quiz snapshot.
func NewSession(id string, quiz domain.Quiz, autoStartNum int, scheduler Scheduler, countdown time.Duration) *Session {
	return newSessionWithClock(id, quiz, autoStartNum, scheduler, countdown, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, quiz domain.Quiz, autoStartNum int, scheduler Scheduler, countdown time.Duration, now func() time.Time) *Session {
	return newSessionWithClock(id, quiz, autoStartNum, scheduler, countdown, now)
}

func newSessionWithClock(id string, quiz domain.Quiz, autoStartNum int, scheduler Scheduler, countdown time.Duration, now func() time.Time) *Session {
	if countdown <= 0 {
		countdown = DefaultCountdown
	}
	return &Session{
		id:           id,
		quiz:         quiz.Clone(),
		autoStartNum: autoStartNum,
		createdAt:    now(),
		now:          now,
		scheduler:    scheduler,
		countdown:    countdown,
		rnd:          rand.New(rand.NewSource(now().UnixNano())),
		state:        domain.StateLobby,
		players:      make(map[string]*domain.Player),
		openedAt:     make(map[int]time.Time),
		results:      make(map[int]domain.QuestionResult),
		subscribers:  make(map[chan domain.SessionStatus]struct{}),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) QuizID() string       { return s.quiz.ID }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State is a pure query of the current lifecycle phase.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the session for callers and subscribers.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Dispatch validates and applies an externally triggered action. Side effects
// (timer arm/cancel, scoring) run synchronously before it returns.
func (s *Session) Dispatch(action domain.Action) (domain.SessionState, error) {
	if action.Internal() {
		return s.State(), domain.ErrInvalidTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(action)
}

func (s *Session) dispatchLocked(action domain.Action) (domain.SessionState, error) {
	to, ok := domain.NextState(s.state, action)
	if !ok {
		return s.state, domain.ErrInvalidTransition
	}
	// NEXT_QUESTION past the last question has nowhere to advance to.
	if action == domain.ActionNextQuestion && s.atQuestion >= len(s.quiz.Questions) {
		return s.state, domain.ErrInvalidTransition
	}
	s.applyLocked(to)
	return s.state, nil
}

func (s *Session) applyLocked(to domain.SessionState) {
	s.state = to

	switch to {
	case domain.StateQuestionCountdown:
		s.atQuestion++
		s.armTimerLocked(s.countdown, domain.ActionSkipCountdown)
	case domain.StateQuestionOpen:
		s.openedAt[s.atQuestion] = s.now()
		question := s.quiz.Questions[s.atQuestion-1]
		s.armTimerLocked(time.Duration(question.Duration)*time.Second, domain.ActionCloseQuestion)
	case domain.StateQuestionClose:
		s.disarmTimerLocked()
	case domain.StateAnswerShow:
		s.disarmTimerLocked()
		s.scoreQuestionLocked(s.atQuestion)
	case domain.StateFinalResults:
		s.disarmTimerLocked()
		s.scoreRemainingLocked()
		final := finalRanking(s.joinOrder)
		s.final = &final
		s.atQuestion = 0
	case domain.StateEnd:
		s.disarmTimerLocked()
		s.atQuestion = 0
	}

	s.broadcastLocked()
}

// armTimerLocked replaces any pending timer for the session. The epoch lets a
// late fire detect that the session has moved on and no-op.
func (s *Session) armTimerLocked(delay time.Duration, action domain.Action) {
	s.timerEpoch++
	epoch := s.timerEpoch
	s.scheduler.Schedule(s.id, delay, func() {
		s.timerFired(epoch, action)
	})
}

func (s *Session) disarmTimerLocked() {
	s.timerEpoch++
	s.scheduler.Cancel(s.id)
}

func (s *Session) timerFired(epoch uint64, action domain.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.timerEpoch {
		return // superseded or cancelled; the session already transitioned
	}
	if _, err := s.dispatchLocked(action); err != nil {
		log.Printf("session %s: timer-fired %s rejected: %v", s.id, action, err)
	}
}

// Join registers a player while the session is in LOBBY. A blank name gets an
// auto-generated one. Reaching the auto-start threshold advances the session
// as if an admin had dispatched NEXT_QUESTION.
func (s *Session) Join(name string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return domain.Player{}, domain.ErrSessionNotInLobby
	}
	if name == "" {
		name = s.uniqueRandomNameLocked()
	} else if s.nameTakenLocked(name) {
		return domain.Player{}, domain.ErrNameAlreadyUsed
	}

	player := &domain.Player{
		ID:          uuid.NewString(),
		SessionID:   s.id,
		Name:        name,
		Submissions: make(map[int]*domain.Submission),
	}
	s.players[player.ID] = player
	s.joinOrder = append(s.joinOrder, player)
	s.broadcastLocked()

	if s.autoStartNum > 0 && len(s.players) >= s.autoStartNum {
		if _, err := s.dispatchLocked(domain.ActionNextQuestion); err != nil {
			log.Printf("session %s: auto-start rejected: %v", s.id, err)
		}
	}
	return *player, nil
}

func (s *Session) nameTakenLocked(name string) bool {
	for _, p := range s.players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// uniqueRandomNameLocked builds names like "kxqbw583": five distinct random
// letters followed by three distinct random digits.
func (s *Session) uniqueRandomNameLocked() string {
	for {
		name := randomPlayerName(s.rnd)
		if !s.nameTakenLocked(name) {
			return name
		}
	}
}

func randomPlayerName(rnd *rand.Rand) string {
	letters := []byte("abcdefghijklmnopqrstuvwxyz")
	digits := []byte("0123456789")
	rnd.Shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
	rnd.Shuffle(len(digits), func(i, j int) { digits[i], digits[j] = digits[j], digits[i] })
	return string(letters[:5]) + string(digits[:3])
}

// SubmitAnswer stores a player's answer for the question at position.
// Resubmitting while the question is still open replaces the earlier answer.
func (s *Session) SubmitAnswer(playerID string, position int, answerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if position < 1 || position > len(s.quiz.Questions) {
		return domain.ErrInvalidPosition
	}
	if s.atQuestion != position {
		return domain.ErrSessionNotOnQuestion
	}
	if s.state != domain.StateQuestionOpen {
		return domain.ErrSessionNotOpen
	}

	question := s.quiz.Questions[position-1]
	if len(answerIDs) == 0 {
		return domain.ErrEmptyAnswerIDs
	}
	seen := make(map[string]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if _, dup := seen[id]; dup {
			return domain.ErrDuplicateAnswerIDs
		}
		seen[id] = struct{}{}
		if !question.HasAnswer(id) {
			return domain.ErrInvalidAnswerIDs
		}
	}

	player.Submissions[position] = &domain.Submission{
		QuestionID:  question.ID,
		AnswerIDs:   append([]string(nil), answerIDs...),
		SubmittedAt: s.now(),
	}
	return nil
}

// PostMessage appends a chat message. Chat is not gated by session state.
func (s *Session) PostMessage(playerID, body string) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return domain.ChatMessage{}, domain.ErrPlayerNotFound
	}
	if body == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}
	if len(body) > 100 {
		return domain.ChatMessage{}, domain.ErrMessageTooLong
	}

	msg := domain.ChatMessage{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Body:       body,
		SentAt:     s.now(),
	}
	s.messages = append(s.messages, msg)
	s.broadcastLocked()
	return msg, nil
}

// Messages returns the chat history in send order.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// QuestionResult returns the aggregate result for a question once the session
// has revealed it (reached ANSWER_SHOW while on that question).
func (s *Session) QuestionResult(position int) (domain.QuestionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 1 || position > len(s.quiz.Questions) {
		return domain.QuestionResult{}, domain.ErrInvalidPosition
	}
	result, ok := s.results[position]
	if !ok {
		return domain.QuestionResult{}, domain.ErrResultsNotReady
	}
	return result, nil
}

// FinalResult returns the session ranking once FINAL_RESULTS has been reached.
func (s *Session) FinalResult() (domain.FinalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.final == nil {
		return domain.FinalResult{}, domain.ErrResultsNotReady
	}
	return *s.final, nil
}

func (s *Session) scoreQuestionLocked(position int) {
	if _, done := s.results[position]; done {
		return
	}
	question := s.quiz.Questions[position-1]
	s.results[position] = scoreQuestion(question, position, s.joinOrder, s.openedAt[position])
}

// scoreRemainingLocked grades every question that was opened but never
// revealed, so the final ranking covers all answered questions.
func (s *Session) scoreRemainingLocked() {
	for position := range s.openedAt {
		s.scoreQuestionLocked(position)
	}
}

// Subscribe returns a channel fed with status snapshots on every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionStatus, func()) {
	ch := make(chan domain.SessionStatus, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.statusLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	status := s.statusLocked()
	for ch := range s.subscribers {
		select {
		case ch <- status:
		default:
			// Slow subscribers keep only the freshest snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}

func (s *Session) statusLocked() domain.SessionStatus {
	names := make([]string, 0, len(s.joinOrder))
	for _, p := range s.joinOrder {
		names = append(names, p.Name)
	}
	return domain.SessionStatus{
		SessionID:     s.id,
		State:         s.state,
		AtQuestion:    s.atQuestion,
		QuestionCount: len(s.quiz.Questions),
		Players:       names,
		UpdatedAt:     s.now(),
	}
}
