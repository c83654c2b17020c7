package domain

import "time"

// Answer is one selectable option of a question.
type Answer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
	Colour  string `json:"colour"`
}

// Question models a timed MCQ question worth 1-10 points.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Duration int      `json:"duration"` // seconds, > 0
	Points   int      `json:"points"`
	Answers  []Answer `json:"answers"`
}

// CorrectAnswerIDs returns the set of correct answer ids for the question.
func (q Question) CorrectAnswerIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, a := range q.Answers {
		if a.Correct {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

// HasAnswer reports whether id belongs to one of the question's answers.
func (q Question) HasAnswer(id string) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Quiz is a collection of ordered questions.
type Quiz struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Clone deep-copies the quiz so a session snapshot is insulated from later edits.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		cp := question
		cp.Answers = make([]Answer, len(question.Answers))
		copy(cp.Answers, question.Answers)
		out.Questions[i] = cp
	}
	return out
}

// Submission records a player's answer to one question. Correctness, time spent
// and points are filled in by the scoring pass once the question is revealed.
type Submission struct {
	QuestionID   string    `json:"questionId"`
	AnswerIDs    []string  `json:"answerIds"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Correct      bool      `json:"correct"`
	TimeSpentSec float64   `json:"timeSpentSec"`
	Points       int       `json:"points"`
}

// Player is a participant of a single session. Submissions are keyed by
// question position (1-based) and replaceable while that question is open.
type Player struct {
	ID          string              `json:"id"`
	SessionID   string              `json:"sessionId"`
	Name        string              `json:"name"`
	Submissions map[int]*Submission `json:"submissions"`
}

// ChatMessage is an append-only session chat entry. PlayerName is snapshotted
// at post time so later renames never rewrite history.
type ChatMessage struct {
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sentAt"`
}

// QuestionResult is the aggregate outcome of one question.
type QuestionResult struct {
	QuestionID           string   `json:"questionId"`
	PlayersCorrect       []string `json:"playersCorrect"` // names, ranked by submission time
	AverageAnswerTimeSec float64  `json:"averageAnswerTime"`
	PercentCorrect       int      `json:"percentCorrect"`
}

// RankEntry is one row of the final scoreboard.
type RankEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// FinalResult is the session-wide ranking computed on entering FINAL_RESULTS.
type FinalResult struct {
	Ranking []RankEntry `json:"ranking"`
}

// SessionStatus is a snapshot-friendly view of a running session.
type SessionStatus struct {
	SessionID     string       `json:"sessionId"`
	State         SessionState `json:"state"`
	AtQuestion    int          `json:"atQuestion"`
	QuestionCount int          `json:"questionCount"`
	Players       []string     `json:"players"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
