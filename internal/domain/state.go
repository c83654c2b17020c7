package domain

// SessionState is a phase of the session lifecycle.
type SessionState string

const (
	StateLobby             SessionState = "LOBBY"
	StateQuestionCountdown SessionState = "QUESTION_COUNTDOWN"
	StateQuestionOpen      SessionState = "QUESTION_OPEN"
	StateQuestionClose     SessionState = "QUESTION_CLOSE"
	StateAnswerShow        SessionState = "ANSWER_SHOW"
	StateFinalResults      SessionState = "FINAL_RESULTS"
	StateEnd               SessionState = "END" // terminal
)

// OnQuestion reports whether the state carries a valid current-question index.
func (s SessionState) OnQuestion() bool {
	switch s {
	case StateQuestionCountdown, StateQuestionOpen, StateQuestionClose, StateAnswerShow:
		return true
	}
	return false
}

// Action advances a session through its lifecycle.
type Action string

const (
	ActionNextQuestion     Action = "NEXT_QUESTION"
	ActionSkipCountdown    Action = "SKIP_COUNTDOWN"
	ActionGoToAnswer       Action = "GO_TO_ANSWER"
	ActionGoToFinalResults Action = "GO_TO_FINAL_RESULTS"
	ActionEnd              Action = "END"

	// ActionCloseQuestion fires when a question's timer expires. It is never
	// accepted from external dispatchers.
	ActionCloseQuestion Action = "CLOSE_QUESTION"
)

// Internal reports whether the action is reserved for timer-driven transitions.
func (a Action) Internal() bool {
	return a == ActionCloseQuestion
}

type transitionKey struct {
	from   SessionState
	action Action
}

// transitions is built once at init and never mutated; every session consults
// the same immutable table. No edge targets LOBBY and END has no outgoing
// edges.
var transitions = map[transitionKey]SessionState{
	{StateLobby, ActionNextQuestion}: StateQuestionCountdown,
	{StateLobby, ActionEnd}:          StateEnd,

	{StateQuestionCountdown, ActionSkipCountdown}: StateQuestionOpen,
	{StateQuestionCountdown, ActionEnd}:           StateEnd,

	{StateQuestionOpen, ActionGoToAnswer}:    StateAnswerShow,
	{StateQuestionOpen, ActionCloseQuestion}: StateQuestionClose,
	{StateQuestionOpen, ActionEnd}:           StateEnd,

	{StateQuestionClose, ActionNextQuestion}:     StateQuestionCountdown,
	{StateQuestionClose, ActionGoToAnswer}:       StateAnswerShow,
	{StateQuestionClose, ActionGoToFinalResults}: StateFinalResults,
	{StateQuestionClose, ActionEnd}:              StateEnd,

	{StateAnswerShow, ActionNextQuestion}:     StateQuestionCountdown,
	{StateAnswerShow, ActionGoToFinalResults}: StateFinalResults,
	{StateAnswerShow, ActionEnd}:              StateEnd,

	{StateFinalResults, ActionEnd}: StateEnd,
}

// NextState resolves the transition table for (from, action).
func NextState(from SessionState, action Action) (SessionState, bool) {
	to, ok := transitions[transitionKey{from: from, action: action}]
	return to, ok
}
