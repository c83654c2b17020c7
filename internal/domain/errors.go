package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizHasNoQuestions is returned when starting a session from an empty quiz.
	ErrQuizHasNoQuestions = errors.New("quiz has no questions")
	// ErrQuizInactive is returned when the quiz has been soft-deleted.
	ErrQuizInactive = errors.New("quiz is inactive")
	// ErrTooManySessions caps concurrent non-END sessions per quiz.
	ErrTooManySessions = errors.New("too many active sessions for quiz")
	// ErrInvalidAutoStartNum is returned for auto-start thresholds outside 0-50.
	ErrInvalidAutoStartNum = errors.New("auto-start number must be between 0 and 50")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotInLobby is returned when joining a session that already started.
	ErrSessionNotInLobby = errors.New("session is not in lobby")
	// ErrNameAlreadyUsed is returned when a player name is taken within the session.
	ErrNameAlreadyUsed = errors.New("name already used in session")
	// ErrPlayerNotFound is returned when a player id is unknown.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidPosition is returned for question positions outside 1..questionCount.
	ErrInvalidPosition = errors.New("question position out of range")
	// ErrSessionNotOnQuestion is returned when the session is not on the given question.
	ErrSessionNotOnQuestion = errors.New("session is not on this question")
	// ErrSessionNotOpen is returned when submitting outside QUESTION_OPEN.
	ErrSessionNotOpen = errors.New("question is not open for answers")
	// ErrEmptyAnswerIDs is returned for submissions without any answer id.
	ErrEmptyAnswerIDs = errors.New("no answer ids submitted")
	// ErrDuplicateAnswerIDs is returned when a submission repeats an answer id.
	ErrDuplicateAnswerIDs = errors.New("duplicate answer ids submitted")
	// ErrInvalidAnswerIDs is returned when an answer id does not belong to the question.
	ErrInvalidAnswerIDs = errors.New("answer id does not belong to question")

	// ErrInvalidTransition is returned when the current state has no edge for the action.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrResultsNotReady is returned when results are requested before the
	// session has reached the state that produces them.
	ErrResultsNotReady = errors.New("results not available yet")

	// ErrEmptyMessage and ErrMessageTooLong bound chat message bodies to 1-100 chars.
	ErrEmptyMessage   = errors.New("message body is empty")
	ErrMessageTooLong = errors.New("message body exceeds 100 characters")
)
