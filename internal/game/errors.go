package game

import "errors"

// Failures returned by session operations. None of them leave a session partially mutated.
var (
	ErrInvalidTransition   = errors.New("operation not allowed in current phase")
	ErrUnauthorized        = errors.New("host key mismatch")
	ErrSessionNotFound     = errors.New("session not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrDuplicateSubmission = errors.New("answer already recorded")
	ErrAnswerWindowClosed  = errors.New("answer window closed")
	ErrInvalidName         = errors.New("invalid player name")
	ErrNoQuestions         = errors.New("session has no questions")
	ErrInvalidOption       = errors.New("invalid answer option")
	ErrInvalidQuestion     = errors.New("invalid question")
)

// IsRejectedAnswer reports whether err means "answer not accepted".
func IsRejectedAnswer(err error) bool {
	return errors.Is(err, ErrDuplicateSubmission) || errors.Is(err, ErrAnswerWindowClosed)
}
