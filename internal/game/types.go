package game

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the lifecycle stage of a session.
type Phase string

// Session phases.
const (
	PhaseLobby       Phase = "LOBBY"
	PhaseContext     Phase = "CONTEXT"
	PhaseQuestion    Phase = "QUESTION"
	PhaseReveal      Phase = "REVEAL"
	PhaseLeaderboard Phase = "LEADERBOARD"
	PhaseEnd         Phase = "END"
)

// Option is one of the four fixed answer slots.
type Option string

// Answer slots, always addressed A=0 .. D=3.
const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Options lists the slots in index order.
var Options = [4]Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption normalizes a client-supplied letter.
func ParseOption(raw string) (Option, error) {
	opt := Option(strings.ToUpper(strings.TrimSpace(raw)))
	if opt.Index() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidOption, raw)
	}
	return opt, nil
}

// Index returns the slot index, or -1 for an unknown letter.
func (o Option) Index() int {
	for i, opt := range Options {
		if opt == o {
			return i
		}
	}
	return -1
}

// Time limit bounds for a single question, in seconds.
const (
	MinTimeLimit = 5
	MaxTimeLimit = 120
)

// Question is one entry of a session's immutable question list.
type Question struct {
	ID        string    `json:"id" yaml:"id"`
	Context   string    `json:"context,omitempty" yaml:"context,omitempty"`
	Text      string    `json:"text" yaml:"text"`
	Options   [4]string `json:"options" yaml:"options"`
	Correct   Option    `json:"correct" yaml:"correct"`
	Category  string    `json:"category,omitempty" yaml:"category,omitempty"`
	TimeLimit int       `json:"time_limit,omitempty" yaml:"time_limit,omitempty"` // seconds; 0 uses the session default
}

// Validate checks the structural rules every question must satisfy.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidQuestion)
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %s is empty", ErrInvalidQuestion, Options[i])
		}
	}
	if q.Correct.Index() < 0 {
		return fmt.Errorf("%w: correct must be one of A, B, C, D", ErrInvalidQuestion)
	}
	if q.TimeLimit != 0 && (q.TimeLimit < MinTimeLimit || q.TimeLimit > MaxTimeLimit) {
		return fmt.Errorf("%w: time limit must be between %d and %d seconds", ErrInvalidQuestion, MinTimeLimit, MaxTimeLimit)
	}
	return nil
}

// HasContext reports whether a preamble scene precedes the question.
func (q Question) HasContext() bool {
	return strings.TrimSpace(q.Context) != ""
}

// Player is a participant of exactly one session.
type Player struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	SessionID          string `json:"session_id"`
	Score              int    `json:"score"`
	Streak             int    `json:"streak"`
	BestStreak         int    `json:"best_streak"`
	AnsweredCount      int    `json:"answered_count"`
	CorrectCount       int    `json:"correct_count"`
	TotalResponseTime  int64  `json:"total_response_time_ms"`
	FastestCorrectTime *int64 `json:"fastest_correct_time_ms"`
	Connected          bool   `json:"connected"`

	joinSeq int
}

// PlayerAnswer is an append-only answer record. A nil Answer marks a timeout.
type PlayerAnswer struct {
	PlayerID      string  `json:"player_id"`
	QuestionIndex int     `json:"question_index"`
	Answer        *Option `json:"answer"`
	TimeMs        int64   `json:"time_ms"`
	Points        int     `json:"points"`
	Correct       bool    `json:"correct"`
}

// StreakAlert is a transient notification for the display.
type StreakAlert struct {
	PlayerName string `json:"player_name"`
	Streak     int    `json:"streak"`
}

// PlayerSummary is the public lobby listing of a player.
type PlayerSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// SessionInfo is a read-only snapshot of session metadata.
type SessionInfo struct {
	ID                   string    `json:"id"`
	JoinCode             string    `json:"join_code"`
	Phase                Phase     `json:"phase"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	TotalQuestions       int       `json:"total_questions"`
	PlayerCount          int       `json:"player_count"`
	Paused               bool      `json:"paused"`
	CreatedAt            time.Time `json:"created_at"`
}
