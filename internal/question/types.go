package question

import (
	"fmt"
	"strings"

	"github.com/gokatarajesh/partyquiz/internal/game"
)

// Input is a question as submitted by an admin, before it has an id.
type Input struct {
	Context   string   `json:"context,omitempty" yaml:"context,omitempty"`
	Text      string   `json:"text" yaml:"text"`
	Options   []string `json:"options" yaml:"options"`
	Correct   string   `json:"correct" yaml:"correct"`
	Category  string   `json:"category,omitempty" yaml:"category,omitempty"`
	TimeLimit int      `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
}

// Build validates the input and turns it into a question with the given id.
func (in Input) Build(id string) (game.Question, error) {
	if len(in.Options) != len(game.Options) {
		return game.Question{}, fmt.Errorf("%w: exactly %d options are required", game.ErrInvalidQuestion, len(game.Options))
	}
	correct, err := game.ParseOption(in.Correct)
	if err != nil {
		return game.Question{}, fmt.Errorf("%w: correct must be one of A, B, C, D", game.ErrInvalidQuestion)
	}
	q := game.Question{
		ID:        id,
		Context:   strings.TrimSpace(in.Context),
		Text:      strings.TrimSpace(in.Text),
		Correct:   correct,
		Category:  strings.TrimSpace(in.Category),
		TimeLimit: in.TimeLimit,
	}
	for i, opt := range in.Options {
		q.Options[i] = strings.TrimSpace(opt)
	}
	if err := q.Validate(); err != nil {
		return game.Question{}, err
	}
	return q, nil
}

// Patch is a partial update; nil fields keep their current value. An empty
// Context clears it.
type Patch struct {
	Context   *string   `json:"context,omitempty"`
	Text      *string   `json:"text,omitempty"`
	Options   *[]string `json:"options,omitempty"`
	Correct   *string   `json:"correct,omitempty"`
	Category  *string   `json:"category,omitempty"`
	TimeLimit *int      `json:"time_limit,omitempty"`
}

// Apply returns q with the patch applied, validated as a whole.
func (p Patch) Apply(q game.Question) (game.Question, error) {
	in := Input{
		Context:   q.Context,
		Text:      q.Text,
		Options:   q.Options[:],
		Correct:   string(q.Correct),
		Category:  q.Category,
		TimeLimit: q.TimeLimit,
	}
	if p.Context != nil {
		in.Context = *p.Context
	}
	if p.Text != nil {
		in.Text = *p.Text
	}
	if p.Options != nil {
		in.Options = *p.Options
	}
	if p.Correct != nil {
		in.Correct = *p.Correct
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.TimeLimit != nil {
		in.TimeLimit = *p.TimeLimit
	}
	return in.Build(q.ID)
}

// ImportError describes an entry that was skipped during an import.
type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported  int             `json:"imported"`
	Questions []game.Question `json:"questions"`
	Skipped   []ImportError   `json:"skipped,omitempty"`
}
