package question

import (
	"hash/fnv"
	"html"
	"math/rand"
	"strings"

	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/question/external"
)

// Supported external providers.
const (
	ProviderOpenTDB   = "opentdb"
	ProviderTriviaAPI = "triviaapi"
)

func normalizeOpenTDB(q external.OpenTDBQuestion) (Input, bool) {
	incorrect := make([]string, len(q.IncorrectAnswer))
	for i, a := range q.IncorrectAnswer {
		incorrect[i] = html.UnescapeString(a)
	}
	return layout(
		html.UnescapeString(q.Question),
		html.UnescapeString(q.CorrectAnswer),
		incorrect,
		html.UnescapeString(q.Category),
	)
}

func normalizeTriviaAPI(q external.TriviaAPIQuestion) (Input, bool) {
	return layout(q.Text(), q.Correct, q.Incorrect, strings.ReplaceAll(q.Category, "_", " "))
}

// layout places the correct answer among three distractors in the fixed A-D
// slots. The order is shuffled with a seed derived from the question text, so
// the same question always lands the same way.
func layout(text, correct string, incorrect []string, category string) (Input, bool) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(correct) == "" || len(incorrect) < len(game.Options)-1 {
		return Input{}, false
	}

	options := make([]string, 0, len(game.Options))
	options = append(options, correct)
	options = append(options, incorrect[:len(game.Options)-1]...)

	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	letter := game.OptionA
	for i, opt := range options {
		if opt == correct {
			letter = game.Options[i]
			break
		}
	}
	return Input{
		Text:     text,
		Options:  options,
		Correct:  string(letter),
		Category: category,
	}, true
}
