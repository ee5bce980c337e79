package question

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/gokatarajesh/partyquiz/internal/game"
)

type seedFile struct {
	Questions []Input `json:"questions" yaml:"questions"`
}

// LoadSeed reads a YAML or JSON question file. Every entry must be valid.
func LoadSeed(path string) ([]game.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(data, filepath.Ext(path))
}

func parseSeed(data []byte, ext string) ([]game.Question, error) {
	var file seedFile
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode seed json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode seed yaml: %w", err)
		}
	}

	questions := make([]game.Question, 0, len(file.Questions))
	for i, in := range file.Questions {
		q, err := in.Build(uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("seed question %d: %w", i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Samples returns the built-in starter bank used when no seed file is configured.
func Samples() []game.Question {
	inputs := []Input{
		{Text: "Which planet is known as the Red Planet?", Options: []string{"Mars", "Venus", "Jupiter", "Saturn"}, Correct: "A", Category: "Science"},
		{Text: "What is the chemical symbol for gold?", Options: []string{"Fe", "Cu", "Ag", "Au"}, Correct: "D", Category: "Science"},
		{Text: "How many players does a football (soccer) team field?", Options: []string{"9", "12", "11", "10"}, Correct: "C", Category: "Sports"},
		{Text: "What is the tallest building in the world?", Options: []string{"Shanghai Tower", "Abraj Al-Bait", "Lotte World Tower", "Burj Khalifa"}, Correct: "D", Category: "Geography"},
		{Text: "Which is the longest river in the world?", Options: []string{"Mississippi", "Yangtze", "Nile", "Amazon"}, Correct: "C", Category: "Geography"},
		{
			Context:  "In 1969 a lunar module touched down in the Sea of Tranquility.",
			Text:     "Who was the first person to step onto the Moon?",
			Options:  []string{"Buzz Aldrin", "Neil Armstrong", "Yuri Gagarin", "Michael Collins"},
			Correct:  "B",
			Category: "History",
		},
		{Text: "Who co-founded Apple together with Steve Wozniak?", Options: []string{"Mark Zuckerberg", "Steve Jobs", "Elon Musk", "Bill Gates"}, Correct: "B", Category: "Technology"},
		{Text: "What is the largest ocean on Earth?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, Correct: "D", Category: "Geography"},
		{Text: "How many sides does a hexagon have?", Options: []string{"Six", "Five", "Eight", "Seven"}, Correct: "A", Category: "Math", TimeLimit: 15},
		{Text: "Which language runs natively in web browsers?", Options: []string{"Go", "JavaScript", "Rust", "Python"}, Correct: "B", Category: "Technology"},
	}

	questions := make([]game.Question, 0, len(inputs))
	for _, in := range inputs {
		q, err := in.Build(uuid.NewString())
		if err != nil {
			panic(fmt.Sprintf("invalid built-in question %q: %v", in.Text, err))
		}
		questions = append(questions, q)
	}
	return questions
}
