package external

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// TriviaAPIClient integrates with the-trivia-api.com. The API key is optional
// and only lifts the anonymous rate limit.
type TriviaAPIClient struct {
	provider
}

func NewTriviaAPIClient(baseURL, apiKey string, httpClient *http.Client) *TriviaAPIClient {
	p := newProvider("triviaapi", baseURL, "https://the-trivia-api.com/v2", httpClient)
	if apiKey != "" {
		p.header.Set("X-API-Key", apiKey)
	}
	return &TriviaAPIClient{provider: p}
}

type TriviaAPIQuestion struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Question struct {
		Text string `json:"text"`
	} `json:"question"`
	Difficulty string   `json:"difficulty"`
	Type       string   `json:"type"`
	Correct    string   `json:"correctAnswer"`
	Incorrect  []string `json:"incorrectAnswers"`
}

// Text returns the question prompt.
func (q TriviaAPIQuestion) Text() string { return q.Question.Text }

// Fetch returns up to amount text-choice questions. category is a provider
// slug such as "science"; empty means any.
func (c *TriviaAPIClient) Fetch(ctx context.Context, amount int, category, difficulty string) ([]TriviaAPIQuestion, error) {
	query := url.Values{
		"limit": {strconv.Itoa(amount)},
		"types": {"text_choice"},
	}
	if category != "" {
		query.Set("categories", category)
	}
	if difficulty != "" {
		query.Set("difficulties", difficulty)
	}

	var out []TriviaAPIQuestion
	if err := c.getJSON(ctx, "/questions", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}
