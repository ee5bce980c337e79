package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// OpenTDBClient fetches questions from the Open Trivia DB (no API key).
type OpenTDBClient struct {
	provider
}

func NewOpenTDBClient(baseURL string, httpClient *http.Client) *OpenTDBClient {
	return &OpenTDBClient{provider: newProvider("opentdb", baseURL, "https://opentdb.com", httpClient)}
}

// OpenTDBQuestion is a raw result; text fields are HTML-entity encoded.
type OpenTDBQuestion struct {
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Question        string   `json:"question"`
	CorrectAnswer   string   `json:"correct_answer"`
	IncorrectAnswer []string `json:"incorrect_answers"`
}

// OpenTDB signals most failures in the body with a 200 status.
const (
	openTDBOK          = 0
	openTDBNoResults   = 1
	openTDBRateLimited = 5
)

// Fetch returns up to amount multiple-choice questions. category is the
// numeric OpenTDB category id; 0 means any.
func (c *OpenTDBClient) Fetch(ctx context.Context, amount, category int, difficulty string) ([]OpenTDBQuestion, error) {
	query := url.Values{
		"amount": {strconv.Itoa(amount)},
		"type":   {"multiple"},
	}
	if category > 0 {
		query.Set("category", strconv.Itoa(category))
	}
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}

	var body struct {
		ResponseCode int               `json:"response_code"`
		Results      []OpenTDBQuestion `json:"results"`
	}
	if err := c.getJSON(ctx, "/api.php", query, &body); err != nil {
		return nil, err
	}

	switch body.ResponseCode {
	case openTDBOK:
		return body.Results, nil
	case openTDBNoResults:
		return nil, nil
	case openTDBRateLimited:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("opentdb: response code %d", body.ResponseCode)
	}
}
