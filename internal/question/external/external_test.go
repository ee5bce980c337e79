package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTDBClient_Fetch(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api.php", r.URL.Path)
		query = map[string]string{
			"amount":     r.URL.Query().Get("amount"),
			"type":       r.URL.Query().Get("type"),
			"category":   r.URL.Query().Get("category"),
			"difficulty": r.URL.Query().Get("difficulty"),
		}
		_, _ = w.Write([]byte(`{"response_code":0,"results":[{"category":"Science","type":"multiple","difficulty":"easy","question":"H&#039;2O?","correct_answer":"Water","incorrect_answers":["Salt","Iron","Air"]}]}`))
	}))
	defer srv.Close()

	client := NewOpenTDBClient(srv.URL+"/", srv.Client())
	qs, err := client.Fetch(context.Background(), 5, 17, "easy")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Water", qs[0].CorrectAnswer)
	assert.Len(t, qs[0].IncorrectAnswer, 3)
	assert.Equal(t, map[string]string{"amount": "5", "type": "multiple", "category": "17", "difficulty": "easy"}, query)
}

func TestOpenTDBClient_ResponseCodes(t *testing.T) {
	body := `{"response_code":1,"results":[]}`
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	client := NewOpenTDBClient(srv.URL, srv.Client())

	qs, err := client.Fetch(context.Background(), 5, 0, "")
	require.NoError(t, err)
	assert.Empty(t, qs)

	body = `{"response_code":5,"results":[]}`
	_, err = client.Fetch(context.Background(), 5, 0, "")
	assert.ErrorIs(t, err, ErrRateLimited)

	body = `{"response_code":2,"results":[]}`
	_, err = client.Fetch(context.Background(), 5, 0, "")
	assert.Error(t, err)

	status = http.StatusTooManyRequests
	_, err = client.Fetch(context.Background(), 5, 0, "")
	assert.ErrorIs(t, err, ErrRateLimited)

	status = http.StatusBadGateway
	_, err = client.Fetch(context.Background(), 5, 0, "")
	assert.Error(t, err)
}

func TestTriviaAPIClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/questions", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "text_choice", r.URL.Query().Get("types"))
		assert.Equal(t, "history", r.URL.Query().Get("categories"))
		assert.Equal(t, "key-1", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`[{"id":"q1","category":"history","question":{"text":"Year of the moon landing?"},"difficulty":"easy","type":"text_choice","correctAnswer":"1969","incorrectAnswers":["1959","1979","1989"]}]`))
	}))
	defer srv.Close()

	client := NewTriviaAPIClient(srv.URL, "key-1", srv.Client())
	qs, err := client.Fetch(context.Background(), 3, "history", "")
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Year of the moon landing?", qs[0].Text())
	assert.Equal(t, "1969", qs[0].Correct)
}

func TestTriviaAPIClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewTriviaAPIClient(srv.URL, "", srv.Client()).Fetch(context.Background(), 1, "", "")
	assert.ErrorIs(t, err, ErrRateLimited)
}
