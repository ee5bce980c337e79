package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/partyquiz/internal/auth"
	"github.com/gokatarajesh/partyquiz/internal/config"
	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/question"
)

func testConfig() *config.App {
	return &config.App{
		HTTPAddr: "127.0.0.1:0",
		CORS: config.CORS{
			AllowedOrigins: []string{"http://display.local"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type", "X-Admin-Token"},
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))

	svc := game.NewService(game.NewStore(nil, logger), nil, nil, nil, game.ServiceOptions{Clock: clock}, logger)
	authSvc, err := auth.NewService(auth.ServiceOptions{}, logger)
	require.NoError(t, err)
	questions := question.NewService(question.NewMemoryRepository(question.Samples()), nil, nil, nil, logger)

	return NewRouter(testConfig(), logger, Dependencies{}, Handlers{
		Game:      game.NewHTTPHandlers(svc, "http://quiz.local", logger),
		Questions: question.NewHTTPHandler(questions, logger),
		Auth:      auth.NewHTTPHandlers(authSvc, logger),
		AuthSvc:   authSvc,
	})
}

func TestRouter_HealthAndPing(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/v1/ping", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_ServerTime(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/time", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"server_time":1792324800000}`, rec.Body.String())
}

func TestRouter_QuestionsNeedAdmin(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/questions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/questions", nil)
	req.Header.Set("X-Admin-Token", "whatever")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "http://display.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://display.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "http://evil.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	up := NewUpgrader([]string{"http://display.local/"})

	check := func(origin, host string) bool {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = host
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return up.CheckOrigin(r)
	}

	assert.True(t, check("", "api.local"))
	assert.True(t, check("http://display.local", "api.local"))
	assert.True(t, check("http://api.local", "api.local"))
	assert.False(t, check("http://evil.local", "api.local"))

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "http://evil.local")
	assert.True(t, NewUpgrader([]string{"*"}).CheckOrigin(r))
}
