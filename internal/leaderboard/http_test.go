package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

type topResponse struct {
	Window string                `json:"window"`
	Top    []ws.LeaderboardEntry `json:"top"`
	Source string                `json:"source"`
}

func getLeaderboard(t *testing.T, h *HTTPHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/leaderboards/{window}", h.HandleGet)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHTTPHandler_FromRedis(t *testing.T) {
	f := newLBFixture(t)
	ctx := context.Background()
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, f.svc.RecordResult(ctx, result(name, 100*(i+1), 1, false)))
	}

	rec := getLeaderboard(t, NewHTTPHandler(f.svc, nil, zerolog.Nop()), "/v1/leaderboards/daily?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body topResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, WindowDaily, body.Window)
	assert.Equal(t, "redis", body.Source)
	require.Len(t, body.Top, 2)
	assert.Equal(t, "c", body.Top[0].PlayerKey)
	assert.Equal(t, 2, body.Top[1].Rank)
}

func TestHTTPHandler_UnknownWindow(t *testing.T) {
	rec := getLeaderboard(t, NewHTTPHandler(nil, nil, zerolog.Nop()), "/v1/leaderboards/yearly")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httperrors.ErrCodeUnknownLeaderboardWindow, body.Error)
}

func TestHTTPHandler_SnapshotFallback(t *testing.T) {
	entries, err := json.Marshal([]ws.LeaderboardEntry{
		{Rank: 1, PlayerKey: "ann", DisplayName: "Ann", Score: 900},
		{Rank: 2, PlayerKey: "ben", DisplayName: "Ben", Score: 400},
	})
	require.NoError(t, err)
	store := &memorySnapshots{snapshots: []Snapshot{{Window: WindowWeekly, Entries: entries}}}

	f := newLBFixture(t)
	rec := getLeaderboard(t, NewHTTPHandler(f.svc, store, zerolog.Nop()), "/v1/leaderboards/weekly?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body topResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "snapshot", body.Source)
	require.Len(t, body.Top, 1)
	assert.Equal(t, "ann", body.Top[0].PlayerKey)
}

func TestHTTPHandler_EmptyBoard(t *testing.T) {
	f := newLBFixture(t)
	rec := getLeaderboard(t, NewHTTPHandler(f.svc, &memorySnapshots{}, zerolog.Nop()), "/v1/leaderboards/all_time")
	require.Equal(t, http.StatusOK, rec.Code)

	var body topResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Top)
	assert.Empty(t, body.Top)
}

func TestHTTPHandler_AllSourcesDown(t *testing.T) {
	f := newLBFixture(t)
	f.mr.Close()
	store := &memorySnapshots{err: errors.New("db down")}

	rec := getLeaderboard(t, NewHTTPHandler(f.svc, store, zerolog.Nop()), "/v1/leaderboards/daily")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
