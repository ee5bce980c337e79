package leaderboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

// HTTPHandler exposes REST endpoints for hall-of-fame queries.
type HTTPHandler struct {
	svc       *Service
	snapshots SnapshotStore
	logger    zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler. Either dependency may be nil.
func NewHTTPHandler(svc *Service, snapshots SnapshotStore, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:       svc,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the current leaderboard for a window.
// Route: GET /v1/leaderboards/{window}?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	window := r.PathValue("window")
	if !IsValidWindow(window) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownLeaderboardWindow, "Unknown leaderboard window")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	ctx := r.Context()
	var (
		top    []ws.LeaderboardEntry
		source = "redis"
		failed bool
	)

	if h.svc != nil {
		if entries, err := h.svc.Top(ctx, window, limit); err == nil {
			top = wireEntries(entries)
		} else {
			failed = true
			h.logger.Warn().Err(err).Str("window", window).Msg("redis leaderboard fetch failed")
		}
	}

	if len(top) == 0 {
		source = "snapshot"
		var ok bool
		top, ok = h.snapshotFallback(ctx, window, limit)
		if !ok && failed {
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLeaderboardFetchFailed, "Leaderboard is unavailable")
			return
		}
	}
	if top == nil {
		top = []ws.LeaderboardEntry{}
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"window":       window,
		"top":          top,
		"source":       source,
		"retrieved_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HTTPHandler) snapshotFallback(ctx context.Context, window string, limit int) ([]ws.LeaderboardEntry, bool) {
	if h.snapshots == nil {
		return nil, false
	}
	snap, err := h.snapshots.LatestSnapshot(ctx, window)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			h.logger.Warn().Err(err).Str("window", window).Msg("snapshot fetch failed")
			return nil, false
		}
		return nil, true
	}

	entries, err := decodeSnapshot(snap, limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("snapshot payload decode failed")
		return nil, false
	}
	return entries, true
}
