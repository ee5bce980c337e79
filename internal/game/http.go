package game

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
)

const qrSize = 320

// HTTPHandlers provides REST endpoints around live sessions.
type HTTPHandlers struct {
	service   *Service
	publicURL string
	logger    zerolog.Logger
}

// NewHTTPHandlers creates session HTTP handlers. publicURL is the base of the
// player join link encoded in QR codes.
func NewHTTPHandlers(service *Service, publicURL string, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service:   service,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("component", "game_http").Logger(),
	}
}

// ServerTime handles GET /v1/time
func (h *HTTPHandlers) ServerTime(w http.ResponseWriter, r *http.Request) {
	httperrors.RespondJSON(w, http.StatusOK, map[string]int64{"server_time": h.service.ServerTime()})
}

// ListSessions handles GET /v1/sessions
func (h *HTTPHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"sessions": h.service.ListSessions()})
}

// GetSession handles GET /v1/sessions/{id}
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, info)
}

// ResolveCode handles GET /v1/codes/{code}
func (h *HTTPHandlers) ResolveCode(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ResolveCode(r.PathValue("code"))
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, info)
}

// Leaderboard handles GET /v1/sessions/{id}/leaderboard
func (h *HTTPHandlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// QRCode handles GET /v1/sessions/{id}/qr and renders the player join link as a PNG.
func (h *HTTPHandlers) QRCode(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	png, err := qrcode.Encode(h.JoinURL(info.JoinCode), qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", info.ID).Msg("failed to render QR code")
		httperrors.RespondInternalError(w, "Failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// DeleteSession handles DELETE /v1/sessions/{id}; the host key travels in X-Host-Key.
func (h *HTTPHandlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	hostKey := r.Header.Get("X-Host-Key")
	if hostKey == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "X-Host-Key header is required")
		return
	}
	if err := h.service.DeleteSession(r.Context(), r.PathValue("id"), hostKey); err != nil {
		h.respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinURL is the link players open to join with a code.
func (h *HTTPHandlers) JoinURL(code string) string {
	return fmt.Sprintf("%s/play?code=%s", h.publicURL, url.QueryEscape(code))
}

func (h *HTTPHandlers) respondFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("session request failed")
		httperrors.RespondInternalError(w, "Internal error")
		return
	}
	httperrors.RespondError(w, status, code, err.Error())
}
