package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for the admin gate.
type HTTPHandlers struct {
	authSvc *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints.
func NewHTTPHandlers(authSvc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		authSvc: authSvc,
		logger:  logger.With().Str("component", "auth_http").Logger(),
	}
}

// Login handles POST /v1/auth/login
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Password == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Password is required", "password")
		return
	}

	resp, err := h.authSvc.Login(req.Password)
	switch {
	case errors.Is(err, ErrAdminDisabled):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeAdminDisabled, "Admin access is not configured")
		return
	case errors.Is(err, ErrInvalidPassword):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Wrong password")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("admin login failed")
		httperrors.RespondInternalError(w, "Login failed")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, resp)
}

// Verify handles GET /v1/auth/verify; it is mounted behind RequireAdmin.
func (h *HTTPHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Admin token required")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      true,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt.Time.UnixMilli(),
	})
}
