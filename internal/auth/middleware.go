package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
)

// AdminTokenHeader carries the admin token on every privileged request.
const AdminTokenHeader = "X-Admin-Token"

type claimsKey struct{}

// ClaimsFromContext returns the admin claims injected by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// RequireAdmin rejects requests without a valid admin token. The token is read
// from X-Admin-Token, falling back to an Authorization bearer.
func RequireAdmin(authSvc *Service, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Admin token required")
				return
			}

			claims, err := authSvc.ValidateToken(token)
			if err != nil {
				respondTokenError(w, err)
				if !errors.Is(err, ErrAdminDisabled) {
					logger.Warn().Err(err).Str("path", r.URL.Path).Msg("admin token rejected")
				}
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(AdminTokenHeader)); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func respondTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAdminDisabled):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeAdminDisabled, "Admin access is not configured")
	case errors.Is(err, jwt.ErrExpiredToken):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeTokenExpired, "Token expired")
	default:
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
	}
}
