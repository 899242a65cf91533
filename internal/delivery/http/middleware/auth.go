package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "crewplanner/internal/delivery/http/helpers"
	"crewplanner/internal/domain"
)

type contextKey string

const signedInUserKey contextKey = "signedInUser"

// SetSignedInUser returns a context carrying the authenticated caller. Used by auth middleware.
func SetSignedInUser(ctx context.Context, user domain.SignedInUser) context.Context {
	return context.WithValue(ctx, signedInUserKey, user)
}

// SignedInUserFromContext returns the authenticated caller from the context, if present.
func SignedInUserFromContext(ctx context.Context) (domain.SignedInUser, bool) {
	user, ok := ctx.Value(signedInUserKey).(domain.SignedInUser)
	return user, ok
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the signed-in user in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			user, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetSignedInUser(r.Context(), user)))
		}
	}
}
