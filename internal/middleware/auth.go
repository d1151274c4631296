package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"habitat-server/internal/auth"
	"habitat-server/internal/shared/cookies"
	"habitat-server/internal/shared/errors"
	"habitat-server/internal/shared/response"
)

type contextKey string

const SessionClaimsKey contextKey = "session_claims"

// TokenValidator is satisfied by auth.TokenService.
type TokenValidator interface {
	ValidateJWT(token string) (*auth.Claims, error)
}

// SessionAuth requires a session token whose session matches the {id} path
// value. The token is read from the Authorization bearer header, the session
// cookie, or a "token" query parameter for websocket clients.
func SessionAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := slog.With(
				"middleware", "session_auth",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			raw := tokenFromRequest(r)
			if raw == "" {
				response.Error(w, r, logger, errors.Unauthorized("session token required"))
				return
			}

			claims, err := tokens.ValidateJWT(raw)
			if err != nil {
				response.Error(w, r, logger, errors.WrapUnauthorized("invalid session token", err))
				return
			}

			if id := r.PathValue("id"); id != "" && id != claims.SessionID {
				response.Error(w, r, logger, errors.Forbidden("token does not grant access to this session"))
				return
			}

			ctx := context.WithValue(r.Context(), SessionClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookies.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

func GetSessionClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(SessionClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
