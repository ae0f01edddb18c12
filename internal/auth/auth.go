// Package auth resolves an already-issued session token into a trusted
// user identity. Session issuance itself happens out of band.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// SessionResolver maps a bearer token to a user ID. Implemented by the
// storage gateway's session surface.
type SessionResolver interface {
	UserForSession(ctx context.Context, token string) (string, error)
}

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user ID from the request context, or
// "" when the request is anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID attaches a resolved identity to the context. Exposed for
// handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware resolves the Authorization bearer token, if present, and
// stores the user ID in the request context. It does not reject: that is
// RequireAuth's job, so public routes can share the chain.
func Middleware(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				if userID, err := sessions.UserForSession(r.Context(), token); err == nil {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that carry no resolved identity.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserID(r.Context()) == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":"NOT_AUTHENTICATED","message":"authentication required"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
