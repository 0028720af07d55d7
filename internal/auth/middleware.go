package auth

import (
	"context"
	"net/http"
	"strings"

	"audittrail-backend/internal/httpx"
	"audittrail-backend/internal/models"
)

// SessionCookie carries the opaque token for browser clients; API clients may
// send the same token as a bearer credential instead.
const SessionCookie = "audit_session"

type contextKey string

const actorKey contextKey = "audittrail_actor"

// Actor is the resolved identity attached to an authenticated request.
type Actor struct {
	UserID    string
	AccountID string
	Email     string
	Role      models.Role
	Token     string
}

// Middleware resolves the request's session token into an Actor. Missing,
// unknown and expired tokens all fail with the same 401.
func Middleware(sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" {
				httpx.Unauthenticated(w)
				return
			}

			session, err := sessions.Find(r.Context(), token)
			if err != nil {
				httpx.Unauthenticated(w)
				return
			}

			actor := Actor{
				UserID:    session.UserID,
				AccountID: session.AccountID,
				Email:     session.Email,
				Role:      session.Role,
				Token:     token,
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor placed by Middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

func requestToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
