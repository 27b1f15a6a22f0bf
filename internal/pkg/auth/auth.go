package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rewear/internal/models"

	"github.com/google/uuid"
)

// contextKey is a custom type used for storing values in a context without risking collisions.
type contextKey string

// ContextSession is the key used to store and retrieve the resolved Session from the request context.
const ContextSession contextKey = "contextSession"

// Session is a resolved caller identity. It lives for the duration of one request.
type Session struct {
	UserID    uuid.UUID
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, ContextSession, session)
}

// SessionFromContext returns the session stored in ctx, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(ContextSession).(Session)
	return session, ok && session.UserID != uuid.Nil
}

// TokenFromRequest extracts the session token from the access_token cookie,
// falling back to an "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
