package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
)

// SessionCookie is the cookie carrying the session token
const SessionCookie = "session"

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// UserResolver resolves a session token to its user
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

var _ UserResolver = (*auth.Service)(nil)

// Identity resolves the caller once per request and stores the user in the
// context. Requests without a valid session pass through anonymously;
// RequireUser rejects them where a user is needed.
func Identity(users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey, token)
			user, err := users.CurrentUser(ctx, token)
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, userContextKey, user)
			case errors.Is(err, auth.ErrInvalidSession):
				// Stale cookies are treated as no session at all
			default:
				apierr.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests that Identity did not resolve to a user
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			apierr.WriteError(w, r, apierr.NewUnauthorizedError("Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetUser returns the authenticated user from the request context
func GetUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// GetToken returns the session token presented with the request, valid or not
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// WithUser returns a context carrying user, for handlers invoked directly
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
