// Package identity resolves the bearer token of a request into the console user.
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/ashureev/wooagent/internal/domain"
)

// TokenQueryParam carries the token for clients that cannot set headers (browser websockets).
const TokenQueryParam = "token"

type contextKey int

const (
	userKey contextKey = iota
	tokenKey
)

// Resolver looks up the user a token was issued to.
type Resolver interface {
	UserForToken(ctx context.Context, token string) (*domain.User, error)
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) *domain.User {
	if v, ok := ctx.Value(userKey).(*domain.User); ok {
		return v
	}
	return nil
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

// TokenFromContext returns the bearer token the request authenticated with.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

// WithUser returns ctx carrying user and token.
func WithUser(ctx context.Context, user *domain.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// WebSocketToken reads the bearer header, falling back to the token query parameter.
func WebSocketToken(r *http.Request) string {
	if t := BearerToken(r); t != "" {
		return t
	}
	return strings.TrimSpace(r.URL.Query().Get(TokenQueryParam))
}

// Middleware rejects requests without a valid bearer token with 401 and stores the
// user in the context otherwise.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return authenticate(resolver, BearerToken)
}

// WebSocketMiddleware is Middleware for websocket upgrades, which also accept the
// token query parameter.
func WebSocketMiddleware(resolver Resolver) func(http.Handler) http.Handler {
	return authenticate(resolver, WebSocketToken)
}

func authenticate(resolver Resolver, tokenOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenOf(r)
			if token == "" {
				unauthorized(w)
				return
			}
			user, err := resolver.UserForToken(r.Context(), token)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, token)))
		})
	}
}

// RedactToken returns a shallow copy of r whose URL hides the token query value.
// r is returned unchanged when it carries no token parameter.
func RedactToken(r *http.Request) *http.Request {
	q := r.URL.Query()
	if !q.Has(TokenQueryParam) {
		return r
	}
	q.Set(TokenQueryParam, "REDACTED")
	u := *r.URL
	u.RawQuery = q.Encode()
	out := new(http.Request)
	*out = *r
	out.URL = &u
	out.RequestURI = u.RequestURI()
	return out
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"unauthorized"}`))
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
