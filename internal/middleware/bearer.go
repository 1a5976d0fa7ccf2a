// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/atinyakov/ContactKeeper/internal/models"
	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

// IdentityResolver maps a bearer access token to the user it was issued for.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// BearerAuth is a middleware that requires a valid access token.
//
// It reads the token from the "Authorization: Bearer <token>" header and
// resolves it to a user. Any failure (missing header, bad or expired token,
// refresh token, unknown user) ends the request with 401 and a
// WWW-Authenticate challenge; the reason is logged, never returned.
//
// On success the resolved user is stored in the request context and can be
// read downstream with UserFromContext.
func BearerAuth(resolver IdentityResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				log.Info("authentication failed", zap.String("path", r.URL.Path), zap.String("reason", "missing bearer token"))
				WriteUnauthorized(w)
				return
			}
			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Info("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
				WriteUnauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
// The scheme name is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// WriteUnauthorized answers with the generic 401 used for every
// authentication failure.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "could not validate credentials", http.StatusUnauthorized)
}

// UserFromContext returns the user stored by BearerAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}
