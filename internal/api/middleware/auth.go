package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dharsanguruparan/staffdrop/internal/apikey"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// AuthFailedBody is the response to a missing or invalid credential.
const AuthFailedBody = `{"error":"Authentication failed"}`

// KeyResolver maps a presented credential to the acting user.
type KeyResolver interface {
	Resolve(ctx context.Context, token string) (model.User, error)
}

type userKey struct{}

// APIKeyAuth reads the credential from X-API-KEY or an Authorization bearer
// header and stores the resolved user on the request context.
func APIKeyAuth(keys KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := Credential(r)
			log := logging.FromContext(r.Context()).With("path", r.URL.Path, "method", r.Method)
			if token == "" {
				log.Warn("auth: missing api key")
				unauthorized(w)
				return
			}
			user, err := keys.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, apikey.ErrInvalidKey) {
					log.Warn("auth: invalid api key")
				} else {
					log.Error("auth: resolve api key", "error", err)
				}
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Credential extracts the raw token from the request headers.
func Credential(r *http.Request) string {
	token := r.Header.Get("X-API-KEY")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	token = strings.TrimSpace(token)
	if rest, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = strings.TrimSpace(rest)
	}
	return token
}

// WithUser attaches the acting user to ctx.
func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// User returns the acting user stored by APIKeyAuth.
func User(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey{}).(model.User)
	return u, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(AuthFailedBody))
}
