// Package auth guards mutating HTTP endpoints with a static bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go-micro.dev/v4/auth"
)

// NewAuthWrapper rejects requests whose Authorization header does not carry
// token. An empty token disables the check.
func NewAuthWrapper(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, auth.BearerScheme) {
				http.Error(w, "no auth token provided", http.StatusUnauthorized)
				return
			}

			got := strings.TrimPrefix(header, auth.BearerScheme)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "auth token invalid", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
