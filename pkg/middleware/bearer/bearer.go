// Package bearer implements static bearer token authentication.
package bearer

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlinks/pkg/middleware"
	"github.com/vadimbarashkov/shortlinks/pkg/response"
)

// New returns a middleware that admits only requests carrying
// "Authorization: Bearer <token>". Everything else gets 401.
func New(token string) middleware.Middleware {
	expected := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenFromHeader extracts the credentials of a Bearer authorization header.
// The scheme is case-insensitive.
func tokenFromHeader(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
