package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/wykstemteam/wykoj/internal/config"
)

// validateAuthToken guards the internal endpoints with the shared secret the
// judge backend and admin tooling are configured with.
func (s *API) validateAuthToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		secret := config.C.Common.SharedSecret
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			errorData(w, "Invalid auth token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
