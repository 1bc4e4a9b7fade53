/*
auth.go - Bearer-token authentication middleware

Every ledger route is owner-scoped: the middleware resolves the bearer token
to an owner ID and stores it on the request context. Handlers never read
tokens themselves; they call ownerID(r).

Tokens are static, configured at startup (AUTH_TOKENS). There is no token
issuance or expiry; this serves a single-user deployment with one token per
device.
*/
package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const ownerKey contextKey = iota

// RequireAuth returns middleware that maps "Authorization: Bearer <token>"
// to an owner ID via the given token table. Unknown or missing tokens get
// a 401 with the uniform error body.
func RequireAuth(tokens map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			owner, ok := tokens[token]
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid bearer token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ownerID returns the authenticated owner for the request. Routes behind
// RequireAuth always have one; the empty string only appears in tests that
// skip the middleware.
func ownerID(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey).(string)
	return owner
}
