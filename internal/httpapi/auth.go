package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ctxUserKey carries the authenticated user id through the request context.
type ctxUserKey struct{}

// userID returns the authenticated user id set by bearerAuth. It is zero
// only for requests that never passed the middleware.
func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxUserKey{}).(int64)
	return id
}

// bearerAuth enforces "Authorization: Bearer <jwt>" on the API routes. The
// token must be HS256-signed with the configured secret and carry the user
// id in the subject claim; expiry is validated by the parser. Token issuance
// lives with the identity service, not here.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			writeErrorBody(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimSpace(header[len(prefix):]), &claims,
			func(*jwt.Token) (any, error) { return s.cfg.JWTSecret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil {
			s.log.Warn("bearer token rejected", "path", r.URL.Path, "error", err)
			writeErrorBody(w, http.StatusUnauthorized, "invalid token")
			return
		}

		uid, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || uid <= 0 {
			s.log.Warn("bearer token subject is not a user id", "subject", claims.Subject)
			writeErrorBody(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
