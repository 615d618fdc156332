package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader is echoed back on every response so clients can quote it
// in bug reports.
const requestIDHeader = "X-Request-ID"

// ctxRequestIDKey carries the request id through the request context.
type ctxRequestIDKey struct{}

// RequestID returns the id assigned by the requestID middleware, or "" when
// the request never passed through it.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestIDKey{}).(string)
	return id
}

// requestID tags every request with a uuid, honouring an inbound
// X-Request-ID so ids survive proxy hops.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), ctxRequestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
