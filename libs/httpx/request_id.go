package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

const RequestIDHeader = "X-Request-Id"

const maxRequestIDLength = 128

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// ValidRequestID reports whether a caller-supplied id is safe to log and echo: non-empty,
// at most 128 bytes and made of printable ASCII without spaces.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// WithRequestID adopts the caller's X-Request-Id when it is well formed and mints a UUID
// otherwise. The id is echoed in the response and stored in the request context.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !ValidRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}
