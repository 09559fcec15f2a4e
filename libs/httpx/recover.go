package httpx

import (
	"log/slog"
	"net/http"
)

func WithRecover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("http handler panic",
						"request_id", RequestIDFromContext(r.Context()),
						"path", r.URL.Path,
						"panic", v,
					)
					WriteError(w, r, http.StatusInternalServerError, ErrorBody{Error: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
