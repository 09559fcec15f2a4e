package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/vetclinic/libs/httpx"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
)

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case model.IsValidation(err):
		return http.StatusBadRequest
	case model.IsConflict(err):
		return http.StatusConflict
	case model.IsAuthorization(err):
		return http.StatusForbidden
	case model.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	body := httpx.ErrorBody{Error: err.Error(), Kind: model.ErrorKind(err)}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	switch status {
	case http.StatusUnauthorized:
		body.Kind = "unauthenticated"
		w.Header().Set("WWW-Authenticate", "Bearer")
	case http.StatusInternalServerError:
		logger.Error("request failed",
			"err", err,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)
		body.Error = "internal error"
	}
	httpx.WriteError(w, r, status, body)
}
