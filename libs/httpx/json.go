package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape every service uses for error responses.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	if body.RequestID == "" {
		body.RequestID = RequestIDFromContext(r.Context())
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes a request body, rejecting unknown fields and trailing data.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return &json.SyntaxError{Offset: dec.InputOffset()}
	}
	return nil
}
