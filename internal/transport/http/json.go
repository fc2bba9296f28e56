package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-attempt-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDefinitionLoad):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrMalformedDefinition),
		errors.Is(err, domain.ErrMalformedQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrKindMismatch),
		errors.Is(err, domain.ErrAttemptNotFinished):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRating):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

var (
	errInvalidPayload     = errors.New("invalid payload")
	errUnsupportedMessage = errors.New("unsupported message type")
)
