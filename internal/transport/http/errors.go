package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bembido/video-to-quiz/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps domain errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrSegmentLocked):
		return http.StatusForbidden, "segment_locked"
	case errors.Is(err, domain.ErrClientRequired):
		return http.StatusBadRequest, "client_required"
	case errors.Is(err, domain.ErrInvalidTimestamp):
		return http.StatusBadRequest, "invalid_timestamp"
	case errors.Is(err, domain.ErrInvalidDuration):
		return http.StatusBadRequest, "invalid_duration"
	case errors.Is(err, domain.ErrSourceRequired), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

var errBadRequest = errors.New("bad request")

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

// writeJSON encodes v before touching the response so an encoding failure
// still produces a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Code: "internal", Message: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
