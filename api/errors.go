package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/cron"
)

// ErrorResponse is the body of every non-2xx response except status
// views.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, jobs.ErrUnknownJobType),
		errors.Is(err, jobs.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrTaskNotRegistered):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cron.ErrUnknownEntry):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrStoreUnavailable),
		errors.Is(err, jobs.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		msg = "internal error"
	}
	respondJSON(w, status, ErrorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
