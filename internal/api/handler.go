// Package api provides HTTP handlers for the simulator API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/boothsim/internal/engine"
	"github.com/ashureev/boothsim/internal/simulation"
	"github.com/ashureev/boothsim/internal/store"
)

const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	svc     *simulation.Service
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewHandler creates a new Handler. A nil limiter disables rate limiting.
func NewHandler(svc *simulation.Service, limiter *RateLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, limiter: limiter, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// StatusFor maps service errors onto HTTP status codes and stable error codes.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, simulation.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, simulation.ErrUnknownPersona):
		return http.StatusBadRequest, "unknown_persona"
	case errors.Is(err, simulation.ErrScoreNotReady):
		return http.StatusNotFound, "score_not_ready"
	case errors.Is(err, simulation.ErrTurnInFlight):
		return http.StatusConflict, "turn_in_progress"
	case errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict, "version_conflict"
	case errors.Is(err, engine.ErrSessionInactive):
		return http.StatusGone, "session_inactive"
	case errors.Is(err, engine.ErrEmptyMessage):
		return http.StatusBadRequest, "empty_message"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	Error(w, status, code)
}
