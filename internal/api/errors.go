package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/growwiz/growwiz-core/internal/audit"
	"github.com/growwiz/growwiz-core/internal/auth"
	"github.com/growwiz/growwiz-core/internal/automation"
	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// Error is the body of a failed request, nested under "error".
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error Error `json:"error"`
}

// Common error codes.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeNotFound            = "not_found"
	ErrCodeUnauthorized        = "unauthorised"
	ErrCodeConflict            = "conflict"
	ErrCodeInternal            = "internal_error"
	ErrCodeValidation          = "validation_error"
	ErrCodeUnknownDevice       = "unknown_device"
	ErrCodeEmergencyStopActive = "emergency_stop_active"
	ErrCodeReadingUnavailable  = "reading_unavailable"
	ErrCodeRateLimited         = "rate_limited"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: Error{Code: code, Message: message}})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a domain error to its status code. Unrecognised
// errors are logged and reported as a 500 with fallback as the message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, device.ErrUnknownDevice):
		writeError(w, http.StatusBadRequest, ErrCodeUnknownDevice, err.Error())
	case errors.Is(err, device.ErrInvalidState),
		errors.Is(err, audit.ErrInvalidEntry):
		writeBadRequest(w, err.Error())
	case errors.Is(err, automation.ErrInvalidRule):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, automation.ErrRuleNotFound):
		writeNotFound(w, "rule not found")
	case errors.Is(err, automation.ErrEmergencyStopActive):
		writeError(w, http.StatusConflict, ErrCodeEmergencyStopActive, "emergency stop is active; resume first")
	case errors.Is(err, reading.ErrReadingUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeReadingUnavailable, "sensor readings unavailable")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid username or password")
	case errors.Is(err, auth.ErrTokenInvalid):
		writeUnauthorized(w, "invalid or expired token")
	default:
		s.logger.Error(fallback,
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, fallback)
	}
}
