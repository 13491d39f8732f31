package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"food-rescue-backend/internal/services"

	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondJSON writes v with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, "Request body required", http.StatusBadRequest)
		} else {
			respondError(w, "Invalid request body", http.StatusBadRequest)
		}
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrInvalidPatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailNotConfirmed),
		errors.Is(err, services.ErrRoleNotAllowed),
		errors.Is(err, services.ErrNotAssignedVolunteer):
		return http.StatusForbidden
	case errors.Is(err, services.ErrDonationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrNotAvailable),
		errors.Is(err, services.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrUploadsDisabled),
		errors.Is(err, services.ErrManagerNotStarted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err using its mapped status. Unexpected errors
// are logged and reported with fallback instead of their text.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	statusCode := statusFor(err)
	if statusCode == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
		respondError(w, fallback, statusCode)
		return
	}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, statusCode, ErrorResponse{Error: "Invalid input", Fields: verr.Fields})
		return
	}
	respondError(w, err.Error(), statusCode)
}
