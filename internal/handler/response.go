package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/skillswap/internal/domain"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is the body of replies that carry only a confirmation.
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForError maps an error kind to an HTTP status.
func statusForError(err error) int {
	switch domain.Kind(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrConflict:
		return http.StatusConflict
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the client-facing text for err. Storage failures
// are never echoed.
func errorMessage(err error) string {
	if domain.Kind(err) == domain.ErrStorage {
		return "internal server error"
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Error()
	}
	var kindErr *domain.KindError
	if errors.As(err, &kindErr) {
		return kindErr.Error()
	}
	return err.Error()
}

// writeError writes err as a JSON error body with the status for its kind.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: errorMessage(err)})
}

// badRequest writes a validation error with a fixed message.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
