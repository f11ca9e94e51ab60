// Package handlers provides HTTP handlers for the Catalog Engine API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// ErrorDTO is the JSON error envelope for every non-2xx response.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *observability.Logger, status int, message string, err error) {
	dto := ErrorDTO{Error: message}
	if err != nil {
		dto.Details = err.Error()
		logger.Warn().Err(err).Int("status", status).Str("message", message).Msg("request failed")
	}
	writeJSON(w, status, dto)
}

// statusForError maps domain error categories to HTTP status codes.
func statusForError(err error) int {
	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		return http.StatusInternalServerError
	}
	switch derr.Type {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeIngestion, domain.ErrorTypeConversion:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
