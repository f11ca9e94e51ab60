package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/catalogmind/catalog-engine/internal/observability"
	"github.com/catalogmind/catalog-engine/pkg/engine"
)

// QueryHandler handles product questions.
type QueryHandler struct {
	logger *observability.Logger
	engine *engine.Engine
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(logger *observability.Logger, eng *engine.Engine) *QueryHandler {
	return &QueryHandler{logger: logger, engine: eng}
}

// AskRequestDTO is the request body for POST /v1/ask.
type AskRequestDTO struct {
	Question string `json:"question"`
}

// Ask handles POST /v1/ask.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err)
		return
	}

	answer, err := h.engine.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, h.logger, statusForError(err), "question could not be answered", err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
