package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// ClassifyHandler exposes the intent router without composing a reply.
type ClassifyHandler struct {
	logger    *observability.Logger
	assistant *assistant.Assistant
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(logger *observability.Logger, a *assistant.Assistant) *ClassifyHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ClassifyHandler{logger: logger, assistant: a}
}

// Classify returns the routing decision for an utterance.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req textRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	cl := h.assistant.Classify(req.Text)
	h.logger.WithContext(r.Context()).Debug().
		Str("intent", string(cl.Intent)).
		Str("branch", string(cl.Branch)).
		Msg("Classified utterance")

	writeJSON(w, http.StatusOK, cl)
}
