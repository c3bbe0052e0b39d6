package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/conversation"
	"github.com/shopmate/assistant-engine/internal/events"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// ConversationHandler serves the conversation lifecycle and its event stream.
type ConversationHandler struct {
	logger    *observability.Logger
	sessions  *conversation.Manager
	broker    events.Broker
	heartbeat time.Duration
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(logger *observability.Logger, sessions *conversation.Manager, broker events.Broker) *ConversationHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ConversationHandler{
		logger:    logger,
		sessions:  sessions,
		broker:    broker,
		heartbeat: 15 * time.Second,
	}
}

// ConversationDTO is the current state of a conversation.
type ConversationDTO struct {
	ID          string                     `json:"id"`
	Messages    []conversation.ChatMessage `json:"messages"`
	Suggestions []string                   `json:"suggestions"`
	Products    []catalog.ProductSummary   `json:"products"`
}

// MessagesDTO is a conversation's message log.
type MessagesDTO struct {
	ConversationID string                     `json:"conversationId"`
	Messages       []conversation.ChatMessage `json:"messages"`
}

// TurnDTO is the outcome of posting a message.
type TurnDTO struct {
	ConversationID string                   `json:"conversationId"`
	User           conversation.ChatMessage `json:"user"`
	Reply          conversation.ChatMessage `json:"reply"`
	Intent         assistant.Intent         `json:"intent"`
	Branch         assistant.Branch         `json:"branch,omitempty"`
	Suggestions    []string                 `json:"suggestions"`
	Products       []catalog.ProductSummary `json:"products"`
}

// Create starts a new conversation.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create()
	if errors.Is(err, conversation.ErrTooManySessions) {
		writeError(w, http.StatusServiceUnavailable, "too many active conversations", "")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create conversation")
		writeError(w, http.StatusInternalServerError, "failed to create conversation", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toConversationDTO(s))
}

// Get returns a conversation's log, suggestions and latest products.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toConversationDTO(s))
}

// Messages returns the conversation log, oldest first.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MessagesDTO{
		ConversationID: s.ID(),
		Messages:       s.Messages(),
	})
}

// Delete ends a conversation.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "conversationId")); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage runs one turn of the conversation.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req textRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	turn, err := s.SendUserMessage(r.Context(), req.Text)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrSessionClosed):
		writeError(w, http.StatusNotFound, "conversation not found", err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "reply timed out", "")
		return
	case errors.Is(err, context.Canceled):
		return
	default:
		h.logger.WithContext(r.Context()).Error().Err(err).Str("conversation_id", s.ID()).Msg("Turn failed")
		writeError(w, http.StatusInternalServerError, "turn failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TurnDTO{
		ConversationID: s.ID(),
		User:           turn.User,
		Reply:          turn.Assistant,
		Intent:         turn.Response.Intent,
		Branch:         turn.Response.Branch,
		Suggestions:    nonNil(turn.Response.Suggestions),
		Products:       nonNilProducts(turn.Response.Products),
	})
}

// Events streams conversation events as server-sent events until the client
// disconnects.
func (h *ConversationHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	ctx := r.Context()
	ch, unsubscribe, err := h.broker.Subscribe(ctx, events.Channel(s.ID()))
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("conversation_id", s.ID()).Msg("Subscribe failed")
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable", err.Error())
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case payload, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *ConversationHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "conversationId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found", "")
		return nil, false
	}
	return s, true
}

func toConversationDTO(s *conversation.Session) ConversationDTO {
	return ConversationDTO{
		ID:          s.ID(),
		Messages:    s.Messages(),
		Suggestions: s.Suggestions(),
		Products:    s.Products(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilProducts(p []catalog.ProductSummary) []catalog.ProductSummary {
	if p == nil {
		return []catalog.ProductSummary{}
	}
	return p
}
