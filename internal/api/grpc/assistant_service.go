// Package grpc provides Connect service implementations for the assistant.
package grpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/conversation"
	"github.com/shopmate/assistant-engine/internal/observability"
)

const (
	// ServiceName is the fully-qualified name of the assistant service.
	ServiceName = "assistant.v1.AssistantService"

	SendProcedure     = "/" + ServiceName + "/Send"
	ClassifyProcedure = "/" + ServiceName + "/Classify"
)

// AssistantService implements the Connect assistant service.
type AssistantService struct {
	logger    *observability.Logger
	manager   *conversation.Manager
	assistant *assistant.Assistant
}

// NewAssistantService creates a new assistant service.
func NewAssistantService(logger *observability.Logger, manager *conversation.Manager, a *assistant.Assistant) *AssistantService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AssistantService{
		logger:    logger,
		manager:   manager,
		assistant: a,
	}
}

// SendRequest is one user message. An empty conversation_id starts a new
// conversation.
type SendRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
}

// SendResponse carries the assistant's reply for one turn.
type SendResponse struct {
	ConversationID string                   `json:"conversation_id"`
	Intent         string                   `json:"intent"`
	Branch         string                   `json:"branch,omitempty"`
	User           *Message                 `json:"user"`
	Reply          *Message                 `json:"reply"`
	Suggestions    []string                 `json:"suggestions"`
	Products       []catalog.ProductSummary `json:"products"`
}

// Message is a chat message on the wire.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// ClassifyRequest asks for the routing decision of an utterance.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse is the router's decision.
type ClassifyResponse struct {
	Intent     string          `json:"intent"`
	Branch     string          `json:"branch,omitempty"`
	Normalized string          `json:"normalized"`
	Terms      string          `json:"terms,omitempty"`
	Category   string          `json:"category,omitempty"`
	Comparison *ComparisonPair `json:"comparison,omitempty"`
}

// ComparisonPair is an extracted "A vs B" pair.
type ComparisonPair struct {
	Rule   string `json:"rule"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// Send handles one conversation turn.
func (s *AssistantService) Send(ctx context.Context, req *connect.Request[SendRequest]) (*connect.Response[SendResponse], error) {
	msg := req.Msg

	if strings.TrimSpace(msg.Text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}

	session, err := s.session(msg.ConversationID)
	if err != nil {
		return nil, err
	}

	turn, err := session.SendUserMessage(ctx, msg.Text)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrSessionClosed):
			return nil, connect.NewError(connect.CodeNotFound, err)
		case errors.Is(err, context.Canceled):
			return nil, connect.NewError(connect.CodeCanceled, err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
		}
		s.logger.Error().Err(err).Str("conversation_id", session.ID()).Msg("Send failed")
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(toSendResponse(session.ID(), turn)), nil
}

// Classify reports how an utterance would be routed.
func (s *AssistantService) Classify(ctx context.Context, req *connect.Request[ClassifyRequest]) (*connect.Response[ClassifyResponse], error) {
	if strings.TrimSpace(req.Msg.Text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}

	cl := s.assistant.Classify(req.Msg.Text)
	resp := &ClassifyResponse{
		Intent:     string(cl.Intent),
		Branch:     string(cl.Branch),
		Normalized: cl.Normalized,
		Terms:      cl.Terms,
		Category:   cl.Category,
	}
	if cl.Pair != nil {
		resp.Comparison = &ComparisonPair{Rule: cl.Pair.Rule, First: cl.Pair.First, Second: cl.Pair.Second}
	}
	return connect.NewResponse(resp), nil
}

func (s *AssistantService) session(id string) (*conversation.Session, error) {
	if id == "" {
		session, err := s.manager.Create()
		if errors.Is(err, conversation.ErrTooManySessions) {
			return nil, connect.NewError(connect.CodeResourceExhausted, err)
		}
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return session, nil
	}

	session, err := s.manager.Get(id)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	return session, nil
}

// NewHandler returns the mount path and handler serving both procedures.
// Messages use plain JSON on the wire.
func NewHandler(svc *AssistantService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SendProcedure, connect.NewUnaryHandler(SendProcedure, svc.Send, opts...))
	mux.Handle(ClassifyProcedure, connect.NewUnaryHandler(ClassifyProcedure, svc.Classify, opts...))
	return "/" + ServiceName + "/", mux
}

func toSendResponse(conversationID string, turn *conversation.Turn) *SendResponse {
	products := turn.Response.Products
	if products == nil {
		products = []catalog.ProductSummary{}
	}
	suggestions := turn.Response.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return &SendResponse{
		ConversationID: conversationID,
		Intent:         string(turn.Response.Intent),
		Branch:         string(turn.Response.Branch),
		User:           toMessage(turn.User),
		Reply:          toMessage(turn.Assistant),
		Suggestions:    suggestions,
		Products:       products,
	}
}

func toMessage(m conversation.ChatMessage) *Message {
	return &Message{
		ID:        m.ID,
		Text:      m.Text,
		Sender:    string(m.Sender),
		Timestamp: m.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
