package events

import (
	"context"
	"time"

	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/conversation"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// Type names an event kind.
type Type string

const (
	TypeAssistantMessage   Type = "assistant_message"
	TypeSuggestionsChanged Type = "suggestions_changed"
	TypeProductResults     Type = "product_results_changed"
	TypeTypingState        Type = "typing_state_changed"
)

// Event is the JSON payload published for every session callback.
type Event struct {
	Type           Type                      `json:"type"`
	ConversationID string                    `json:"conversationId"`
	Message        *conversation.ChatMessage `json:"message,omitempty"`
	Suggestions    []string                  `json:"suggestions,omitempty"`
	Products       []catalog.ProductSummary  `json:"products,omitempty"`
	Typing         *bool                     `json:"typing,omitempty"`
	At             time.Time                 `json:"at"`
}

// Channel returns the broker channel for a conversation.
func Channel(conversationID string) string {
	return "conversation:" + conversationID
}

// Publisher is a conversation.Listener that publishes every event to a
// broker. Publish failures are logged and never interrupt the session.
type Publisher struct {
	broker         Broker
	conversationID string
	logger         *observability.Logger
	now            func() time.Time
	timeout        time.Duration
}

// NewPublisher creates a publisher for one conversation.
func NewPublisher(broker Broker, conversationID string, logger *observability.Logger) *Publisher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Publisher{
		broker:         broker,
		conversationID: conversationID,
		logger:         logger.WithConversation(conversationID),
		now:            time.Now,
		timeout:        2 * time.Second,
	}
}

func (p *Publisher) OnAssistantMessage(msg conversation.ChatMessage) {
	p.publish(Event{Type: TypeAssistantMessage, Message: &msg})
}

func (p *Publisher) OnSuggestionsChanged(suggestions []string) {
	p.publish(Event{Type: TypeSuggestionsChanged, Suggestions: suggestions})
}

func (p *Publisher) OnProductResultsChanged(products []catalog.ProductSummary) {
	p.publish(Event{Type: TypeProductResults, Products: products})
}

func (p *Publisher) OnTypingStateChanged(typing bool) {
	p.publish(Event{Type: TypeTypingState, Typing: &typing})
}

func (p *Publisher) publish(e Event) {
	e.ConversationID = p.conversationID
	e.At = p.now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.broker.Publish(ctx, Channel(p.conversationID), e); err != nil {
		p.logger.Warn().
			Err(err).
			Str("event", string(e.Type)).
			Msg("Failed to publish conversation event")
	}
}
