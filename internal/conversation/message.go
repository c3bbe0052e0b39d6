// Package conversation owns chat sessions between a shopper and the assistant.
package conversation

import (
	"context"
	"time"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/catalog"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry of the conversation log. Messages are never
// modified after they are appended.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is the outcome of one SendUserMessage call.
type Turn struct {
	User      ChatMessage        `json:"user"`
	Assistant ChatMessage        `json:"assistant"`
	Response  assistant.Response `json:"response"`
}

// Responder produces the assistant's reply to one utterance.
type Responder interface {
	Respond(ctx context.Context, utterance string) assistant.Response
}

// Listener receives session events in the order they happen.
type Listener interface {
	OnAssistantMessage(msg ChatMessage)
	OnSuggestionsChanged(suggestions []string)
	OnProductResultsChanged(products []catalog.ProductSummary)
	OnTypingStateChanged(typing bool)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	AssistantMessage      func(msg ChatMessage)
	SuggestionsChanged    func(suggestions []string)
	ProductResultsChanged func(products []catalog.ProductSummary)
	TypingStateChanged    func(typing bool)
}

func (f ListenerFuncs) OnAssistantMessage(msg ChatMessage) {
	if f.AssistantMessage != nil {
		f.AssistantMessage(msg)
	}
}

func (f ListenerFuncs) OnSuggestionsChanged(suggestions []string) {
	if f.SuggestionsChanged != nil {
		f.SuggestionsChanged(suggestions)
	}
}

func (f ListenerFuncs) OnProductResultsChanged(products []catalog.ProductSummary) {
	if f.ProductResultsChanged != nil {
		f.ProductResultsChanged(products)
	}
}

func (f ListenerFuncs) OnTypingStateChanged(typing bool) {
	if f.TypingStateChanged != nil {
		f.TypingStateChanged(typing)
	}
}

// MultiListener fans every event out to each listener in order.
type MultiListener []Listener

func (m MultiListener) OnAssistantMessage(msg ChatMessage) {
	for _, l := range m {
		l.OnAssistantMessage(msg)
	}
}

func (m MultiListener) OnSuggestionsChanged(suggestions []string) {
	for _, l := range m {
		l.OnSuggestionsChanged(suggestions)
	}
}

func (m MultiListener) OnProductResultsChanged(products []catalog.ProductSummary) {
	for _, l := range m {
		l.OnProductResultsChanged(products)
	}
}

func (m MultiListener) OnTypingStateChanged(typing bool) {
	for _, l := range m {
		l.OnTypingStateChanged(typing)
	}
}
