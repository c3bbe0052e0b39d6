package main

import (
	"context"

	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/conversation"
	"github.com/shopmate/assistant-engine/pkg/engine"
)

// productRow is the slice of a product the CLI renders.
type productRow struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Shop     string   `json:"shop"`
	InStock  bool     `json:"inStock"`
	Discount *float64 `json:"discount,omitempty"`
}

// reply is one assistant turn as the CLI renders it.
type reply struct {
	ConversationID string       `json:"conversationId"`
	Intent         string       `json:"intent"`
	Branch         string       `json:"branch,omitempty"`
	Text           string       `json:"text"`
	Products       []productRow `json:"products"`
	Suggestions    []string     `json:"suggestions"`
}

// chatBackend runs a conversation either in process or against a server.
type chatBackend interface {
	// Start opens a conversation and returns its welcome message and
	// initial suggestions.
	Start(ctx context.Context) (welcome string, suggestions []string, err error)
	Send(ctx context.Context, text string) (*reply, error)
	Close(ctx context.Context) error
}

// localBackend talks to an in-process session registry.
type localBackend struct {
	sessions *conversation.Manager
	session  *conversation.Session
}

func (b *localBackend) Start(ctx context.Context) (string, []string, error) {
	s, err := b.sessions.Create()
	if err != nil {
		return "", nil, err
	}
	b.session = s

	var welcome string
	if msgs := s.Messages(); len(msgs) > 0 {
		welcome = msgs[0].Text
	}
	return welcome, s.Suggestions(), nil
}

func (b *localBackend) Send(ctx context.Context, text string) (*reply, error) {
	turn, err := b.session.SendUserMessage(ctx, text)
	if err != nil || turn == nil {
		return nil, err
	}
	resp := turn.Response
	return &reply{
		ConversationID: b.session.ID(),
		Intent:         string(resp.Intent),
		Branch:         string(resp.Branch),
		Text:           resp.Text,
		Products:       localRows(resp.Products),
		Suggestions:    resp.Suggestions,
	}, nil
}

func (b *localBackend) Close(ctx context.Context) error {
	if b.session == nil {
		return nil
	}
	return b.sessions.Delete(b.session.ID())
}

func localRows(products []catalog.ProductSummary) []productRow {
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{
			Name:     p.Name,
			Price:    p.Price,
			Shop:     p.ShopName,
			InStock:  p.InStock(),
			Discount: p.DiscountPercentage,
		})
	}
	return rows
}

// remoteBackend talks to an assistant API server.
type remoteBackend struct {
	client         *engine.Client
	conversationID string
}

func (b *remoteBackend) Start(ctx context.Context) (string, []string, error) {
	conv, err := b.client.CreateConversation(ctx)
	if err != nil {
		return "", nil, err
	}
	b.conversationID = conv.ID

	var welcome string
	if len(conv.Messages) > 0 {
		welcome = conv.Messages[0].Text
	}
	return welcome, conv.Suggestions, nil
}

func (b *remoteBackend) Send(ctx context.Context, text string) (*reply, error) {
	turn, err := b.client.Send(ctx, b.conversationID, text)
	if err != nil {
		return nil, err
	}
	rows := make([]productRow, 0, len(turn.Products))
	for _, p := range turn.Products {
		rows = append(rows, productRow{
			Name:     p.Name,
			Price:    p.Price,
			Shop:     p.ShopName,
			InStock:  p.Stock.InStock,
			Discount: p.DiscountPercentage,
		})
	}
	return &reply{
		ConversationID: turn.ConversationID,
		Intent:         turn.Intent,
		Branch:         turn.Branch,
		Text:           turn.Reply.Text,
		Products:       rows,
		Suggestions:    turn.Suggestions,
	}, nil
}

func (b *remoteBackend) Close(ctx context.Context) error {
	if b.conversationID == "" {
		return nil
	}
	err := b.client.DeleteConversation(ctx, b.conversationID)
	if engine.IsNotFound(err) {
		return nil
	}
	return err
}
