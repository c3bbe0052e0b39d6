// Package engine provides the public Go SDK for the assistant API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the public SDK client for the assistant API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is then ignored.
	HTTPClient *http.Client
}

// NewClient creates a new assistant API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8085"
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Message is one entry of a conversation log.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Product is a product summary as returned by the API.
type Product struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Price              float64  `json:"price"`
	Category           string   `json:"category"`
	ShopName           string   `json:"shopName"`
	StockQuantity      int      `json:"stockQuantity"`
	Stock              Stock    `json:"stock"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	Rating             *float64 `json:"rating,omitempty"`
}

// Stock carries exactly one of OnOrder or Quantity, plus derived
// availability.
type Stock struct {
	OnOrder  *bool `json:"onOrder,omitempty"`
	Quantity *int  `json:"quantity,omitempty"`
	InStock  bool  `json:"inStock"`
}

// Conversation is the state of a conversation.
type Conversation struct {
	ID          string    `json:"id"`
	Messages    []Message `json:"messages"`
	Suggestions []string  `json:"suggestions"`
	Products    []Product `json:"products"`
}

// Turn is the outcome of sending a message.
type Turn struct {
	ConversationID string    `json:"conversationId"`
	User           Message   `json:"user"`
	Reply          Message   `json:"reply"`
	Intent         string    `json:"intent"`
	Branch         string    `json:"branch,omitempty"`
	Suggestions    []string  `json:"suggestions"`
	Products       []Product `json:"products"`
}

// Classification is the router's decision for an utterance.
type Classification struct {
	Intent     string          `json:"intent"`
	Branch     string          `json:"branch,omitempty"`
	Normalized string          `json:"normalized"`
	Terms      string          `json:"terms,omitempty"`
	Category   string          `json:"category,omitempty"`
	Pair       *ComparisonPair `json:"pair,omitempty"`
}

// ComparisonPair holds the two product names of a comparison.
type ComparisonPair struct {
	Rule   string `json:"rule"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("assistant api: %d %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("assistant api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CreateConversation starts a new conversation.
func (c *Client) CreateConversation(ctx context.Context) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodPost, "/api/v1/conversations", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversation fetches a conversation's current state.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation ends a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/conversations/"+url.PathEscape(id), nil, nil)
}

// Send posts a user message and returns the assistant's reply.
func (c *Client) Send(ctx context.Context, conversationID, text string) (*Turn, error) {
	var out Turn
	path := "/api/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Classify returns the routing decision for text without starting a turn.
func (c *Client) Classify(ctx context.Context, text string) (*Classification, error) {
	var out Classification
	if err := c.do(ctx, http.MethodPost, "/api/v1/classify", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the service health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
