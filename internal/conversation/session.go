package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// ErrSessionClosed is returned for messages sent to a closed session.
var ErrSessionClosed = errors.New("conversation: session closed")

// DefaultWelcome is the first assistant message of every session.
const DefaultWelcome = "Hi! I'm your shopping assistant. Ask me to find products, compare items or explain shipping and returns."

// DefaultSuggestions are shown before the first turn.
var DefaultSuggestions = []string{"What's trending?", "What's on sale?", "Shipping information", "Return policy"}

// SessionOptions configures a Session.
type SessionOptions struct {
	// Delay is a cosmetic pause before each reply.
	Delay       time.Duration
	Welcome     string
	Suggestions []string
	Listener    Listener
	Logger      *observability.Logger
	Now         func() time.Time
}

// Session is a single conversation. Turns are processed one at a time; the
// log only grows and its timestamps never decrease.
type Session struct {
	id        string
	responder Responder
	listener  Listener
	delay     time.Duration
	now       func() time.Time
	logger    *observability.Logger

	// turnMu is held for the whole of a turn.
	turnMu sync.Mutex

	mu          sync.RWMutex
	log         []ChatMessage
	suggestions []string
	products    []catalog.ProductSummary
	lastActive  time.Time
	closed      bool
}

// NewSession creates a session whose log starts with the welcome message.
func NewSession(id string, responder Responder, opts SessionOptions) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Listener == nil {
		opts.Listener = ListenerFuncs{}
	}
	if opts.Welcome == "" {
		opts.Welcome = DefaultWelcome
	}
	if opts.Suggestions == nil {
		opts.Suggestions = DefaultSuggestions
	}

	s := &Session{
		id:          id,
		responder:   responder,
		listener:    opts.Listener,
		delay:       opts.Delay,
		now:         opts.Now,
		logger:      opts.Logger.WithConversation(id),
		suggestions: append([]string(nil), opts.Suggestions...),
		products:    []catalog.ProductSummary{},
	}
	s.lastActive = s.now()
	s.append(SenderAssistant, opts.Welcome)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SendUserMessage runs one turn: the user message is appended, the assistant
// reply is composed and appended, and listeners see typing(true), the reply,
// the new suggestions, the new products and typing(false) in that order.
// Whitespace-only text is ignored and yields (nil, nil).
func (s *Session) SendUserMessage(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if s.Closed() {
		return nil, ErrSessionClosed
	}

	user := s.append(SenderUser, text)
	s.listener.OnTypingStateChanged(true)
	defer s.listener.OnTypingStateChanged(false)

	// A done ctx only shortens the delay. The turn still completes so the
	// user message always gets a reply.
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	start := time.Now()
	resp := s.responder.Respond(ctx, text)
	reply := s.append(SenderAssistant, resp.Text)

	s.mu.Lock()
	s.suggestions = append([]string(nil), resp.Suggestions...)
	s.products = append([]catalog.ProductSummary{}, resp.Products...)
	s.mu.Unlock()

	s.listener.OnAssistantMessage(reply)
	s.listener.OnSuggestionsChanged(s.Suggestions())
	s.listener.OnProductResultsChanged(s.Products())

	s.logger.Debug().
		Str("intent", string(resp.Intent)).
		Str("branch", string(resp.Branch)).
		Int("products", len(resp.Products)).
		Dur("latency", time.Since(start)).
		Msg("Turn completed")

	return &Turn{User: user, Assistant: reply, Response: resp}, nil
}

// Messages returns a copy of the log.
func (s *Session) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatMessage(nil), s.log...)
}

// Suggestions returns the current suggestion set.
func (s *Session) Suggestions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.suggestions...)
}

// Products returns the product results of the latest turn.
func (s *Session) Products() []catalog.ProductSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.ProductSummary{}, s.products...)
}

// LastActive returns when the session last started or finished a turn.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Close rejects further messages. An in-flight turn completes normally.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) append(sender Sender, text string) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if n := len(s.log); n > 0 && ts.Before(s.log[n-1].Timestamp) {
		ts = s.log[n-1].Timestamp
	}
	msg := ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: ts,
	}
	s.log = append(s.log, msg)
	s.lastActive = ts
	return msg
}
