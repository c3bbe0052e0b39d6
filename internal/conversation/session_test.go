package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/catalog"
)

type echoResponder struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	hold        time.Duration
}

func (r *echoResponder) Respond(ctx context.Context, utterance string) assistant.Response {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.maxInFlight.Load()
		if n <= peak || r.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	r.calls.Add(1)
	if r.hold > 0 {
		time.Sleep(r.hold)
	}
	return assistant.Response{
		Intent:      assistant.IntentProductSearch,
		Text:        "echo: " + utterance,
		Products:    []catalog.ProductSummary{{ID: "p1", Name: utterance}},
		Suggestions: []string{"next " + utterance},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) listener() Listener {
	return ListenerFuncs{
		AssistantMessage:      func(msg ChatMessage) { r.add("message:" + msg.Text) },
		SuggestionsChanged:    func(s []string) { r.add(fmt.Sprintf("suggestions:%v", s)) },
		ProductResultsChanged: func(p []catalog.ProductSummary) { r.add(fmt.Sprintf("products:%d", len(p))) },
		TypingStateChanged:    func(typing bool) { r.add(fmt.Sprintf("typing:%t", typing)) },
	}
}

func TestSession_WelcomeMessage(t *testing.T) {
	s := NewSession("", &echoResponder{}, SessionOptions{})

	assert.NotEmpty(t, s.ID())
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
	assert.Equal(t, DefaultWelcome, msgs[0].Text)
	assert.Equal(t, DefaultSuggestions, s.Suggestions())
	assert.Empty(t, s.Products())
}

func TestSession_SendUserMessage_EventOrder(t *testing.T) {
	rec := &recorder{}
	s := NewSession("c1", &echoResponder{}, SessionOptions{Listener: rec.listener()})

	turn, err := s.SendUserMessage(context.Background(), "  lamp  ")
	require.NoError(t, err)
	require.NotNil(t, turn)

	assert.Equal(t, []string{
		"typing:true",
		"message:echo: lamp",
		"suggestions:[next lamp]",
		"products:1",
		"typing:false",
	}, rec.events)

	assert.Equal(t, "lamp", turn.User.Text)
	assert.Equal(t, SenderUser, turn.User.Sender)
	assert.Equal(t, "echo: lamp", turn.Assistant.Text)
	assert.Equal(t, []string{"next lamp"}, s.Suggestions())

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []Sender{SenderAssistant, SenderUser, SenderAssistant},
		[]Sender{msgs[0].Sender, msgs[1].Sender, msgs[2].Sender})
}

func TestSession_IgnoresBlankInput(t *testing.T) {
	rec := &recorder{}
	responder := &echoResponder{}
	s := NewSession("c1", responder, SessionOptions{Listener: rec.listener()})

	turn, err := s.SendUserMessage(context.Background(), " \t\n ")
	assert.NoError(t, err)
	assert.Nil(t, turn)
	assert.Empty(t, rec.events)
	assert.Len(t, s.Messages(), 1)
	assert.Zero(t, responder.calls.Load())
}

func TestSession_TimestampsNeverDecrease(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(time.Second), base.Add(-time.Hour), base.Add(2 * time.Second), base.Add(-time.Minute)}
	var i int
	now := func() time.Time {
		ts := clock[i%len(clock)]
		i++
		return ts
	}

	s := NewSession("c1", &echoResponder{}, SessionOptions{Now: now})
	for _, text := range []string{"a", "b"} {
		_, err := s.SendUserMessage(context.Background(), text)
		require.NoError(t, err)
	}

	msgs := s.Messages()
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp), "message %d went back in time", i)
	}
}

func TestSession_SerializesTurns(t *testing.T) {
	responder := &echoResponder{hold: 10 * time.Millisecond}
	s := NewSession("c1", responder, SessionOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.SendUserMessage(context.Background(), fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), responder.maxInFlight.Load())
	assert.Equal(t, int32(8), responder.calls.Load())

	msgs := s.Messages()
	require.Len(t, msgs, 17)
	// Each user message is immediately followed by its own reply.
	for i := 1; i < len(msgs); i += 2 {
		assert.Equal(t, SenderUser, msgs[i].Sender)
		assert.Equal(t, "echo: "+msgs[i].Text, msgs[i+1].Text)
	}
}

func TestSession_DelayEndsWithContext(t *testing.T) {
	rec := &recorder{}
	responder := &echoResponder{}
	s := NewSession("c1", responder, SessionOptions{Delay: time.Hour, Listener: rec.listener()})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	turn, err := s.SendUserMessage(ctx, "lamp")
	require.NoError(t, err)
	require.NotNil(t, turn)
	assert.Equal(t, "echo: lamp", turn.Assistant.Text)
	assert.Equal(t, int32(1), responder.calls.Load())
	assert.Equal(t, "typing:true", rec.events[0])
	assert.Equal(t, "typing:false", rec.events[len(rec.events)-1])
	assert.Contains(t, rec.events, "message:echo: lamp")
}

func TestSession_CancelledTurnStillReplies(t *testing.T) {
	responder := &echoResponder{}
	s := NewSession("c1", responder, SessionOptions{Delay: time.Second, Welcome: "hi"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	turn, err := s.SendUserMessage(ctx, "find shoes")
	require.NoError(t, err)
	require.NotNil(t, turn)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), responder.calls.Load())

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, SenderUser, msgs[1].Sender)
	assert.Equal(t, SenderAssistant, msgs[2].Sender)
	assert.Equal(t, "echo: find shoes", msgs[2].Text)
}

func TestSession_Closed(t *testing.T) {
	s := NewSession("c1", &echoResponder{}, SessionOptions{})
	s.Close()

	_, err := s.SendUserMessage(context.Background(), "lamp")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestMultiListener(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	l := MultiListener{a.listener(), b.listener()}

	l.OnTypingStateChanged(true)
	l.OnAssistantMessage(ChatMessage{Text: "hi"})

	assert.Equal(t, []string{"typing:true", "message:hi"}, a.events)
	assert.Equal(t, a.events, b.events)
}
