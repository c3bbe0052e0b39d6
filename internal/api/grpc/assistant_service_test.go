package grpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/conversation"
)

type staticCatalog []catalog.ProductSummary

func (c staticCatalog) SearchByName(ctx context.Context, text string, limit int) ([]catalog.ProductSummary, error) {
	var out []catalog.ProductSummary
	for _, p := range c {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(text)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c staticCatalog) ListByCategory(ctx context.Context, category string, limit int) ([]catalog.ProductSummary, error) {
	return c, nil
}

func (c staticCatalog) ListNewest(ctx context.Context, limit int) ([]catalog.ProductSummary, error) {
	return c, nil
}

func (c staticCatalog) ListDiscounted(ctx context.Context, limit int) ([]catalog.ProductSummary, error) {
	return nil, nil
}

func (c staticCatalog) ListTopViewed(ctx context.Context, limit int) ([]string, error) {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name
	}
	return names, nil
}

type testClients struct {
	send     *connect.Client[SendRequest, SendResponse]
	classify *connect.Client[ClassifyRequest, ClassifyResponse]
	manager  *conversation.Manager
}

func newTestServer(t *testing.T) testClients {
	t.Helper()

	cat := staticCatalog{
		{ID: "p1", Name: "Desk Lamp", Price: 34.5, Category: "Home", ShopName: "Nest & Co", StockQuantity: 4, Stock: catalog.QuantityOnly(4)},
	}
	a := assistant.New(cat, assistant.DefaultRules(), assistant.Config{Chooser: assistant.FixedChooser(0)}, nil)
	manager := conversation.NewManager(a, conversation.ManagerConfig{}, nil)
	t.Cleanup(manager.Close)

	path, handler := NewHandler(NewAssistantService(nil, manager, a))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	codec := connect.WithCodec(JSONCodec{})
	return testClients{
		send:     connect.NewClient[SendRequest, SendResponse](server.Client(), server.URL+SendProcedure, codec),
		classify: connect.NewClient[ClassifyRequest, ClassifyResponse](server.Client(), server.URL+ClassifyProcedure, codec),
		manager:  manager,
	}
}

func TestAssistantService_SendStartsConversation(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	resp, err := c.send.CallUnary(ctx, connect.NewRequest(&SendRequest{Text: "find lamp"}))
	require.NoError(t, err)

	msg := resp.Msg
	assert.NotEmpty(t, msg.ConversationID)
	assert.Equal(t, string(assistant.IntentProductSearch), msg.Intent)
	require.NotNil(t, msg.User)
	assert.Equal(t, "find lamp", msg.User.Text)
	assert.Equal(t, "user", msg.User.Sender)
	require.NotNil(t, msg.Reply)
	assert.Equal(t, "assistant", msg.Reply.Sender)
	require.Len(t, msg.Products, 1)
	assert.Equal(t, "Desk Lamp", msg.Products[0].Name)
	assert.True(t, msg.Products[0].InStock())
	assert.Equal(t, 1, c.manager.Len())

	// Follow-up turns reuse the conversation.
	resp, err = c.send.CallUnary(ctx, connect.NewRequest(&SendRequest{ConversationID: msg.ConversationID, Text: "hello"}))
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationID, resp.Msg.ConversationID)
	assert.Equal(t, string(assistant.IntentGreeting), resp.Msg.Intent)
	assert.NotNil(t, resp.Msg.Products)
	assert.Equal(t, 1, c.manager.Len())

	session, err := c.manager.Get(msg.ConversationID)
	require.NoError(t, err)
	assert.Len(t, session.Messages(), 5)
}

func TestAssistantService_SendErrors(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	_, err := c.send.CallUnary(ctx, connect.NewRequest(&SendRequest{Text: "   "}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.send.CallUnary(ctx, connect.NewRequest(&SendRequest{ConversationID: "missing", Text: "hello"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	assert.Zero(t, c.manager.Len())
}

func TestAssistantService_Classify(t *testing.T) {
	c := newTestServer(t)

	resp, err := c.classify.CallUnary(context.Background(), connect.NewRequest(&ClassifyRequest{Text: "iPhone 13 vs Galaxy S21"}))
	require.NoError(t, err)

	assert.Equal(t, string(assistant.IntentProductComparison), resp.Msg.Intent)
	assert.Equal(t, "versus", resp.Msg.Branch)
	require.NotNil(t, resp.Msg.Comparison)
	assert.Equal(t, "iphone 13", resp.Msg.Comparison.First)
	assert.Equal(t, "galaxy s21", resp.Msg.Comparison.Second)
	assert.Zero(t, c.manager.Len())

	_, err = c.classify.CallUnary(context.Background(), connect.NewRequest(&ClassifyRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestJSONCodec(t *testing.T) {
	var codec JSONCodec
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&ClassifyRequest{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(data))

	var req ClassifyRequest
	require.NoError(t, codec.Unmarshal(nil, &req))
	assert.Error(t, codec.Unmarshal([]byte("{"), &req))
}
