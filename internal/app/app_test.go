package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/config"
	"github.com/shopmate/assistant-engine/internal/events"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Database.SQLite.MaxOpenConns = 1
	cfg.Session.SweepEvery = 0
	return cfg
}

func TestNew_WiresComponents(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Ready(ctx))
	assert.IsType(t, &catalog.CachedCatalog{}, a.Catalog)
	assert.IsType(t, &events.MemoryBroker{}, a.Broker)

	ch, unsubscribe, err := a.Broker.Subscribe(ctx, events.Channel("probe"))
	require.NoError(t, err)
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)

	s, err := a.Sessions.Create()
	require.NoError(t, err)
	turn, err := s.SendUserMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentGreeting, turn.Response.Intent)

	// Empty catalog: searches succeed with no products.
	turn, err = s.SendUserMessage(ctx, "find lamp")
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentProductSearch, turn.Response.Intent)
	assert.Empty(t, turn.Response.Products)
}

func TestNew_WithoutCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Driver = "none"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &catalog.SQLCatalog{}, a.Catalog)
}

func TestNew_BadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phrases: ["), 0o644))

	cfg := testConfig()
	cfg.Assistant.RulesPath = path

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "parse rules")
}

func TestClose_IsRepeatable(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
