package assistant

import (
	"context"
	"time"

	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// Assistant couples a Router with a Composer.
type Assistant struct {
	router   *Router
	composer *Composer
	logger   *observability.Logger
}

// New creates an assistant answering from cat.
func New(cat catalog.Catalog, rules Rules, cfg Config, logger *observability.Logger) *Assistant {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Assistant{
		router:   NewRouter(rules),
		composer: NewComposer(cat, rules, cfg, logger),
		logger:   logger,
	}
}

// Router returns the assistant's router.
func (a *Assistant) Router() *Router {
	return a.router
}

// Classify classifies an utterance without composing a reply.
func (a *Assistant) Classify(utterance string) Classification {
	return a.router.Classify(utterance)
}

// Respond classifies and answers one utterance. It always returns a valid
// response; catalog failures become an apology.
func (a *Assistant) Respond(ctx context.Context, utterance string) Response {
	start := time.Now()
	cl := a.router.Classify(utterance)
	resp := a.composer.Compose(ctx, utterance, cl)

	a.logger.Debug().
		Str("classified", string(cl.Intent)).
		Str("intent", string(resp.Intent)).
		Str("branch", string(resp.Branch)).
		Int("products", len(resp.Products)).
		Dur("latency", time.Since(start)).
		Msg("Composed assistant reply")

	return resp
}
