package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shopmate/assistant-engine/cmd/assistant-api/handlers"
	"github.com/shopmate/assistant-engine/cmd/assistant-api/middleware"
	"github.com/shopmate/assistant-engine/internal/api/grpc"
	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/conversation"
	"github.com/shopmate/assistant-engine/internal/events"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// RouterDeps holds what the router serves.
type RouterDeps struct {
	Assistant      *assistant.Assistant
	Sessions       *conversation.Manager
	Broker         events.Broker
	Ready          func(ctx context.Context) error
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, deps RouterDeps) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"assistant-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				logger.Warn().Err(err).Msg("Readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	conversationHandler := handlers.NewConversationHandler(logger, deps.Sessions, deps.Broker)
	classifyHandler := handlers.NewClassifyHandler(logger, deps.Assistant)

	timeout := func(next http.Handler) http.Handler { return next }
	if deps.RequestTimeout > 0 {
		timeout = chimiddleware.Timeout(deps.RequestTimeout)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(timeout).Post("/conversations", conversationHandler.Create)

		r.Route("/conversations/{conversationId}", func(r chi.Router) {
			// Event streams outlive the request timeout.
			r.Get("/events", conversationHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
				r.Get("/messages", conversationHandler.Messages)
				r.Post("/messages", conversationHandler.SendMessage)
			})
		})

		r.With(timeout).Post("/classify", classifyHandler.Classify)
	})

	path, handler := grpc.NewHandler(grpc.NewAssistantService(logger, deps.Sessions, deps.Assistant))
	r.Mount(path, handler)

	return r
}
