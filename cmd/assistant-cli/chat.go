package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopmate/assistant-engine/internal/app"
	"github.com/shopmate/assistant-engine/pkg/engine"
)

// backend returns an in-process backend, or a remote one when server is set.
func (c *cli) backend(ctx context.Context, server string) (chatBackend, func(), error) {
	if server != "" {
		client, err := engine.NewClient(engine.ClientConfig{BaseURL: server})
		if err != nil {
			return nil, nil, err
		}
		return &remoteBackend{client: client}, func() {}, nil
	}

	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return &localBackend{sessions: a.Sessions}, func() { _ = a.Close() }, nil
}

func (c *cli) render(cmd *cobra.Command, r *reply) error {
	if c.outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	c.ui.Assistant(r.Text)
	c.ui.Products(r.Products)
	c.ui.Suggestions(r.Suggestions)
	return nil
}

// newChatCmd creates the interactive chat subcommand.
func newChatCmd(c *cli) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the shopping assistant",
		Long: `Chat starts a conversation and reads one message per line until EOF
or /quit. Without --server the assistant runs in process against the
configured catalog database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			backend, cleanup, err := c.backend(ctx, server)
			if err != nil {
				return err
			}
			defer cleanup()

			welcome, suggestions, err := backend.Start(ctx)
			if err != nil {
				return fmt.Errorf("start conversation: %w", err)
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := backend.Close(closeCtx); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to end conversation")
				}
			}()

			c.ui.Assistant(welcome)
			c.ui.Suggestions(suggestions)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				c.ui.Prompt()
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					break
				}

				spinner := c.ui.Spinner("Thinking...")
				spinner.Start()
				r, err := backend.Send(ctx, line)
				spinner.Stop()

				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					c.ui.Error("%v", err)
					continue
				}
				if err := c.render(cmd, r); err != nil {
					return err
				}
			}
			c.ui.Newline()
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "assistant API base URL (default: run in process)")
	return cmd
}

// newAskCmd creates the one-shot ask subcommand.
func newAskCmd(c *cli) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("message is required")
			}

			backend, cleanup, err := c.backend(ctx, server)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, _, err := backend.Start(ctx); err != nil {
				return fmt.Errorf("start conversation: %w", err)
			}
			defer backend.Close(context.Background())

			r, err := backend.Send(ctx, text)
			if err != nil {
				return err
			}
			return c.render(cmd, r)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "assistant API base URL (default: run in process)")
	return cmd
}
