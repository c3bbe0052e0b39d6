// Package main provides the shopping assistant CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shopmate/assistant-engine/internal/config"
	"github.com/shopmate/assistant-engine/internal/observability"
)

const version = "0.1.0"

// cli holds global flags and the state PersistentPreRunE prepares.
type cli struct {
	cfgFile    string
	outputJSON bool
	noColor    bool
	verbose    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "assistant-cli",
		Short: "Shopping assistant CLI for chatting, classification and catalog administration",
		Long: `Shopping assistant CLI talks to the marketplace assistant.

Use this tool to:
- Chat with the assistant in process or against a running API server
- Inspect how an utterance is classified
- Create the catalog schema and load sample products

All commands support --json for automation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			c.cfg, err = config.Load(c.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			level := "warn"
			if c.verbose {
				level = "debug"
			}
			c.logger = observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      "console",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "assistant-cli",
			})
			c.ui = NewUI(cmd.OutOrStdout(), c.outputJSON, c.noColor)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.ui != nil {
				c.ui.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&c.outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newChatCmd(c))
	rootCmd.AddCommand(newAskCmd(c))
	rootCmd.AddCommand(newClassifyCmd(c))
	rootCmd.AddCommand(newMigrateCmd(c))
	rootCmd.AddCommand(newSeedCmd(c))
	rootCmd.AddCommand(newVersionCmd(c))

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
