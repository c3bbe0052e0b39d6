package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopmate/assistant-engine/internal/app"
	"github.com/shopmate/assistant-engine/internal/assistant"
	"github.com/shopmate/assistant-engine/internal/cache"
	"github.com/shopmate/assistant-engine/internal/catalog"
)

// newClassifyCmd creates the classify subcommand.
func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Show how the router classifies a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := assistant.LoadRules(c.cfg.Assistant.RulesPath)
			if err != nil {
				return err
			}

			cl := assistant.NewRouter(rules).Classify(strings.Join(args, " "))
			if c.outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cl)
			}

			c.ui.KeyValue("Intent", cl.Intent)
			if cl.Branch != assistant.BranchNone {
				c.ui.KeyValue("Branch", cl.Branch)
			}
			c.ui.KeyValue("Normalized", cl.Normalized)
			if cl.Terms != "" {
				c.ui.KeyValue("Terms", cl.Terms)
			}
			if cl.Category != "" {
				c.ui.KeyValue("Category", cl.Category)
			}
			if cl.Pair != nil {
				c.ui.KeyValue("Compare", fmt.Sprintf("%q vs %q (%s)", cl.Pair.First, cl.Pair.Second, cl.Pair.Rule))
			}
			return nil
		},
	}
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, dialect, err := app.OpenDatabase(ctx, c.cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := catalog.Migrate(ctx, db); err != nil {
				return err
			}

			c.logger.Info().Str("dialect", string(dialect)).Msg("Catalog schema ready")
			if c.outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"status": "migrated", "dialect": string(dialect)})
			}
			c.ui.Success("Catalog schema ready on %s", dialect)
			return nil
		},
	}
}

// newSeedCmd creates the seed subcommand.
func newSeedCmd(c *cli) *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load shops and products from a YAML fixture",
		Long: `Seed upserts every shop and product in the fixture, so it can be
re-run safely. When the catalog cache is Redis, cached catalog reads are
invalidated afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fixture, err := catalog.LoadFixture(fixturePath)
			if err != nil {
				return err
			}

			db, dialect, err := app.OpenDatabase(ctx, c.cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := catalog.Migrate(ctx, db); err != nil {
				return err
			}

			c.ui.Step("Seeding %d shops and %d products", len(fixture.Shops), len(fixture.Products))
			bar := c.ui.ProgressBar("seed", int64(fixture.Rows()))
			err = catalog.NewSeeder(db, dialect).Seed(ctx, fixture, func(done int) {
				if bar != nil {
					bar.SetCurrent(int64(done))
				}
			})
			if err != nil {
				if bar != nil {
					bar.Abort(false)
				}
				return err
			}

			if c.cfg.Cache.Driver == "redis" {
				if err := c.invalidateCache(cmd); err != nil {
					c.ui.Error("cache invalidation failed: %v", err)
				}
			}

			if c.outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{
					"shops":    len(fixture.Shops),
					"products": len(fixture.Products),
				})
			}
			c.ui.Success("Seeded %d rows", fixture.Rows())
			return nil
		},
	}

	cmd.Flags().StringVarP(&fixturePath, "fixture", "f", "configs/catalog.yaml", "fixture file")
	return cmd
}

func (c *cli) invalidateCache(cmd *cobra.Command) error {
	r := c.cfg.Cache.Redis
	client, err := cache.NewRedisClient(cmd.Context(), cache.RedisConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		Prefix:   r.Prefix,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	return catalog.NewCachedCatalog(nil, client, c.cfg.Cache.TTL, c.logger).Invalidate(cmd.Context())
}

// newVersionCmd creates the version subcommand.
func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"version": version,
					"go":      runtime.Version(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assistant-cli %s (%s)\n", version, runtime.Version())
			return nil
		},
	}
}
