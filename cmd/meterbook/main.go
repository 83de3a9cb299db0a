package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/meterbook/internal/clock"
	"github.com/smallbiznis/meterbook/internal/config"
	"github.com/smallbiznis/meterbook/internal/kvstore"
	"github.com/smallbiznis/meterbook/internal/lock"
	"github.com/smallbiznis/meterbook/internal/migration"
	"github.com/smallbiznis/meterbook/internal/observability"
	"github.com/smallbiznis/meterbook/internal/providers"
	"github.com/smallbiznis/meterbook/internal/reading"
	"github.com/smallbiznis/meterbook/internal/redis"
	"github.com/smallbiznis/meterbook/internal/reminder"
	"github.com/smallbiznis/meterbook/internal/server"
	"github.com/smallbiznis/meterbook/internal/tariff"
	"github.com/smallbiznis/meterbook/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meterbook",
		Short:         "Electricity meter log",
		Version:       readVersionFromEnv(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newListCmd(),
		newSummaryCmd(),
		newImportCmd(),
		newExportCmd(),
		newMigrationCmd(),
		newReportCmd(),
		newReminderCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				coreOptions(),
				providers.Module,
				reminder.Module,
				server.Module,
			)
			app.Run()
			return app.Err()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.UsesRedis() {
				fmt.Fprintln(cmd.OutOrStdout(), "redis backend needs no schema migrations")
				return nil
			}
			app := fx.New(
				config.Module,
				observability.Module,
				db.Module,
				migration.Module,
				fx.NopLogger,
			)
			return startStop(cmd.Context(), app, func() error { return nil })
		},
	}
}

// storageOptions selects exactly one record backend so fx never builds both.
func storageOptions(cfg config.Config) fx.Option {
	if cfg.UsesRedis() {
		return fx.Options(
			redis.Module,
			kvstore.RedisModule,
			lock.RedisModule,
		)
	}
	return fx.Options(
		db.Module,
		migration.Module,
		kvstore.SQLModule,
		lock.LocalModule,
	)
}

func coreOptions() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		clock.Module,
		tariff.Module,
		storageOptions(config.Load()),
		reading.Module,
	)
}

// runOnce starts a short-lived app, runs fn and stops the app again.
func runOnce(ctx context.Context, fn func() error, opts ...fx.Option) error {
	app := fx.New(append([]fx.Option{coreOptions(), fx.NopLogger}, opts...)...)
	return startStop(ctx, app, fn)
}

func startStop(ctx context.Context, app *fx.App, fn func() error) error {
	startCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	return fn()
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
