package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/clock"
	"github.com/rickgao/homepage/internal/config"
	"github.com/rickgao/homepage/internal/database"
	"github.com/rickgao/homepage/internal/engage"
	"github.com/rickgao/homepage/internal/localstate"
	"github.com/rickgao/homepage/internal/metrics"
	"github.com/rickgao/homepage/internal/store"
)

// app is the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	clock  clock.Clock
	prom   *metrics.Prometheus // nil until recorder is called with metrics enabled
}

func newRootCmd() *cobra.Command {
	a := &app{clock: clock.Real()}

	root := &cobra.Command{
		Use:           "homepage",
		Short:         "Homepage engagement and live price tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "configs/homepage.yaml", "path to config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newTickerCmd(a),
		newPostsCmd(a),
		newCommentsCmd(a),
		newGuestbookCmd(a),
		newCooldownCmd(a),
		newViewsCmd(a),
		newAdminCmd(a),
		newMigrateCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadAndValidate(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// recorder returns the process-wide metrics recorder. The Prometheus
// registry is created on first use when metrics are enabled.
func (a *app) recorder() metrics.Recorder {
	if !a.cfg.Metrics.Enabled {
		return metrics.Noop()
	}
	if a.prom == nil {
		a.prom = metrics.New(prometheus.NewRegistry())
	}
	return a.prom
}

// openStore connects the configured engagement backend.
func (a *app) openStore(ctx context.Context) (store.Store, func(), error) {
	switch a.cfg.Store.Backend {
	case config.BackendMemory:
		a.logger.Warn("using in-memory store, nothing is persisted")
		m := store.NewEngagementMemory(store.WithClock(a.clock))
		return m, func() { m.Close() }, nil
	default:
		a.logger.Debug("connecting to database",
			"host", a.cfg.Store.Postgres.Host,
			"port", a.cfg.Store.Postgres.Port,
			"database", a.cfg.Store.Postgres.Name,
		)
		pool, err := database.Connect(ctx, a.cfg.Store.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return store.NewPostgres(pool, a.logger), pool.Close, nil
	}
}

// openEngage wires the engagement service on top of the store and the
// visitor's local state.
func (a *app) openEngage(ctx context.Context) (*engage.Service, func(), error) {
	st, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	state, err := localstate.OpenSQLite(ctx, a.cfg.Local.StatePath)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("open local state: %w", err)
	}

	svc := engage.New(engage.Deps{
		Store:             st,
		State:             state,
		Clock:             a.clock,
		Metrics:           a.recorder(),
		Logger:            a.logger,
		ReconcileInterval: a.cfg.Store.ReconcileInterval,
	})

	cleanup := func() {
		state.Close()
		closeStore()
	}
	return svc, cleanup, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
