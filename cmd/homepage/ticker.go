package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/homepage/internal/api"
	"github.com/rickgao/homepage/internal/config"
	"github.com/rickgao/homepage/internal/connection"
	"github.com/rickgao/homepage/internal/database"
	"github.com/rickgao/homepage/internal/feed"
	"github.com/rickgao/homepage/internal/metrics"
	"github.com/rickgao/homepage/internal/model"
	"github.com/rickgao/homepage/internal/writer"
)

func newTickerCmd(a *app) *cobra.Command {
	var once, record bool

	cmd := &cobra.Command{
		Use:   "ticker",
		Short: "Stream live prices, falling back to polling",
		Long: `Streams 24h tickers for the configured symbols and prints every price
change. After too many consecutive stream failures it switches to polling
the REST endpoint for the rest of the session.

With metrics enabled, /health and the metrics path are served on metrics.port.
With --record (or history.enabled) every price is also written to the
price_ticks table; this needs the postgres backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if once {
				return a.printPricesOnce(cmd)
			}
			return a.runTicker(cmd, record || a.cfg.History.Enabled)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "fetch prices once over REST and exit")
	cmd.Flags().BoolVar(&record, "record", false, "record prices to the price_ticks table")
	return cmd
}

func (a *app) restClient() *api.Client {
	return api.NewClient(a.cfg.Feed.RestURL,
		api.WithLogger(a.logger),
		api.WithTimeout(a.cfg.Feed.RequestTimeout),
	)
}

func (a *app) printPricesOnce(cmd *cobra.Command) error {
	tickers, err := a.restClient().GetTickers24h(cmd.Context(), a.cfg.Feed.Symbols)
	if err != nil {
		return err
	}
	for _, t := range tickers {
		printf(cmd, "%-10s %14s %8s%%\n", t.Symbol, t.LastPrice.StringFixed(2), t.PercentChange24h.StringFixed(2))
	}
	return nil
}

func (a *app) runTicker(cmd *cobra.Command, record bool) error {
	ctx := cmd.Context()
	fc := a.cfg.Feed

	var history *writer.TickWriter
	if record {
		if a.cfg.Store.Backend != config.BackendPostgres {
			return fmt.Errorf("recording prices requires store.backend %q", config.BackendPostgres)
		}
		pool, err := database.Connect(ctx, a.cfg.Store.Postgres)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		history = writer.NewTickWriter(writer.Config{
			BatchSize:     a.cfg.History.BatchSize,
			FlushInterval: a.cfg.History.FlushInterval,
		}, writer.NewPostgresSink(pool), a.clock, a.logger)
		if err := history.Start(ctx); err != nil {
			return err
		}
	}

	rec := a.recorder()
	prom := a.prom

	wsCfg := connection.DefaultClientConfig()
	wsCfg.URL = connection.CombinedStreamURL(fc.StreamURL, fc.Symbols)
	wsCfg.PingInterval = fc.PingInterval
	wsCfg.PingTimeout = 3 * fc.PingInterval

	client := feed.New(feed.Config{
		Symbols:        fc.Symbols,
		ReconnectDelay: fc.ReconnectDelay,
		MaxReconnects:  fc.MaxReconnects,
		PollInterval:   fc.PollInterval,
		FlashWindow:    fc.FlashWindow,
		RequestTimeout: fc.RequestTimeout,
	}, feed.Deps{
		Dial:    feed.DialWebSocket(wsCfg, a.logger),
		Source:  a.restClient(),
		Clock:   a.clock,
		Metrics: rec,
	}, a.logger)

	unsubscribe := client.Subscribe(func(u feed.Update) {
		switch u.Kind {
		case feed.UpdatePrice:
			if history != nil {
				history.Record(u.Snapshot)
			}
			printf(cmd, "%s %-10s %14s %8s%% %s\n",
				u.Snapshot.UpdatedAt.Format(time.TimeOnly),
				u.Snapshot.Symbol,
				u.Snapshot.Price.StringFixed(2),
				u.Snapshot.ChangePercent24h.StringFixed(2),
				arrow(u.Snapshot.Direction),
			)
		case feed.UpdateStatus:
			printf(cmd, "-- %s\n", u.Status)
		case feed.UpdateError:
			a.logger.Debug("price feed error", "status", u.Status.String(), "error", u.Err)
		}
	})
	defer unsubscribe()

	var srv *http.Server
	if prom != nil {
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%d", a.cfg.Metrics.Port),
			Handler: healthHandler(client, prom, a.cfg.Metrics.Path),
		}
		go func() {
			a.logger.Info("starting health server", "port", a.cfg.Metrics.Port)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				a.logger.Error("health server error", "error", err)
			}
		}()
	}

	if err := client.Start(ctx); err != nil {
		if history != nil {
			history.Stop(context.Background())
		}
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		srv.Shutdown(shutdownCtx)
	}
	err := client.Stop(shutdownCtx)
	if history != nil {
		if herr := history.Stop(shutdownCtx); herr != nil && err == nil {
			err = herr
		}
		st := history.Stats()
		a.logger.Info("price history recorded",
			"inserts", st.Inserts,
			"conflicts", st.Conflicts,
			"errors", st.Errors,
		)
	}
	return err
}

func arrow(d model.Direction) string {
	switch d {
	case model.DirectionUp:
		return "▲"
	case model.DirectionDown:
		return "▼"
	default:
		return ""
	}
}

// feedStatus is what healthHandler needs from the feed.
type feedStatus interface {
	Status() feed.Status
	Prices() map[string]model.PriceSnapshot
}

// healthHandler serves /health and the metrics endpoint.
func healthHandler(f feedStatus, prom *metrics.Prometheus, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		st := f.Status()
		health := struct {
			Status string `json:"status"`
			Feed   string `json:"feed"`
			Prices int    `json:"prices"`
		}{
			Status: "healthy",
			Feed:   st.String(),
			Prices: len(f.Prices()),
		}

		switch st.State {
		case feed.StatePolling, feed.StateDegraded:
			health.Status = "degraded"
		case feed.StateStopped:
			health.Status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			slog.Default().Debug("write health response", "error", err)
		}
	})

	if prom != nil {
		mux.Handle(metricsPath, prom.Handler())
	}
	return mux
}
