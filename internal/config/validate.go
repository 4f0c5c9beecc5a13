package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres:
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	case BackendMemory:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendPostgres, BackendMemory, c.Store.Backend)
	}
	if c.Store.ReconcileInterval < 0 {
		return errors.New("store.reconcile_interval must be >= 0")
	}

	if err := c.Feed.validate(); err != nil {
		return err
	}

	if c.History.Enabled && c.Store.Backend != BackendPostgres {
		return errors.New("history.enabled requires store.backend postgres")
	}
	if c.History.BatchSize < 1 || c.History.FlushInterval <= 0 {
		return errors.New("history.batch_size and history.flush_interval must be positive")
	}

	if c.Local.StatePath == "" {
		return errors.New("local.state_path is required")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (f *FeedConfig) validate() error {
	if f.StreamURL == "" {
		return errors.New("feed.stream_url is required")
	}
	if f.RestURL == "" {
		return errors.New("feed.rest_url is required")
	}
	if len(f.Symbols) == 0 {
		return errors.New("feed.symbols must not be empty")
	}
	for _, s := range f.Symbols {
		if strings.TrimSpace(s) == "" {
			return errors.New("feed.symbols must not contain empty entries")
		}
	}
	if f.MaxReconnects < 0 {
		return errors.New("feed.max_reconnects must be >= 0")
	}
	if f.ReconnectDelay <= 0 || f.PollInterval <= 0 || f.FlashWindow <= 0 {
		return errors.New("feed.reconnect_delay, feed.poll_interval and feed.flash_window must be positive")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
