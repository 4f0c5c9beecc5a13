package config

import "time"

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Default values for optional configuration fields.
const (
	DefaultSiteName          = "homepage"
	DefaultBackend           = BackendPostgres
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 5
	DefaultMinConns          = 1
	DefaultReconcileInterval = 1 * time.Minute
	DefaultStreamURL         = "wss://stream.binance.com/stream"
	DefaultFeedRestURL       = "https://api.binance.com"
	DefaultReconnectDelay    = 5 * time.Second
	DefaultMaxReconnects     = 3
	DefaultPollInterval      = 5 * time.Second
	DefaultFlashWindow       = 2 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultHistoryBatchSize  = 100
	DefaultHistoryFlush      = 5 * time.Second
	DefaultStatePath         = ".homepage/state.db"
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// DefaultSymbols are the tracked trading pairs.
var DefaultSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "TRXUSDT"}

func (c *Config) applyDefaults() {
	if c.Site.Name == "" {
		c.Site.Name = DefaultSiteName
	}

	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultBackend
	}
	applyDBDefaults(&c.Store.Postgres)
	if c.Store.ReconcileInterval == 0 {
		c.Store.ReconcileInterval = DefaultReconcileInterval
	}

	// Feed defaults
	if c.Feed.StreamURL == "" {
		c.Feed.StreamURL = DefaultStreamURL
	}
	if c.Feed.RestURL == "" {
		c.Feed.RestURL = DefaultFeedRestURL
	}
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Feed.MaxReconnects == 0 {
		c.Feed.MaxReconnects = DefaultMaxReconnects
	}
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = DefaultPollInterval
	}
	if c.Feed.FlashWindow == 0 {
		c.Feed.FlashWindow = DefaultFlashWindow
	}
	if c.Feed.RequestTimeout == 0 {
		c.Feed.RequestTimeout = DefaultRequestTimeout
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}

	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultHistoryBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = DefaultHistoryFlush
	}

	if c.Local.StatePath == "" {
		c.Local.StatePath = DefaultStatePath
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
