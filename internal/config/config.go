package config

import "time"

// Config is the root configuration for the homepage CLI.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Store   StoreConfig   `yaml:"store"`
	Feed    FeedConfig    `yaml:"feed"`
	History HistoryConfig `yaml:"history"`
	Local   LocalConfig   `yaml:"local"`
	Admin   AdminConfig   `yaml:"admin"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// SiteConfig identifies the site.
type SiteConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"` // base URL recorded with page views
}

// StoreConfig selects and configures the engagement backend.
type StoreConfig struct {
	Backend           string        `yaml:"backend"` // "postgres" or "memory"
	Postgres          DBConfig      `yaml:"postgres"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// FeedConfig holds live price feed settings.
type FeedConfig struct {
	StreamURL      string        `yaml:"stream_url"` // combined-stream WebSocket base
	RestURL        string        `yaml:"rest_url"`   // REST base for the batch ticker fallback
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	FlashWindow    time.Duration `yaml:"flash_window"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

// HistoryConfig controls recording of feed prices to the price_ticks table.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LocalConfig locates the visitor's device-local state.
type LocalConfig struct {
	StatePath string `yaml:"state_path"`
}

// AdminConfig holds admin authentication.
type AdminConfig struct {
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
