package config

import "time"

// Runtime modes. Only ModeInteractive may construct a realtime client.
const (
	ModeInteractive  = "interactive"
	ModeServerRender = "server_render"
	ModeBatch        = "batch"
)

// Config is the root configuration for the realtime client.
type Config struct {
	Client     ClientConfig     `yaml:"client"`
	API        APIConfig        `yaml:"api"`
	Connection ConnectionConfig `yaml:"connection"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Journal    JournalConfig    `yaml:"journal"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ClientConfig describes the hosting process.
type ClientConfig struct {
	Mode     string `yaml:"mode"`      // interactive, server_render, batch
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// APIConfig locates the backend event source.
type APIConfig struct {
	BaseURL string `yaml:"base_url"` // REST base, e.g. https://app.example.com/api
	WSURL   string `yaml:"ws_url"`   // Explicit WebSocket URL; overrides derivation
	WSPath  string `yaml:"ws_path"`  // Suffix appended to the derived endpoint
}

// ConnectionConfig holds socket settings.
type ConnectionConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	SendBufferSize    int           `yaml:"send_buffer_size"`    // Outbound frames queued per socket
	MessageBufferSize int           `yaml:"message_buffer_size"` // Inbound frames queued per socket
	EventQueueLimit   int           `yaml:"event_queue_limit"`   // Undelivered events kept before evicting the oldest
}

// ReconnectConfig holds the reconnect budget.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// HeartbeatConfig holds liveness settings.
type HeartbeatConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MaxMissed int           `yaml:"max_missed"` // -1 disables forced reconnects
}

// JournalConfig holds settings for persisting domain events.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
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

// MetricsConfig holds Prometheus and health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
