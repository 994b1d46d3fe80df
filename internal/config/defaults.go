package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel             = "info"
	DefaultWSPath               = "/ws"
	DefaultConnectTimeout       = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultSendBufferSize       = 256
	DefaultMessageBufferSize    = 1024
	DefaultEventQueueLimit      = 10000
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultMaxMissedHeartbeats  = 3
	DefaultJournalTable         = "realtime_events"
	DefaultJournalBatchSize     = 100
	DefaultJournalFlush         = 1 * time.Second
	DefaultJournalBufferSize    = 10000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

// Default returns a config with every default applied and no endpoint set.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields with their defaults. client.mode has
// no default and must be set explicitly.
func (c *Config) ApplyDefaults() {
	if c.Client.LogLevel == "" {
		c.Client.LogLevel = DefaultLogLevel
	}

	if c.API.WSPath == "" {
		c.API.WSPath = DefaultWSPath
	}

	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.SendBufferSize == 0 {
		c.Connection.SendBufferSize = DefaultSendBufferSize
	}
	if c.Connection.MessageBufferSize == 0 {
		c.Connection.MessageBufferSize = DefaultMessageBufferSize
	}
	if c.Connection.EventQueueLimit == 0 {
		c.Connection.EventQueueLimit = DefaultEventQueueLimit
	}

	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultMaxReconnectAttempts
	}

	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultHeartbeatInterval
	}
	if c.Heartbeat.MaxMissed == 0 {
		c.Heartbeat.MaxMissed = DefaultMaxMissedHeartbeats
	}

	if c.Journal.Table == "" {
		c.Journal.Table = DefaultJournalTable
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}
	applyDBDefaults(&c.Journal.Database)

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
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
