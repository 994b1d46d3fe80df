package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Client.Mode {
	case "":
		return fmt.Errorf("client.mode is required (%s, %s, %s)",
			ModeInteractive, ModeServerRender, ModeBatch)
	case ModeInteractive, ModeServerRender, ModeBatch:
	default:
		return fmt.Errorf("client.mode must be one of %s, %s, %s, got %q",
			ModeInteractive, ModeServerRender, ModeBatch, c.Client.Mode)
	}

	if c.API.BaseURL == "" && c.API.WSURL == "" {
		return errors.New("api.base_url or api.ws_url is required")
	}
	if _, err := c.API.Endpoint(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if c.Connection.ConnectTimeout <= 0 {
		return errors.New("connection.connect_timeout must be > 0")
	}
	if c.Connection.WriteTimeout <= 0 {
		return errors.New("connection.write_timeout must be > 0")
	}
	if c.Connection.SendBufferSize < 1 {
		return errors.New("connection.send_buffer_size must be >= 1")
	}
	if c.Connection.MessageBufferSize < 1 {
		return errors.New("connection.message_buffer_size must be >= 1")
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.MaxAttempts < 1 {
		return errors.New("reconnect.max_attempts must be >= 1")
	}

	if c.Heartbeat.Interval <= 0 {
		return errors.New("heartbeat.interval must be > 0")
	}
	if c.Heartbeat.MaxMissed < -1 {
		return fmt.Errorf("heartbeat.max_missed must be >= -1, got %d", c.Heartbeat.MaxMissed)
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if c.Journal.FlushInterval <= 0 {
			return errors.New("journal.flush_interval must be > 0")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
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
