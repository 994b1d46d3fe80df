package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  mode: interactive
  log_level: debug
api:
  base_url: https://app.example.com/api
connection:
  connect_timeout: 3s
reconnect:
  base_delay: 500ms
  max_attempts: 8
heartbeat:
  interval: 15s
  max_missed: -1
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.LogLevel != "debug" {
		t.Errorf("Client.LogLevel = %q, want %q", cfg.Client.LogLevel, "debug")
	}
	if cfg.API.BaseURL != "https://app.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Connection.ConnectTimeout != 3*time.Second {
		t.Errorf("Connection.ConnectTimeout = %v, want 3s", cfg.Connection.ConnectTimeout)
	}
	if cfg.Reconnect.BaseDelay != 500*time.Millisecond {
		t.Errorf("Reconnect.BaseDelay = %v, want 500ms", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxAttempts != 8 {
		t.Errorf("Reconnect.MaxAttempts = %d, want 8", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Heartbeat.MaxMissed != -1 {
		t.Errorf("Heartbeat.MaxMissed = %d, want -1", cfg.Heartbeat.MaxMissed)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_API_HOST", "staging.example.com")
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
api:
  base_url: https://${TEST_API_HOST}
journal:
  enabled: true
  database:
    host: localhost
    name: events
    user: app
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://staging.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Journal.Database.Password != "secret123" {
		t.Errorf("Journal.Database.Password = %q, want %q", cfg.Journal.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "api:\n  base_url: http://localhost:8000\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Client.Mode != "" {
		t.Errorf("Client.Mode = %q, want it left unset", cfg.Client.Mode)
	}
	if cfg.API.WSPath != DefaultWSPath {
		t.Errorf("API.WSPath = %q, want default %q", cfg.API.WSPath, DefaultWSPath)
	}
	if cfg.Connection.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Connection.ConnectTimeout = %v, want default %v", cfg.Connection.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Reconnect.MaxAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Reconnect.MaxAttempts = %d, want default %d", cfg.Reconnect.MaxAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Heartbeat.Interval != DefaultHeartbeatInterval {
		t.Errorf("Heartbeat.Interval = %v, want default %v", cfg.Heartbeat.Interval, DefaultHeartbeatInterval)
	}
	if cfg.Journal.Database.Port != DefaultDBPort {
		t.Errorf("Journal.Database.Port = %d, want default %d", cfg.Journal.Database.Port, DefaultDBPort)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "client:\n  mode: interactive\napi:\n  base_url: http://localhost:8000\n")
	if _, err := LoadAndValidate(path); err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	unset := writeTempFile(t, "api:\n  base_url: http://localhost:8000\n")
	if _, err := LoadAndValidate(unset); err == nil || !strings.Contains(err.Error(), "client.mode is required") {
		t.Errorf("LoadAndValidate error = %v, want client.mode required", err)
	}

	bad := writeTempFile(t, "client:\n  mode: kiosk\napi:\n  base_url: http://localhost:8000\n")
	_, err := LoadAndValidate(bad)
	if err == nil || !strings.HasPrefix(err.Error(), "validate config: client.mode") {
		t.Errorf("LoadAndValidate error = %v, want client.mode validation error", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeTempFile(t, "api: [not, a, map")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("Load error = %v, want parse error", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.Client.Mode = ModeInteractive
		c.API.BaseURL = "https://app.example.com"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "mode not set",
			mutate:  func(c *Config) { c.Client.Mode = "" },
			wantErr: "client.mode is required (interactive, server_render, batch)",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Client.Mode = "kiosk" },
			wantErr: `client.mode must be one of interactive, server_render, batch, got "kiosk"`,
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url or api.ws_url is required",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.API.BaseURL = "ftp://example.com" },
			wantErr: `api: base_url scheme must be http or https, got "ftp"`,
		},
		{
			name:    "zero connect timeout",
			mutate:  func(c *Config) { c.Connection.ConnectTimeout = 0 },
			wantErr: "connection.connect_timeout must be > 0",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.Reconnect.MaxAttempts = 0 },
			wantErr: "reconnect.max_attempts must be >= 1",
		},
		{
			name:    "negative base delay",
			mutate:  func(c *Config) { c.Reconnect.BaseDelay = -time.Second },
			wantErr: "reconnect.base_delay must be > 0",
		},
		{
			name:    "max missed below -1",
			mutate:  func(c *Config) { c.Heartbeat.MaxMissed = -2 },
			wantErr: "heartbeat.max_missed must be >= -1, got -2",
		},
		{
			name:    "journal without host",
			mutate:  func(c *Config) { c.Journal.Enabled = true },
			wantErr: "journal.database.host is required",
		},
		{
			name: "journal min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: 5}
			},
			wantErr: "journal.database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *Config) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
