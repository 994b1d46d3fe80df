package config

import "testing"

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://localhost:8000", path: "/ws", want: "ws://localhost:8000/ws"},
		{name: "https with path", base: "https://app.example.com/api/", path: "/ws", want: "wss://app.example.com/api/ws"},
		{name: "path without slash", base: "https://app.example.com/api", path: "ws/notifications", want: "wss://app.example.com/api/ws/notifications"},
		{name: "query kept", base: "https://app.example.com?tenant=a", path: "/ws", want: "wss://app.example.com/ws?tenant=a"},
		{name: "already ws", base: "ws://localhost:9000", path: "/ws", want: "ws://localhost:9000/ws"},
		{name: "empty path", base: "https://app.example.com/api", path: "", want: "wss://app.example.com/api"},
		{name: "empty base", base: "", path: "/ws", wantErr: true},
		{name: "bad scheme", base: "ftp://example.com", path: "/ws", wantErr: true},
		{name: "no host", base: "http://", path: "/ws", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveWSURL(tt.base, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("DeriveWSURL(%q) = %q, want error", tt.base, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveWSURL(%q) unexpected error: %v", tt.base, err)
			}
			if got != tt.want {
				t.Errorf("DeriveWSURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

func TestAPIConfig_Endpoint(t *testing.T) {
	explicit := APIConfig{BaseURL: "https://ignored.example.com", WSURL: "wss://events.example.com/stream"}
	got, err := explicit.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint() error: %v", err)
	}
	if got != "wss://events.example.com/stream" {
		t.Errorf("Endpoint() = %q", got)
	}

	if _, err := (APIConfig{WSURL: "https://events.example.com"}).Endpoint(); err == nil {
		t.Error("expected error for non-ws ws_url")
	}

	derived, err := APIConfig{BaseURL: "http://localhost:8000", WSPath: "/ws"}.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint() error: %v", err)
	}
	if derived != "ws://localhost:8000/ws" {
		t.Errorf("Endpoint() = %q", derived)
	}
}
