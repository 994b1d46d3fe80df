package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/realtime-client/internal/config"
	"github.com/rickgao/realtime-client/internal/connection"
	"github.com/rickgao/realtime-client/internal/events"
	"github.com/rickgao/realtime-client/internal/liveness"
	"github.com/rickgao/realtime-client/internal/metrics"
	"github.com/rickgao/realtime-client/internal/version"
)

// ErrUnsupportedRuntime is returned by New unless client.mode is explicitly
// set to interactive. An unset mode is refused like server_render or batch.
var ErrUnsupportedRuntime = errors.New("realtime client requires an interactive runtime")

// Client is the host-facing realtime connection.
type Client struct {
	endpoint string
	manager  *connection.Manager
	logger   *slog.Logger
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	factory connection.ClientFactory
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics instruments the client.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClientFactory overrides how sockets are built.
func WithClientFactory(f connection.ClientFactory) Option {
	return func(o *options) { o.factory = f }
}

// New builds a disconnected Client from cfg. Zero-valued settings take their
// defaults.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cfg.ApplyDefaults()

	switch cfg.Client.Mode {
	case config.ModeInteractive:
	case "":
		o.logger.Error("realtime client refused, client.mode not set")
		return nil, fmt.Errorf("%w: client.mode is not set", ErrUnsupportedRuntime)
	default:
		o.logger.Error("realtime client refused", "mode", cfg.Client.Mode)
		return nil, fmt.Errorf("%w: client.mode is %q", ErrUnsupportedRuntime, cfg.Client.Mode)
	}

	endpoint, err := cfg.API.Endpoint()
	if err != nil {
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}

	m := o.metrics
	bus := events.NewBus(o.logger, events.WithPanicHook(func(kind events.Kind, _ any) {
		m.ObserveListenerPanic(string(kind))
	}))

	mopts := []connection.Option{
		connection.WithBus(bus),
		connection.WithMetrics(m),
	}
	if o.factory != nil {
		mopts = append(mopts, connection.WithClientFactory(o.factory))
	}

	mgr := connection.NewManager(ManagerConfig(cfg, endpoint), o.logger, mopts...)

	return &Client{
		endpoint: endpoint,
		manager:  mgr,
		logger:   o.logger,
	}, nil
}

// ManagerConfig maps file configuration onto connection settings.
func ManagerConfig(cfg config.Config, endpoint string) connection.ManagerConfig {
	return connection.ManagerConfig{
		URL:                  endpoint,
		UserAgent:            version.UserAgent(),
		ConnectTimeout:       cfg.Connection.ConnectTimeout,
		ReconnectBaseDelay:   cfg.Reconnect.BaseDelay,
		MaxReconnectAttempts: cfg.Reconnect.MaxAttempts,
		EventQueueLimit:      cfg.Connection.EventQueueLimit,
		Heartbeat: liveness.Config{
			Interval:  cfg.Heartbeat.Interval,
			MaxMissed: cfg.Heartbeat.MaxMissed,
		},
		Client: connection.ClientConfig{
			WriteTimeout:   cfg.Connection.WriteTimeout,
			SendBufferSize: cfg.Connection.SendBufferSize,
			BufferSize:     cfg.Connection.MessageBufferSize,
		},
	}
}

// Endpoint returns the WebSocket URL the client dials.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Connect opens the connection; see connection.Manager.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.manager.Connect(ctx)
}

// Disconnect closes the connection and stops reconnecting. Subscriptions are
// kept for the next Connect.
func (c *Client) Disconnect() {
	c.manager.Disconnect()
}

// SubscribeToChannel starts receiving events for channelID ("post:42",
// "campaign:7"). The subscription survives reconnects.
func (c *Client) SubscribeToChannel(channelID string) error {
	return c.manager.Subscribe(channelID)
}

// UnsubscribeFromChannel stops receiving events for channelID.
func (c *Client) UnsubscribeFromChannel(channelID string) error {
	return c.manager.Unsubscribe(channelID)
}

// IsConnected reports whether the socket is open.
func (c *Client) IsConnected() bool {
	return c.manager.IsConnected()
}

// Status returns a snapshot of the connection.
func (c *Client) Status() connection.Status {
	return c.manager.Status()
}

// Events returns the bus to register listeners on.
func (c *Client) Events() *events.Bus {
	return c.manager.Bus()
}

// Close tears the client down: disconnect, forget subscriptions and wait for
// queued events to be delivered. It must not be called from a listener.
func (c *Client) Close() {
	c.manager.Close()
	c.logger.Info("realtime client closed")
}
