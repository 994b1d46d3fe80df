package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/realtime-client/internal/envelope"
	"github.com/rickgao/realtime-client/internal/events"
	"github.com/rickgao/realtime-client/internal/liveness"
	"github.com/rickgao/realtime-client/internal/metrics"
)

// Manager owns one logical connection: it dials, routes inbound frames to
// typed events, keeps the heartbeat running, replays subscriptions and
// reconnects after abnormal closures.
//
// Every state transition and every event publish happens under mu, so the
// order listeners observe matches the order transitions happened. Listener
// code runs on the dispatcher goroutine and may call back into the Manager.
type Manager struct {
	cfg     ManagerConfig
	id      string
	logger  *slog.Logger
	factory ClientFactory
	metrics *metrics.Metrics
	events  *events.Dispatcher

	mu            sync.Mutex
	state         State
	gen           uint64 // bumped on every dial and on Disconnect
	client        Client
	monitor       *liveness.Monitor
	pending       *pendingConnect
	timer         *time.Timer
	attempts      int
	exhausted     bool
	subs          map[string]envelope.Channel
	lastHeartbeat time.Time

	framesReceived atomic.Int64
	parseErrors    atomic.Int64
	unknownFrames  atomic.Int64

	payloadMismatches atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClientFactory overrides how sockets are built.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) { m.factory = f }
}

// WithMetrics instruments the Manager.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithBus delivers events to bus instead of a private one.
func WithBus(bus *events.Bus) Option {
	return func(m *Manager) { m.events = events.NewDispatcher(bus, m.cfg.EventQueueLimit) }
}

// NewManager creates a disconnected Manager. Nothing is dialed until Connect.
func NewManager(cfg ManagerConfig, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultManagerConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = defaults.ReconnectBaseDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if cfg.Heartbeat.Interval <= 0 {
		cfg.Heartbeat.Interval = defaults.Heartbeat.Interval
	}
	if cfg.Heartbeat.MaxMissed == 0 {
		cfg.Heartbeat.MaxMissed = defaults.Heartbeat.MaxMissed
	}

	id := uuid.NewString()
	m := &Manager{
		cfg:     cfg,
		id:      id,
		logger:  logger.With("client_id", id),
		factory: NewClient,
		subs:    make(map[string]envelope.Channel),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.events == nil {
		m.events = events.NewDispatcher(events.NewBus(m.logger), cfg.EventQueueLimit)
	}
	m.metrics.SetState(int(StateDisconnected))

	return m
}

// ID returns the client id attached to logs.
func (m *Manager) ID() string {
	return m.id
}

// Bus returns the bus events are published on.
func (m *Manager) Bus() *events.Bus {
	return m.events.Bus()
}

// Connect opens the connection. It returns once the socket is open, the
// attempt fails, or ctx ends; a ctx that ends first abandons the wait but not
// the attempt. Calling Connect while connected or connecting starts nothing
// new. An explicit Connect cancels any pending automatic retry.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateConnecting:
		p := m.pending
		m.mu.Unlock()
		return p.wait(ctx)
	}

	m.cancelReconnectLocked()
	p := m.beginConnectLocked()
	m.mu.Unlock()

	go m.dial(p)
	return p.wait(ctx)
}

// Disconnect closes the connection with a normal close code, cancels any
// pending retry and stops the heartbeat. A disconnected event is always
// published, even if the socket was never open. Subscriptions are kept and
// replayed by the next Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelReconnectLocked()
	p := m.pending
	m.pending = nil
	client := m.teardownLocked()
	m.gen++
	m.setStateLocked(StateClosed)
	m.events.PublishDisconnected(CloseNormal, closeReason(CloseNormal))
	m.metrics.ObserveDisconnect(CloseNormal)
	m.mu.Unlock()

	if p != nil {
		p.settle(ErrDisconnected)
	}
	if client != nil {
		client.Close()
	}

	m.logger.Info("disconnected")
}

// Close disconnects, forgets all subscriptions and waits until queued events
// are delivered. The Manager must not be used afterwards. Close must not be
// called from a listener.
func (m *Manager) Close() {
	m.Disconnect()

	m.mu.Lock()
	m.subs = make(map[string]envelope.Channel)
	m.mu.Unlock()

	m.events.Close()
}

// IsConnected reports whether the socket is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && m.client != nil && m.client.IsConnected()
}

// Send serializes v and writes it if connected. While not connected the frame
// is dropped with a warning; nothing is queued for later.
func (m *Manager) Send(v any) {
	data, err := envelope.Encode(v)
	if err != nil {
		m.logger.Warn("dropping unserializable frame", "error", err)
		m.metrics.ObserveDropped("unserializable")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeLocked(frameType(v), data)
}

// Subscribe records channelID and, if connected, sends the subscribe frame.
// Subscribing to a recorded channel again sends nothing.
func (m *Manager) Subscribe(channelID string) error {
	ch, err := envelope.ParseChannel(channelID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := ch.String()
	if _, ok := m.subs[key]; ok {
		return nil
	}
	m.subs[key] = ch
	if m.state == StateConnected {
		m.sendFrameLocked(envelope.SubscribeFrame(ch))
	}

	m.logger.Debug("subscribed", "channel", key)
	return nil
}

// Unsubscribe forgets channelID and, if connected, sends the unsubscribe
// frame. Unknown channels are a no-op.
func (m *Manager) Unsubscribe(channelID string) error {
	ch, err := envelope.ParseChannel(channelID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := ch.String()
	if _, ok := m.subs[key]; !ok {
		return nil
	}
	delete(m.subs, key)
	if m.state == StateConnected {
		m.sendFrameLocked(envelope.UnsubscribeFrame(ch))
	}

	m.logger.Debug("unsubscribed", "channel", key)
	return nil
}

// Status returns a snapshot of the connection.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		ClientID:          m.id,
		IsConnected:       m.state == StateConnected && m.client != nil && m.client.IsConnected(),
		State:             m.state,
		ReconnectAttempts: m.attempts,
		ReconnectPending:  m.timer != nil,
		Exhausted:         m.exhausted,
		LastHeartbeat:     m.lastHeartbeat,
		Subscriptions:     m.channelsLocked(),
		FramesReceived:    m.framesReceived.Load(),
		ParseErrors:       m.parseErrors.Load(),
		UnknownFrames:     m.unknownFrames.Load(),
		PayloadMismatches: m.payloadMismatches.Load(),
		PendingEvents:     m.events.Pending(),
		DroppedEvents:     m.events.Dropped(),
	}
	if m.monitor != nil {
		st.Heartbeat = m.monitor.Snapshot()
	}
	return st
}

// beginConnectLocked moves to Connecting and opens a new generation.
func (m *Manager) beginConnectLocked() *pendingConnect {
	m.gen++
	p := newPendingConnect(m.gen)
	m.pending = p
	m.setStateLocked(StateConnecting)
	return p
}

// dial runs one connection attempt to completion.
func (m *Manager) dial(p *pendingConnect) {
	cfg := m.cfg.Client
	cfg.URL = m.cfg.URL
	if m.cfg.UserAgent != "" {
		cfg.Header = http.Header{"User-Agent": []string{m.cfg.UserAgent}}
	}
	client := m.factory(cfg, m.logger)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ConnectTimeout)
	err := client.Connect(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", ErrTimeout, m.cfg.ConnectTimeout, err)
		} else {
			err = fmt.Errorf("dial %s: %w", m.cfg.URL, err)
		}
	}
	cancel()

	m.mu.Lock()
	if m.gen != p.gen {
		// Superseded by Disconnect while dialing.
		m.mu.Unlock()
		client.Close()
		p.settle(ErrDisconnected)
		return
	}
	m.pending = nil

	if err != nil {
		m.setStateLocked(StateDisconnected)
		m.logger.Warn("connect failed", "url", m.cfg.URL, "error", err)
		m.events.PublishError(err)
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		client.Close()
		p.settle(err)
		return
	}

	m.client = client
	m.attempts = 0
	m.exhausted = false
	m.setStateLocked(StateConnected)
	m.metrics.ObserveConnect()

	gen := p.gen
	m.monitor = liveness.New(
		m.cfg.Heartbeat,
		func(f envelope.Frame) { m.heartbeatSend(gen, f) },
		func(missed int) { m.heartbeatStale(gen, missed) },
		m.logger,
	)
	m.monitor.Start()

	m.events.PublishConnected(m.cfg.URL)
	m.logger.Info("connected", "url", m.cfg.URL, "subscriptions", len(m.subs))

	for _, key := range m.channelsLocked() {
		m.sendFrameLocked(envelope.SubscribeFrame(m.subs[key]))
	}
	m.mu.Unlock()

	go m.readLoop(gen, client)
	p.settle(nil)
}

// readLoop routes frames from one socket until it ends.
func (m *Manager) readLoop(gen uint64, client Client) {
	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				select {
				case err := <-client.Errors():
					m.dropConnection(gen, err)
				default:
					m.dropConnection(gen, &websocket.CloseError{Code: CloseAbnormal})
				}
				return
			}
			m.handleFrame(gen, msg)

		case err := <-client.Errors():
			// Deliver whatever was read before the failure.
			for drained := false; !drained; {
				select {
				case msg, ok := <-client.Messages():
					if !ok {
						drained = true
						continue
					}
					m.handleFrame(gen, msg)
				default:
					drained = true
				}
			}
			m.dropConnection(gen, err)
			return
		}
	}
}

// handleFrame decodes one inbound frame and publishes the matching event.
// Frames that are not JSON envelopes are counted and dropped.
func (m *Manager) handleFrame(gen uint64, msg TimestampedMessage) {
	m.framesReceived.Add(1)

	env, err := envelope.Decode(msg.Data)
	if err != nil {
		m.parseErrors.Add(1)
		m.metrics.ObserveDropped("malformed")
		m.logger.Warn("dropping malformed frame", "error", err, "size", len(msg.Data))
		return
	}
	m.metrics.ObserveFrame(env.Type)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}

	switch env.Type {
	case envelope.TypePong:
		if m.monitor != nil {
			m.monitor.RecordPong(msg.ReceivedAt)
		}
		m.lastHeartbeat = msg.ReceivedAt
		m.metrics.ObservePong(msg.ReceivedAt)

	case envelope.TypeScheduleNotification:
		var n envelope.ScheduleNotification
		raw := m.decodePayload(env, &n)
		m.events.PublishScheduleNotification(n, raw)

	case envelope.TypePipelineUpdate:
		var u envelope.PipelineUpdate
		raw := m.decodePayload(env, &u)
		m.events.PublishPipelineUpdate(u, raw)

	case envelope.TypeSystemAlert:
		var a envelope.SystemAlert
		raw := m.decodePayload(env, &a)
		m.events.PublishSystemAlert(a, raw)

	default:
		m.unknownFrames.Add(1)
		m.events.PublishMessage(env)
	}
}

// decodePayload fills v from the frame data as far as it fits and returns
// the data as received, or nil when the frame has none. Typed frames are
// delivered either way; a mismatch is only logged.
func (m *Manager) decodePayload(env envelope.Envelope, v any) json.RawMessage {
	if !env.HasData() {
		m.logger.Debug("typed frame without data", "type", env.Type)
		return nil
	}
	if err := env.DecodeData(v); err != nil {
		m.payloadMismatches.Add(1)
		m.logger.Warn("frame data does not match its type", "type", env.Type, "error", err)
	}
	return env.Data
}

// dropConnection handles the end of the socket for gen. Anything but a
// normal closure schedules a reconnect.
func (m *Manager) dropConnection(gen uint64, cause error) {
	code, reason, abnormal := closeInfo(cause)

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	client := m.teardownLocked()
	m.setStateLocked(StateDisconnected)
	m.metrics.ObserveDisconnect(code)

	if abnormal {
		m.events.PublishError(cause)
	}
	m.events.PublishDisconnected(code, reason)
	m.logger.Warn("connection closed", "code", code, "reason", reason, "error", cause)

	if code != CloseNormal {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	if client != nil {
		client.Close()
	}
}

// teardownLocked detaches the live socket and stops its heartbeat. The
// caller closes the returned client outside the lock.
func (m *Manager) teardownLocked() Client {
	if m.monitor != nil {
		m.monitor.Stop()
		m.monitor = nil
	}
	client := m.client
	m.client = nil
	return client
}

func (m *Manager) heartbeatSend(gen uint64, f envelope.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateConnected {
		return
	}
	m.sendFrameLocked(f)
}

func (m *Manager) heartbeatStale(gen uint64, missed int) {
	m.dropConnection(gen, fmt.Errorf("%w: %d pings unanswered", ErrStaleConnection, missed))
}

func (m *Manager) sendFrameLocked(f envelope.Frame) {
	data, err := envelope.Encode(f)
	if err != nil {
		m.logger.Warn("dropping unserializable frame", "type", f.Type, "error", err)
		return
	}
	m.writeLocked(f.Type, data)
}

func (m *Manager) writeLocked(frameType string, data []byte) {
	if m.state != StateConnected || m.client == nil {
		m.logger.Warn("not connected, dropping frame", "type", frameType)
		m.metrics.ObserveDropped("not_connected")
		return
	}
	if err := m.client.Send(data); err != nil {
		m.logger.Warn("failed to send frame", "type", frameType, "error", err)
		m.metrics.ObserveDropped("send_failed")
		return
	}
	m.metrics.ObserveSent(frameType)
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	m.metrics.SetState(int(s))
}

func (m *Manager) channelsLocked() []string {
	keys := make([]string, 0, len(m.subs))
	for k := range m.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// closeInfo maps a socket error to a close code and reason. abnormal is true
// when no close frame was received.
func closeInfo(err error) (code int, reason string, abnormal bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		reason = ce.Text
		if reason == "" || ce.Code == CloseAbnormal {
			reason = closeReason(ce.Code)
		}
		return ce.Code, reason, ce.Code == CloseAbnormal
	}
	if errors.Is(err, ErrStaleConnection) {
		return CloseAbnormal, "heartbeat timeout", true
	}
	return CloseAbnormal, closeReason(CloseAbnormal), true
}

func closeReason(code int) string {
	switch code {
	case websocket.CloseNormalClosure:
		return "normal closure"
	case websocket.CloseGoingAway:
		return "going away"
	case websocket.CloseProtocolError:
		return "protocol error"
	case websocket.CloseInternalServerErr:
		return "internal server error"
	case websocket.CloseServiceRestart:
		return "service restart"
	case websocket.CloseTryAgainLater:
		return "try again later"
	default:
		return "abnormal closure"
	}
}

func frameType(v any) string {
	switch f := v.(type) {
	case envelope.Frame:
		return f.Type
	case *envelope.Frame:
		if f != nil {
			return f.Type
		}
	}
	return "custom"
}

// pendingConnect is one in-flight dial that Connect callers wait on.
type pendingConnect struct {
	gen  uint64
	done chan struct{}
	once sync.Once
	err  error
}

func newPendingConnect(gen uint64) *pendingConnect {
	return &pendingConnect{gen: gen, done: make(chan struct{})}
}

func (p *pendingConnect) settle(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

func (p *pendingConnect) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
