// Package liveness implements the heartbeat monitor that keeps an open
// connection warm and tracks whether the server is still answering.
//
// While running, the monitor emits a ping frame every interval. A tick that
// finds the previous ping still unanswered counts as a missed heartbeat; when
// MaxMissed consecutive heartbeats are missed the monitor stops itself and
// reports the connection as stale. A zero MaxMissed takes the default; a
// negative MaxMissed disables the check and the monitor only keeps
// intermediaries from idling the socket.
package liveness

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/realtime-client/internal/envelope"
)

// Config configures a Monitor.
type Config struct {
	Interval  time.Duration // Time between pings
	MaxMissed int           // Unanswered pings before reporting stale (0 = default, < 0 = never)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:  30 * time.Second,
		MaxMissed: 3,
	}
}

// Snapshot is a copy of the heartbeat state.
type Snapshot struct {
	Running            bool
	Interval           time.Duration
	LastPingSentAt     time.Time
	LastPongReceivedAt time.Time
	Missed             int
}

// Monitor sends pings and records pongs for one connection at a time.
type Monitor struct {
	cfg     Config
	send    func(envelope.Frame)
	onStale func(missed int)
	logger  *slog.Logger

	mu       sync.Mutex
	running  bool
	gen      uint64
	done     chan struct{}
	lastPing time.Time
	lastPong time.Time
	missed   int
	awaiting bool // a ping is outstanding
}

// New creates a stopped monitor. send writes a frame to the connection;
// onStale is called (from the monitor goroutine) when the connection is
// considered dead.
func New(cfg Config, send func(envelope.Frame), onStale func(missed int), logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxMissed == 0 {
		cfg.MaxMissed = DefaultConfig().MaxMissed
	}

	return &Monitor{
		cfg:     cfg,
		send:    send,
		onStale: onStale,
		logger:  logger,
	}
}

// Start begins the ping loop. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.running = true
	m.gen++
	m.done = make(chan struct{})
	m.missed = 0
	m.awaiting = false

	go m.loop(m.gen, m.done)
}

// Stop ends the ping loop. Safe to call when already stopped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// RecordPong marks the outstanding ping as answered.
func (m *Monitor) RecordPong(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPong = at
	m.missed = 0
	m.awaiting = false
}

// Snapshot returns the current heartbeat state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Running:            m.running,
		Interval:           m.cfg.Interval,
		LastPingSentAt:     m.lastPing,
		LastPongReceivedAt: m.lastPong,
		Missed:             m.missed,
	}
}

func (m *Monitor) stopLocked() {
	if !m.running {
		return
	}
	m.running = false
	close(m.done)
}

func (m *Monitor) loop(gen uint64, done <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !m.tick(gen) {
				return
			}
		}
	}
}

// tick runs one heartbeat. Returns false when the loop should exit.
func (m *Monitor) tick(gen uint64) bool {
	m.mu.Lock()
	if !m.running || m.gen != gen {
		m.mu.Unlock()
		return false
	}

	if m.awaiting {
		m.missed++
	}

	if m.cfg.MaxMissed > 0 && m.missed >= m.cfg.MaxMissed {
		missed := m.missed
		lastPong := m.lastPong
		m.stopLocked()
		m.mu.Unlock()

		m.logger.Warn("heartbeat missed, connection stale",
			"missed", missed,
			"last_pong", lastPong,
			"interval", m.cfg.Interval,
		)
		if m.onStale != nil {
			m.onStale(missed)
		}
		return false
	}

	now := time.Now()
	m.lastPing = now
	m.awaiting = true
	m.mu.Unlock()

	if m.send != nil {
		m.send(envelope.Ping(now))
	}
	return true
}
