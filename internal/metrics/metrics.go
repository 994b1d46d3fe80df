package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "realtime"

// Metrics holds the collectors for one client.
type Metrics struct {
	// Connection metrics
	ConnectionState    prometheus.Gauge
	Connects           prometheus.Counter
	Disconnects        *prometheus.CounterVec
	ReconnectAttempts  prometheus.Counter
	ReconnectExhausted prometheus.Counter
	LastPong           prometheus.Gauge

	// Frame metrics
	FramesReceived *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec

	// Event metrics
	ListenerPanics *prometheus.CounterVec

	// Journal metrics
	JournalRows         prometheus.Counter
	JournalBatchErrors  prometheus.Counter
	JournalFlushLatency prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_state",
				Help:      "Connection state (0=disconnected, 1=connecting, 2=connected, 3=closed)",
			},
		),
		Connects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connects_total",
				Help:      "Total number of successful connections",
			},
		),
		Disconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disconnects_total",
				Help:      "Total number of disconnects by close code",
			},
			[]string{"code"},
		),
		ReconnectAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconnect_attempts_total",
				Help:      "Total number of scheduled reconnect attempts",
			},
		),
		ReconnectExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconnect_exhausted_total",
				Help:      "Total number of times the reconnect budget ran out",
			},
		),
		LastPong: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pong_timestamp_seconds",
				Help:      "Unix time of the last heartbeat reply",
			},
		),
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_received_total",
				Help:      "Total number of decoded inbound frames by type",
			},
			[]string{"type"},
		),
		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_dropped_total",
				Help:      "Total number of frames dropped by reason",
			},
			[]string{"reason"},
		),
		FramesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_sent_total",
				Help:      "Total number of outbound frames by type",
			},
			[]string{"type"},
		),
		ListenerPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listener_panics_total",
				Help:      "Total number of recovered listener panics by event kind",
			},
			[]string{"kind"},
		),
		JournalRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_rows_total",
				Help:      "Total number of events written to the journal",
			},
		),
		JournalBatchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_batch_errors_total",
				Help:      "Total number of journal batches that failed",
			},
		),
		JournalFlushLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "journal_flush_duration_seconds",
				Help:      "Journal batch flush duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.ConnectionState,
			m.Connects,
			m.Disconnects,
			m.ReconnectAttempts,
			m.ReconnectExhausted,
			m.LastPong,
			m.FramesReceived,
			m.FramesDropped,
			m.FramesSent,
			m.ListenerPanics,
			m.JournalRows,
			m.JournalBatchErrors,
			m.JournalFlushLatency,
		)
	}

	return m
}

// Handler returns the Prometheus HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SetState records the connection state as its numeric value.
func (m *Metrics) SetState(state int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(state))
}

// ObserveConnect counts a successful connection.
func (m *Metrics) ObserveConnect() {
	if m == nil {
		return
	}
	m.Connects.Inc()
}

// ObserveDisconnect counts a disconnect with its close code.
func (m *Metrics) ObserveDisconnect(code int) {
	if m == nil {
		return
	}
	m.Disconnects.WithLabelValues(strconv.Itoa(code)).Inc()
}

// ObserveReconnectAttempt counts a scheduled reconnect.
func (m *Metrics) ObserveReconnectAttempt() {
	if m == nil {
		return
	}
	m.ReconnectAttempts.Inc()
}

// ObserveReconnectExhausted counts a spent reconnect budget.
func (m *Metrics) ObserveReconnectExhausted() {
	if m == nil {
		return
	}
	m.ReconnectExhausted.Inc()
}

// ObservePong records the time of a heartbeat reply.
func (m *Metrics) ObservePong(at time.Time) {
	if m == nil {
		return
	}
	m.LastPong.Set(float64(at.UnixNano()) / 1e9)
}

// ObserveFrame counts a decoded inbound frame.
func (m *Metrics) ObserveFrame(frameType string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(frameType).Inc()
}

// ObserveDropped counts a frame dropped for reason.
func (m *Metrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// ObserveSent counts an outbound frame.
func (m *Metrics) ObserveSent(frameType string) {
	if m == nil {
		return
	}
	m.FramesSent.WithLabelValues(frameType).Inc()
}

// ObserveListenerPanic counts a recovered listener panic.
func (m *Metrics) ObserveListenerPanic(kind string) {
	if m == nil {
		return
	}
	m.ListenerPanics.WithLabelValues(kind).Inc()
}

// ObserveJournalFlush records one journal batch.
func (m *Metrics) ObserveJournalFlush(rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.JournalFlushLatency.Observe(elapsed.Seconds())
	if err != nil {
		m.JournalBatchErrors.Inc()
		return
	}
	m.JournalRows.Add(float64(rows))
}
