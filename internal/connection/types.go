package connection

import (
	"errors"
	"net/http"
	"time"

	"github.com/rickgao/realtime-client/internal/liveness"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (heartbeat timeout)")
	ErrTimeout         = errors.New("connect timeout")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrDisconnected    = errors.New("disconnected before connect completed")
	ErrSendBufferFull  = errors.New("send buffer full")
)

// Close codes used when reporting disconnects.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL            string        // WebSocket URL (e.g., wss://api.example.com/ws)
	Header         http.Header   // Extra handshake headers
	WriteTimeout   time.Duration // Write deadline for sends
	SendBufferSize int           // Outbound frame queue size
	BufferSize     int           // Inbound message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteTimeout:   5 * time.Second,
		SendBufferSize: 256,
		BufferSize:     1024,
	}
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	URL                  string          // WebSocket URL
	UserAgent            string          // Sent as User-Agent on the handshake
	ConnectTimeout       time.Duration   // Upper bound on a single dial
	ReconnectBaseDelay   time.Duration   // Delay unit; attempt n waits n*base
	MaxReconnectAttempts int             // Automatic retries before giving up
	EventQueueLimit      int             // Undelivered events kept (0 = unbounded)
	Heartbeat            liveness.Config // Ping cadence and stale threshold
	Client               ClientConfig    // Per-socket settings (URL is filled in)
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ConnectTimeout:       10 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		MaxReconnectAttempts: 5,
		EventQueueLimit:      10000,
		Heartbeat:            liveness.DefaultConfig(),
		Client:               DefaultClientConfig(),
	}
}

// Status is a point-in-time view of the Manager.
type Status struct {
	ClientID          string
	IsConnected       bool
	State             State
	ReconnectAttempts int
	ReconnectPending  bool
	Exhausted         bool
	LastHeartbeat     time.Time
	Heartbeat         liveness.Snapshot
	Subscriptions     []string // Sorted channel ids
	FramesReceived    int64
	ParseErrors       int64 // Frames that were not JSON envelopes
	UnknownFrames     int64
	PayloadMismatches int64 // Typed frames delivered with partly decoded data
	PendingEvents     int
	DroppedEvents     int64
}
