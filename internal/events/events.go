package events

import (
	"encoding/json"
	"time"

	"github.com/rickgao/realtime-client/internal/envelope"
)

// Kind is the routing key of an event.
type Kind string

// Event kinds.
const (
	KindConnected                   Kind = "connected"
	KindDisconnected                Kind = "disconnected"
	KindError                       Kind = "error"
	KindReconnecting                Kind = "reconnecting"
	KindMaxReconnectAttemptsReached Kind = "maxReconnectAttemptsReached"
	KindScheduleNotification        Kind = envelope.TypeScheduleNotification
	KindPipelineUpdate              Kind = envelope.TypePipelineUpdate
	KindSystemAlert                 Kind = envelope.TypeSystemAlert
	KindMessage                     Kind = "message"
)

// Event is implemented by every event type published on the bus.
type Event interface {
	Kind() Kind
}

// Connected is published when the socket opens.
type Connected struct {
	URL string
}

// Disconnected is published whenever an open or opening connection goes away,
// and on every explicit disconnect.
type Disconnected struct {
	Code   int
	Reason string
}

// Normal reports whether this was a normal (code 1000) closure.
func (d Disconnected) Normal() bool { return d.Code == 1000 }

// Error is published for transport-level failures.
type Error struct {
	Err error
}

// Reconnecting is published when a reconnect attempt is scheduled.
type Reconnecting struct {
	Attempt int
	Delay   time.Duration
}

// MaxReconnectAttemptsReached is published once when the reconnect budget is spent.
type MaxReconnectAttemptsReached struct {
	Attempts int
}

// ScheduleNotification carries a schedule_notification payload. The typed
// fields are filled on a best-effort basis; Raw is the data as received and
// is nil when the frame had none.
type ScheduleNotification struct {
	envelope.ScheduleNotification
	Raw json.RawMessage
}

// PipelineUpdate carries a pipeline_update payload. See ScheduleNotification
// for how Raw relates to the typed fields.
type PipelineUpdate struct {
	envelope.PipelineUpdate
	Raw json.RawMessage
}

// SystemAlert carries a system_alert payload.
type SystemAlert struct {
	envelope.SystemAlert
	Raw json.RawMessage
}

// Message carries any frame whose type has no dedicated event.
type Message struct {
	Envelope envelope.Envelope
}

func (Connected) Kind() Kind                   { return KindConnected }
func (Disconnected) Kind() Kind                { return KindDisconnected }
func (Error) Kind() Kind                       { return KindError }
func (Reconnecting) Kind() Kind                { return KindReconnecting }
func (MaxReconnectAttemptsReached) Kind() Kind { return KindMaxReconnectAttemptsReached }
func (ScheduleNotification) Kind() Kind        { return KindScheduleNotification }
func (PipelineUpdate) Kind() Kind              { return KindPipelineUpdate }
func (SystemAlert) Kind() Kind                 { return KindSystemAlert }
func (Message) Kind() Kind                     { return KindMessage }
