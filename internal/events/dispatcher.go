package events

import (
	"encoding/json"
	"time"

	"github.com/rickgao/realtime-client/internal/buffer"
	"github.com/rickgao/realtime-client/internal/envelope"
)

// Dispatcher queues events and delivers them to a Bus from one goroutine, in
// the order they were published. Publishing never blocks and never runs
// listener code on the caller's goroutine.
type Dispatcher struct {
	bus   *Bus
	queue *buffer.GrowableBuffer[Event]
	done  chan struct{}
}

// NewDispatcher starts a dispatcher for bus. limit bounds the queue (oldest
// events are evicted past it); limit <= 0 means unbounded.
func NewDispatcher(bus *Bus, limit int) *Dispatcher {
	d := &Dispatcher{
		bus:   bus,
		queue: buffer.NewBounded[Event](64, limit),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Bus returns the bus events are delivered to.
func (d *Dispatcher) Bus() *Bus {
	return d.bus
}

// Publish queues ev. Returns false after Close.
func (d *Dispatcher) Publish(ev Event) bool {
	return d.queue.Send(ev)
}

// PublishConnected queues a Connected event.
func (d *Dispatcher) PublishConnected(url string) { d.Publish(Connected{URL: url}) }

// PublishDisconnected queues a Disconnected event.
func (d *Dispatcher) PublishDisconnected(code int, reason string) {
	d.Publish(Disconnected{Code: code, Reason: reason})
}

// PublishError queues an Error event.
func (d *Dispatcher) PublishError(err error) { d.Publish(Error{Err: err}) }

// PublishReconnecting queues a Reconnecting event.
func (d *Dispatcher) PublishReconnecting(attempt int, delay time.Duration) {
	d.Publish(Reconnecting{Attempt: attempt, Delay: delay})
}

// PublishMaxReconnectAttemptsReached queues a MaxReconnectAttemptsReached event.
func (d *Dispatcher) PublishMaxReconnectAttemptsReached(attempts int) {
	d.Publish(MaxReconnectAttemptsReached{Attempts: attempts})
}

// PublishScheduleNotification queues a ScheduleNotification event.
func (d *Dispatcher) PublishScheduleNotification(n envelope.ScheduleNotification, raw json.RawMessage) {
	d.Publish(ScheduleNotification{ScheduleNotification: n, Raw: raw})
}

// PublishPipelineUpdate queues a PipelineUpdate event.
func (d *Dispatcher) PublishPipelineUpdate(u envelope.PipelineUpdate, raw json.RawMessage) {
	d.Publish(PipelineUpdate{PipelineUpdate: u, Raw: raw})
}

// PublishSystemAlert queues a SystemAlert event.
func (d *Dispatcher) PublishSystemAlert(a envelope.SystemAlert, raw json.RawMessage) {
	d.Publish(SystemAlert{SystemAlert: a, Raw: raw})
}

// PublishMessage queues a catch-all Message event.
func (d *Dispatcher) PublishMessage(env envelope.Envelope) {
	d.Publish(Message{Envelope: env})
}

// Pending returns the number of queued, undelivered events.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Dropped returns how many events were evicted by the queue limit.
func (d *Dispatcher) Dropped() int64 {
	return d.queue.Stats().Dropped
}

// Close stops accepting events and waits until queued ones are delivered.
// It must not be called from a listener.
func (d *Dispatcher) Close() {
	d.queue.Close()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		ev, ok := d.queue.Receive()
		if !ok {
			return
		}
		d.bus.Publish(ev)
	}
}
