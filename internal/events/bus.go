package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Listener is a registered callback. Its pointer identity is what makes a
// registration unique, so keep the handle to unregister it later.
type Listener struct {
	fn func(Event)
}

// Listen wraps fn in a new Listener.
func Listen(fn func(Event)) *Listener {
	return &Listener{fn: fn}
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithPanicHook sets a function called after a listener panic is recovered.
func WithPanicHook(fn func(kind Kind, recovered any)) BusOption {
	return func(b *Bus) {
		b.onPanic = fn
	}
}

// Bus is a registry of listeners keyed by event kind.
type Bus struct {
	logger  *slog.Logger
	onPanic func(Kind, any)

	mu        sync.RWMutex
	listeners map[Kind]map[*Listener]struct{}
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		logger:    logger,
		listeners: make(map[Kind]map[*Listener]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers l for kind and returns it. Registering the same listener
// twice for the same kind has no additional effect.
func (b *Bus) On(kind Kind, l *Listener) *Listener {
	if l == nil || l.fn == nil {
		return l
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.listeners[kind]
	if !ok {
		set = make(map[*Listener]struct{})
		b.listeners[kind] = set
	}
	set[l] = struct{}{}
	return l
}

// Off removes l from kind. A nil listener removes every listener for kind.
func (b *Bus) Off(kind Kind, l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l == nil {
		delete(b.listeners, kind)
		return
	}

	set := b.listeners[kind]
	delete(set, l)
	if len(set) == 0 {
		delete(b.listeners, kind)
	}
}

// ListenerCount returns the number of listeners registered for kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

// Publish delivers ev to every listener registered for its kind.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	kind := ev.Kind()

	// Snapshot so listeners may call On/Off without deadlocking.
	b.mu.RLock()
	set := b.listeners[kind]
	targets := make([]*Listener, 0, len(set))
	for l := range set {
		targets = append(targets, l)
	}
	b.mu.RUnlock()

	for _, l := range targets {
		b.invoke(kind, l, ev)
	}
}

func (b *Bus) invoke(kind Kind, l *Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				"kind", kind,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			if b.onPanic != nil {
				b.onPanic(kind, r)
			}
		}
	}()
	l.fn(ev)
}

// OnConnected registers a typed listener for Connected.
func (b *Bus) OnConnected(fn func(Connected)) *Listener {
	return b.On(KindConnected, Listen(func(ev Event) {
		if e, ok := ev.(Connected); ok {
			fn(e)
		}
	}))
}

// OnDisconnected registers a typed listener for Disconnected.
func (b *Bus) OnDisconnected(fn func(Disconnected)) *Listener {
	return b.On(KindDisconnected, Listen(func(ev Event) {
		if e, ok := ev.(Disconnected); ok {
			fn(e)
		}
	}))
}

// OnError registers a typed listener for Error.
func (b *Bus) OnError(fn func(Error)) *Listener {
	return b.On(KindError, Listen(func(ev Event) {
		if e, ok := ev.(Error); ok {
			fn(e)
		}
	}))
}

// OnReconnecting registers a typed listener for Reconnecting.
func (b *Bus) OnReconnecting(fn func(Reconnecting)) *Listener {
	return b.On(KindReconnecting, Listen(func(ev Event) {
		if e, ok := ev.(Reconnecting); ok {
			fn(e)
		}
	}))
}

// OnMaxReconnectAttemptsReached registers a typed listener for MaxReconnectAttemptsReached.
func (b *Bus) OnMaxReconnectAttemptsReached(fn func(MaxReconnectAttemptsReached)) *Listener {
	return b.On(KindMaxReconnectAttemptsReached, Listen(func(ev Event) {
		if e, ok := ev.(MaxReconnectAttemptsReached); ok {
			fn(e)
		}
	}))
}

// OnScheduleNotification registers a typed listener for ScheduleNotification.
func (b *Bus) OnScheduleNotification(fn func(ScheduleNotification)) *Listener {
	return b.On(KindScheduleNotification, Listen(func(ev Event) {
		if e, ok := ev.(ScheduleNotification); ok {
			fn(e)
		}
	}))
}

// OnPipelineUpdate registers a typed listener for PipelineUpdate.
func (b *Bus) OnPipelineUpdate(fn func(PipelineUpdate)) *Listener {
	return b.On(KindPipelineUpdate, Listen(func(ev Event) {
		if e, ok := ev.(PipelineUpdate); ok {
			fn(e)
		}
	}))
}

// OnSystemAlert registers a typed listener for SystemAlert.
func (b *Bus) OnSystemAlert(fn func(SystemAlert)) *Listener {
	return b.On(KindSystemAlert, Listen(func(ev Event) {
		if e, ok := ev.(SystemAlert); ok {
			fn(e)
		}
	}))
}

// OnMessage registers a typed listener for the catch-all Message event.
func (b *Bus) OnMessage(fn func(Message)) *Listener {
	return b.On(KindMessage, Listen(func(ev Event) {
		if e, ok := ev.(Message); ok {
			fn(e)
		}
	}))
}
