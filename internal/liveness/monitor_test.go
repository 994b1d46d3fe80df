package liveness

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/realtime-client/internal/envelope"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []envelope.Frame
}

func (r *frameRecorder) send(f envelope.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestMonitor_SendsPings(t *testing.T) {
	rec := &frameRecorder{}
	m := New(Config{Interval: 10 * time.Millisecond, MaxMissed: -1}, rec.send, nil, nil)

	m.Start()
	time.Sleep(55 * time.Millisecond)
	m.Stop()

	if n := rec.count(); n < 3 {
		t.Fatalf("sent %d pings, want at least 3", n)
	}

	rec.mu.Lock()
	first := rec.frames[0]
	rec.mu.Unlock()
	if first.Type != envelope.TypePing {
		t.Errorf("frame type = %q, want %q", first.Type, envelope.TypePing)
	}
	if first.Timestamp == 0 {
		t.Error("ping has no timestamp")
	}

	snap := m.Snapshot()
	if snap.Running {
		t.Error("Snapshot().Running = true after Stop")
	}
	if snap.LastPingSentAt.IsZero() {
		t.Error("LastPingSentAt not recorded")
	}
}

func TestMonitor_StopHaltsPings(t *testing.T) {
	rec := &frameRecorder{}
	m := New(Config{Interval: 10 * time.Millisecond, MaxMissed: -1}, rec.send, nil, nil)

	m.Start()
	time.Sleep(25 * time.Millisecond)
	m.Stop()
	m.Stop()

	// Allow an in-flight tick to finish.
	time.Sleep(5 * time.Millisecond)
	before := rec.count()
	time.Sleep(40 * time.Millisecond)

	if after := rec.count(); after != before {
		t.Errorf("pings continued after Stop: %d -> %d", before, after)
	}
}

func TestMonitor_StaleAfterMissedPongs(t *testing.T) {
	var stale atomic.Int32
	m := New(Config{Interval: 10 * time.Millisecond, MaxMissed: 2}, func(envelope.Frame) {}, func(missed int) {
		if missed != 2 {
			t.Errorf("onStale missed = %d, want 2", missed)
		}
		stale.Add(1)
	}, nil)

	m.Start()
	time.Sleep(100 * time.Millisecond)

	if stale.Load() != 1 {
		t.Fatalf("onStale called %d times, want 1", stale.Load())
	}
	if m.Snapshot().Running {
		t.Error("monitor still running after reporting stale")
	}
}

func TestMonitor_PongsKeepConnectionFresh(t *testing.T) {
	var stale atomic.Int32
	var m *Monitor
	m = New(Config{Interval: 10 * time.Millisecond, MaxMissed: 1}, func(envelope.Frame) {
		// Answer every ping immediately.
		go m.RecordPong(time.Now())
	}, func(int) { stale.Add(1) }, nil)

	m.Start()
	time.Sleep(80 * time.Millisecond)
	m.Stop()

	if stale.Load() != 0 {
		t.Errorf("onStale called %d times with pongs flowing", stale.Load())
	}
	if m.Snapshot().LastPongReceivedAt.IsZero() {
		t.Error("LastPongReceivedAt not recorded")
	}
}

func TestNew_ZeroValuesTakeDefaults(t *testing.T) {
	m := New(Config{}, nil, nil, nil)
	if m.cfg != DefaultConfig() {
		t.Errorf("config = %+v, want %+v", m.cfg, DefaultConfig())
	}

	m = New(Config{Interval: time.Second, MaxMissed: -1}, nil, nil, nil)
	if m.cfg.MaxMissed != -1 {
		t.Errorf("MaxMissed = %d, want -1 kept", m.cfg.MaxMissed)
	}
}

func TestMonitor_PassiveWhenMaxMissedNegative(t *testing.T) {
	var stale atomic.Int32
	rec := &frameRecorder{}
	m := New(Config{Interval: 10 * time.Millisecond, MaxMissed: -1}, rec.send, func(int) { stale.Add(1) }, nil)

	m.Start()
	time.Sleep(60 * time.Millisecond)
	m.Stop()

	if stale.Load() != 0 {
		t.Errorf("passive monitor reported stale %d times", stale.Load())
	}
	if m.Snapshot().Missed == 0 {
		t.Error("expected missed heartbeats to be counted")
	}
}

func TestMonitor_RestartResetsMissed(t *testing.T) {
	m := New(Config{Interval: 10 * time.Millisecond, MaxMissed: -1}, func(envelope.Frame) {}, nil, nil)

	m.Start()
	time.Sleep(45 * time.Millisecond)
	m.Stop()
	if m.Snapshot().Missed == 0 {
		t.Fatal("expected missed heartbeats before restart")
	}

	m.Start()
	if got := m.Snapshot().Missed; got != 0 {
		t.Errorf("Missed after restart = %d, want 0", got)
	}
	m.Stop()
}
