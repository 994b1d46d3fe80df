package buffer

import (
	"sync"
	"testing"
	"time"
)

func TestGrowableBuffer_FIFO(t *testing.T) {
	buf := New[int](10)

	for i := 0; i < 5; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := buf.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	if _, ok := buf.TryReceive(); ok {
		t.Error("TryReceive() on empty buffer returned true")
	}
}

func TestGrowableBuffer_GrowAt70Percent(t *testing.T) {
	buf := New[int](10)

	for i := 0; i < 7; i++ {
		buf.Send(i)
	}

	stats := buf.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	got := buf.DrainTo(0)
	for i, v := range got {
		if v != i {
			t.Errorf("item %d = %d after grow", i, v)
		}
	}
}

func TestGrowableBuffer_GrowWhileWrapped(t *testing.T) {
	buf := New[int](10)

	// Move head forward so the ring wraps before growing.
	for i := 0; i < 5; i++ {
		buf.Send(i)
	}
	buf.DrainTo(4)

	for i := 5; i < 40; i++ {
		buf.Send(i)
	}

	got := buf.DrainTo(0)
	if len(got) != 36 {
		t.Fatalf("drained %d items, want 36", len(got))
	}
	for i, v := range got {
		if v != i+4 {
			t.Fatalf("item %d = %d, want %d", i, v, i+4)
		}
	}
}

func TestGrowableBuffer_BoundedDropsOldest(t *testing.T) {
	buf := NewBounded[int](2, 4)

	for i := 0; i < 10; i++ {
		buf.Send(i)
	}

	stats := buf.Stats()
	if stats.Count != 4 {
		t.Errorf("Count = %d, want 4", stats.Count)
	}
	if stats.Dropped != 6 {
		t.Errorf("Dropped = %d, want 6", stats.Dropped)
	}
	if stats.Capacity > 4 {
		t.Errorf("Capacity = %d, want <= 4", stats.Capacity)
	}

	got := buf.DrainTo(0)
	want := []int{6, 7, 8, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestGrowableBuffer_DrainToMax(t *testing.T) {
	buf := New[string](4)
	for _, s := range []string{"a", "b", "c"} {
		buf.Send(s)
	}

	first := buf.DrainTo(2)
	if len(first) != 2 || first[0] != "a" || first[1] != "b" {
		t.Errorf("DrainTo(2) = %v", first)
	}
	if buf.Len() != 1 {
		t.Errorf("Len() = %d, want 1", buf.Len())
	}
	if rest := buf.DrainTo(10); len(rest) != 1 || rest[0] != "c" {
		t.Errorf("DrainTo(10) = %v", rest)
	}
	if buf.DrainTo(1) != nil {
		t.Error("DrainTo on empty buffer should return nil")
	}
}

func TestGrowableBuffer_ReceiveBlocksUntilSend(t *testing.T) {
	buf := New[int](4)

	got := make(chan int, 1)
	go func() {
		v, ok := buf.Receive()
		if ok {
			got <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	buf.Send(99)

	select {
	case v := <-got:
		if v != 99 {
			t.Errorf("Receive() = %d, want 99", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not return after Send")
	}
}

func TestGrowableBuffer_CloseDrainsThenStops(t *testing.T) {
	buf := New[int](4)
	buf.Send(1)
	buf.Send(2)
	buf.Close()

	if buf.Send(3) {
		t.Error("Send after Close returned true")
	}

	for _, want := range []int{1, 2} {
		v, ok := buf.Receive()
		if !ok || v != want {
			t.Errorf("Receive() = %d, %v; want %d, true", v, ok, want)
		}
	}

	if _, ok := buf.Receive(); ok {
		t.Error("Receive() on closed, empty buffer returned true")
	}
}

func TestGrowableBuffer_ConcurrentProducers(t *testing.T) {
	buf := New[int](8)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				buf.Send(i)
			}
		}()
	}
	wg.Wait()

	stats := buf.Stats()
	if stats.Count != 1000 || stats.TotalIn != 1000 {
		t.Errorf("Count = %d, TotalIn = %d, want 1000", stats.Count, stats.TotalIn)
	}
}
