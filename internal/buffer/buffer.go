// Package buffer provides the ordered in-memory queue shared by the event
// dispatcher and the journal writer.
package buffer

import (
	"sync"
)

// GrowableBuffer is a thread-safe FIFO ring that doubles its capacity when it
// reaches 70% full. When a limit is set the buffer stops growing at the limit
// and evicts the oldest item to make room for a new one.
type GrowableBuffer[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	limit    int // 0 = unbounded
	closed   bool

	// Stats
	totalIn     int64
	totalOut    int64
	dropped     int64
	resizeCount int
}

// New creates an unbounded buffer with the given initial capacity.
func New[T any](initialCapacity int) *GrowableBuffer[T] {
	return NewBounded[T](initialCapacity, 0)
}

// NewBounded creates a buffer that never holds more than limit items.
// A limit <= 0 means unbounded.
func NewBounded[T any](initialCapacity, limit int) *GrowableBuffer[T] {
	if initialCapacity < 2 {
		initialCapacity = 2
	}
	if limit > 0 && initialCapacity > limit {
		initialCapacity = limit
	}
	b := &GrowableBuffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		limit:    limit,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send appends an item. Returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.limit > 0 && b.count >= b.limit {
		b.popLocked()
		b.dropped++
	} else if b.count+1 >= b.threshold() && (b.limit <= 0 || b.capacity < b.limit) {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalIn++

	b.cond.Signal()
	return true
}

// Receive removes the oldest item, blocking until one is available.
// Returns false once the buffer is closed and drained.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		var zero T
		return zero, false
	}

	b.totalOut++
	return b.popLocked(), true
}

// TryReceive removes the oldest item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}

	b.totalOut++
	return b.popLocked(), true
}

// DrainTo removes up to max items (all when max <= 0) in FIFO order.
func (b *GrowableBuffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := range result {
		result[i] = b.popLocked()
	}
	b.totalOut += int64(n)
	return result
}

// Close rejects further sends. Receivers drain what is left, then get false.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of queued items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Count:       b.count,
		Capacity:    b.capacity,
		TotalIn:     b.totalIn,
		TotalOut:    b.totalOut,
		Dropped:     b.dropped,
		ResizeCount: b.resizeCount,
	}
}

// Stats contains buffer statistics.
type Stats struct {
	Count       int
	Capacity    int
	TotalIn     int64
	TotalOut    int64
	Dropped     int64 // evicted by the limit
	ResizeCount int
}

func (b *GrowableBuffer[T]) threshold() int {
	t := (b.capacity * 70) / 100
	if t < 1 {
		t = 1
	}
	return t
}

// popLocked removes the head item. Caller holds mu and guarantees count > 0.
func (b *GrowableBuffer[T]) popLocked() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // release for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	return item
}

// grow doubles the capacity (capped at limit). Caller holds mu.
func (b *GrowableBuffer[T]) grow() {
	newCapacity := b.capacity * 2
	if b.limit > 0 && newCapacity > b.limit {
		newCapacity = b.limit
	}
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizeCount++
}
