package tetra

import (
	"sync"
	"time"
)

// DefaultFlushInterval bounds how often the delivery consumer runs,
// independent of burst rate.
const DefaultFlushInterval = 100 * time.Millisecond

// Batcher accumulates decoded records across burst handling and flushes
// them to the consumer at a bounded interval. Appends come from the hub's
// dispatch worker; flushes run on a timer goroutine. Its lock is
// independent of the hub's queue lock and is never held across a delivery
// call.
type Batcher struct {
	mu        sync.Mutex
	pending   []ReceivedData
	scheduled bool
	closed    bool

	interval time.Duration
	deliver  func([]ReceivedData)
}

// NewBatcher returns a batcher delivering to the given consumer. A
// non-positive interval selects DefaultFlushInterval.
func NewBatcher(interval time.Duration, deliver func([]ReceivedData)) *Batcher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Batcher{interval: interval, deliver: deliver}
}

// Append merges records into the shared buffer and schedules a flush
// unless one is already pending.
func (b *Batcher) Append(recs []ReceivedData) {
	if len(recs) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.pending = append(b.pending, recs...)
	if !b.scheduled {
		b.scheduled = true
		time.AfterFunc(b.interval, b.flush)
	}
}

func (b *Batcher) flush() {
	b.mu.Lock()
	recs := b.pending
	b.pending = nil
	b.scheduled = false
	b.mu.Unlock()

	if len(recs) > 0 && b.deliver != nil {
		b.deliver(recs)
	}
}

// Close delivers anything still pending and rejects further appends.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.closed = true
	recs := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(recs) > 0 && b.deliver != nil {
		b.deliver(recs)
	}
}
