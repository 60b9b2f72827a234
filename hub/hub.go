// RTLTETRA - An rtl-sdr receiver for TETRA voice and trunked signaling.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package hub fans a single wideband sample stream out to registered
// channel sinks. Blocks are copied into pooled buffers, queued on a bounded
// FIFO and dispatched sequentially by one worker goroutine; when the
// backlog exceeds the bound the oldest blocks are dropped, trading
// completeness for bounded latency.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	MinDepth = 8
	MaxDepth = 32

	closeTimeout = 2 * time.Second
)

var (
	ErrEmptyBlock = errors.New("empty sample block")
	ErrNoRate     = errors.New("non-positive rate with no known-good fallback")
	ErrClosed     = errors.New("hub closed")
)

// A Sink consumes dispatched sample blocks. The block's samples are only
// valid for the duration of the call; the buffer is pooled and reused.
type Sink interface {
	Intake(samples []complex128, rate int) error
}

type block struct {
	samples []complex128
	rate    int
}

// Hub owns the queue between the hardware callback and the dispatch worker.
type Hub struct {
	queue chan *block
	pool  sync.Pool

	mu       sync.Mutex
	sinks    []Sink
	lastRate int
	closed   bool

	dropped uint64

	stop chan struct{}
	done chan struct{}
	once sync.Once

	log *logrus.Entry
}

// New starts a hub with the given queue depth, clamped to [MinDepth,MaxDepth].
func New(depth int) *Hub {
	if depth < MinDepth {
		depth = MinDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	h := &Hub{
		queue: make(chan *block, depth),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   logrus.WithField("component", "hub"),
	}
	h.pool.New = func() interface{} { return new(block) }

	go h.run()
	return h
}

// Push copies a sample block into an owned buffer and enqueues it. A
// non-positive rate is replaced by the last known-good rate; if none exists
// yet the block is dropped so a zero rate never reaches the channels.
func (h *Hub) Push(samples []complex128, rate int) error {
	if len(samples) == 0 {
		return ErrEmptyBlock
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if rate <= 0 {
		rate = h.lastRate
	} else {
		h.lastRate = rate
	}
	h.mu.Unlock()

	if rate <= 0 {
		return ErrNoRate
	}

	b := h.pool.Get().(*block)
	if cap(b.samples) < len(samples) {
		b.samples = make([]complex128, len(samples))
	}
	b.samples = b.samples[:len(samples)]
	copy(b.samples, samples)
	b.rate = rate

	for {
		select {
		case h.queue <- b:
			return nil
		default:
		}

		// Queue full: drop the oldest entry and retry.
		select {
		case old := <-h.queue:
			h.release(old)
			if n := atomic.AddUint64(&h.dropped, 1); n == 1 || n%64 == 0 {
				h.log.WithField("dropped", n).Warn("backlog full, dropping oldest block")
			}
		default:
		}
	}
}

// AddSink registers a sink; adding a registered sink is a no-op.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, have := range h.sinks {
		if have == s {
			return
		}
	}
	h.sinks = append(h.sinks, s)
}

// RemoveSink unregisters a sink; removing an unknown sink is a no-op. An
// in-flight dispatch pass still sees the snapshot taken before removal.
func (h *Hub) RemoveSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for idx, have := range h.sinks {
		if have == s {
			h.sinks = append(h.sinks[:idx], h.sinks[idx+1:]...)
			return
		}
	}
}

// Dropped returns the number of blocks discarded due to backlog.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// Close stops accepting blocks, wakes the worker and joins it with a
// bounded timeout. The current dispatch pass is allowed to finish.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.once.Do(func() { close(h.stop) })

	select {
	case <-h.done:
		return nil
	case <-time.After(closeTimeout):
		return errors.New("hub: worker failed to stop")
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			return
		case b := <-h.queue:
			h.dispatch(b)
		}
	}
}

// dispatch invokes every currently registered sink sequentially. A failing
// sink is isolated so one bad channel never stops the others.
func (h *Hub) dispatch(b *block) {
	h.mu.Lock()
	sinks := make([]Sink, len(h.sinks))
	copy(sinks, h.sinks)
	h.mu.Unlock()

	for _, s := range sinks {
		if err := s.Intake(b.samples, b.rate); err != nil {
			h.log.WithError(err).Warn("sink intake failed")
		}
	}

	h.release(b)
}

func (h *Hub) release(b *block) {
	b.rate = 0
	h.pool.Put(b)
}
