package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every dispatched block.
type recordingSink struct {
	mu     sync.Mutex
	blocks [][]complex128
	rates  []int
	err    error
}

func (s *recordingSink) Intake(samples []complex128, rate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, append([]complex128(nil), samples...))
	s.rates = append(s.rates, rate)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestPushDispatches(t *testing.T) {
	h := New(MinDepth)
	defer h.Close()

	sink := &recordingSink{}
	h.AddSink(sink)

	require.NoError(t, h.Push([]complex128{1, 2, 3}, 48000))
	waitFor(t, func() bool { return sink.count() == 1 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []complex128{1, 2, 3}, sink.blocks[0])
	assert.Equal(t, 48000, sink.rates[0])
}

func TestPushCopies(t *testing.T) {
	h := New(MinDepth)
	defer h.Close()

	sink := &recordingSink{}
	h.AddSink(sink)

	buf := []complex128{1, 1, 1}
	require.NoError(t, h.Push(buf, 48000))
	buf[0] = 99

	waitFor(t, func() bool { return sink.count() == 1 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, complex128(1), sink.blocks[0][0])
}

func TestPushEmptyBlock(t *testing.T) {
	h := New(MinDepth)
	defer h.Close()

	assert.Equal(t, ErrEmptyBlock, h.Push(nil, 48000))
}

func TestRateFallback(t *testing.T) {
	h := New(MinDepth)
	defer h.Close()

	sink := &recordingSink{}
	h.AddSink(sink)

	// No known-good rate yet: the block must not reach sinks with rate 0.
	assert.Equal(t, ErrNoRate, h.Push([]complex128{1}, 0))

	require.NoError(t, h.Push([]complex128{1}, 48000))
	require.NoError(t, h.Push([]complex128{1}, 0))

	waitFor(t, func() bool { return sink.count() == 2 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []int{48000, 48000}, sink.rates)
}

func TestDropOldest(t *testing.T) {
	// No sink registered, so blocks pile up in the queue until the worker
	// drains them; stop the worker first so the queue truly fills.
	h := New(MinDepth)
	h.once.Do(func() { close(h.stop) })
	<-h.done

	total := MinDepth * 3
	for idx := 0; idx < total; idx++ {
		require.NoError(t, h.Push([]complex128{complex(float64(idx), 0)}, 48000))
	}

	assert.Equal(t, uint64(total-MinDepth), h.Dropped())

	// The queue holds the newest blocks in order, oldest were dropped.
	for idx := total - MinDepth; idx < total; idx++ {
		b := <-h.queue
		assert.Equal(t, complex(float64(idx), 0), b.samples[0])
	}
}

func TestAddRemoveSinkIdempotent(t *testing.T) {
	h := New(MinDepth)
	defer h.Close()

	sink := &recordingSink{}
	h.AddSink(sink)
	h.AddSink(sink)

	require.NoError(t, h.Push([]complex128{1}, 48000))
	waitFor(t, func() bool { return sink.count() >= 1 })
	assert.Equal(t, 1, sink.count())

	h.RemoveSink(sink)
	h.RemoveSink(sink)

	h.mu.Lock()
	assert.Empty(t, h.sinks)
	h.mu.Unlock()
}

func TestSinkErrorIsolated(t *testing.T) {
	h := New(MinDepth)
	defer h.Close()

	bad := &recordingSink{err: ErrEmptyBlock}
	good := &recordingSink{}
	h.AddSink(bad)
	h.AddSink(good)

	require.NoError(t, h.Push([]complex128{1}, 48000))
	waitFor(t, func() bool { return good.count() == 1 })
}

func TestCloseRejectsPush(t *testing.T) {
	h := New(MinDepth)
	require.NoError(t, h.Close())
	assert.Equal(t, ErrClosed, h.Push([]complex128{1}, 48000))
}

func TestCloseIdempotent(t *testing.T) {
	h := New(MinDepth)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestDepthClamp(t *testing.T) {
	h := New(0)
	assert.Equal(t, MinDepth, cap(h.queue))
	h.Close()

	h = New(1 << 10)
	assert.Equal(t, MaxDepth, cap(h.queue))
	h.Close()
}
