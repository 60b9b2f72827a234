package ddc

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestConfigureRates(t *testing.T) {
	dc := New(72000)
	dc.Configure(2e6, 0)

	assert.Equal(t, 72000.0, dc.TargetRate())
	// 2 MHz / (4 * 72 kHz) = 6.94 -> 6
	assert.InDelta(t, 2e6/6, dc.IntermediateRate(), 1e-9)
}

func TestOutputRate(t *testing.T) {
	dc := New(72000)
	dc.Configure(2e6, 0)

	in := make([]complex128, 10000)
	for idx := range in {
		in[idx] = 1
	}
	out := make([]complex128, 1000)

	n := dc.Process(in, out)

	// 10,000 samples at 2 MHz resample to roughly 360 at 72 kHz.
	assert.InDelta(t, 360, n, 2)
}

func TestDCTonePassthrough(t *testing.T) {
	dc := New(72000)
	dc.Configure(2e6, 0)

	in := make([]complex128, 20000)
	for idx := range in {
		in[idx] = 1
	}
	out := make([]complex128, 2000)

	n := dc.Process(in, out)
	require.Greater(t, n, 100)

	// Once the filter is warm a DC input passes at unity gain.
	for _, s := range out[n-50 : n] {
		assert.InDelta(t, 1.0, real(s), 1e-3)
		assert.InDelta(t, 0.0, imag(s), 1e-3)
	}
}

func TestMixerCentersOffsetTone(t *testing.T) {
	const (
		inputRate = 2e6
		offset    = 25000.0
	)

	dc := New(72000)
	dc.Configure(inputRate, offset)

	in := make([]complex128, 40000)
	for idx := range in {
		ph := 2 * math.Pi * offset * float64(idx) / inputRate
		in[idx] = cmplx.Rect(1, ph)
	}
	out := make([]complex128, 4000)

	n := dc.Process(in, out)
	require.Greater(t, n, 100)

	// A tone at the channel offset mixes to DC: successive output samples
	// hold constant phase.
	for idx := n - 50; idx < n-1; idx++ {
		d := cmplx.Phase(out[idx+1] * cmplx.Conj(out[idx]))
		assert.InDelta(t, 0.0, d, 1e-2)
	}
}

func TestStreamingConsistency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))

		in := make([]complex128, 8192)
		for idx := range in {
			in[idx] = complex(rng.NormFloat64(), rng.NormFloat64())
		}

		whole := New(72000)
		whole.Configure(2e6, 10000)
		wholeOut := make([]complex128, len(in))
		wholeN := whole.Process(in, wholeOut)

		split := New(72000)
		split.Configure(2e6, 10000)
		splitOut := make([]complex128, len(in))

		at := rapid.IntRange(1, len(in)-1).Draw(t, "split")
		splitN := split.Process(in[:at], splitOut)
		splitN += split.Process(in[at:], splitOut[splitN:])

		if wholeN != splitN {
			t.Fatalf("output count mismatch: %d != %d", wholeN, splitN)
		}
		for idx := 0; idx < wholeN; idx++ {
			if cmplx.Abs(wholeOut[idx]-splitOut[idx]) > 1e-12 {
				t.Fatalf("sample %d differs: %v != %v", idx, wholeOut[idx], splitOut[idx])
			}
		}
	})
}

func TestProcessHonorsCapacity(t *testing.T) {
	dc := New(72000)
	dc.Configure(2e6, 0)

	in := make([]complex128, 10000)
	for idx := range in {
		in[idx] = 1
	}

	out := make([]complex128, 10)
	n := dc.Process(in, out)
	assert.Equal(t, 10, n)
}
