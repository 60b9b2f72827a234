package ddc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLowpassTapsUnityGain(t *testing.T) {
	taps := LowpassTaps(333333.3, CutoffHz, TransitionHz)

	var sum float64
	for _, tap := range taps {
		sum += tap
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	assert.Equal(t, 1, len(taps)&1, "tap count must be odd")
}

func TestLowpassTapsClamp(t *testing.T) {
	// A very wide transition band demands fewer taps than the floor allows.
	assert.Equal(t, minTaps, len(LowpassTaps(48000, 14000, 24000)))

	// A very narrow one demands more than the ceiling allows.
	assert.Equal(t, maxTaps, len(LowpassTaps(2.4e6, 14000, 1000)))
}

func TestLowpassTapsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.Float64Range(72000, 3.2e6).Draw(t, "rate")
		taps := LowpassTaps(rate, CutoffHz, TransitionHz)

		if len(taps)&1 == 0 {
			t.Fatalf("even tap count %d", len(taps))
		}
		if len(taps) < minTaps || len(taps) > maxTaps {
			t.Fatalf("tap count %d outside clamp", len(taps))
		}

		var sum float64
		for _, tap := range taps {
			sum += tap
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Fatalf("dc gain %f", sum)
		}

		// Symmetric kernel, linear phase.
		for idx := range taps[:len(taps)/2] {
			if math.Abs(taps[idx]-taps[len(taps)-1-idx]) > 1e-12 {
				t.Fatalf("asymmetric taps at %d", idx)
			}
		}
	})
}
