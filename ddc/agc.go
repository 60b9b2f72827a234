package ddc

import "math/cmplx"

// AGC normalizes narrowband signal amplitude with a running magnitude
// estimate. Gain is the desired output level, Decay the estimator's
// per-sample smoothing factor.
type AGC struct {
	Gain  float64
	Decay float64

	level float64
}

// Process scales buf in place.
func (a *AGC) Process(buf []complex128) {
	gain := a.Gain
	if gain == 0 {
		gain = 1
	}
	decay := a.Decay
	if decay <= 0 || decay > 1 {
		decay = 0.01
	}

	for idx, s := range buf {
		mag := cmplx.Abs(s)
		a.level += decay * (mag - a.level)
		if a.level > 1e-9 {
			buf[idx] = s * complex(gain/a.level, 0)
		}
	}
}

// Reset clears the magnitude estimate.
func (a *AGC) Reset() {
	a.level = 0
}
