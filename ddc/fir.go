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

package ddc

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

const (
	minTaps = 15
	maxTaps = 511
)

// LowpassTaps designs a Blackman-windowed sinc low-pass filter for the given
// sample rate. Tap count is derived from the normalized transition width,
// forced odd and clamped to [15,511]. Taps are normalized to unity DC gain.
func LowpassTaps(sampleRate, cutoffHz, transitionHz float64) []float64 {
	normTransition := transitionHz / sampleRate

	n := int(math.Ceil(4 / normTransition))
	if n&1 == 0 {
		n++
	}
	if n < minTaps {
		n = minTaps
	}
	if n > maxTaps {
		n = maxTaps
	}

	fc := cutoffHz / sampleRate
	mid := n >> 1

	taps := make([]float64, n)
	for idx := range taps {
		x := float64(idx - mid)
		if x == 0 {
			taps[idx] = 2 * math.Pi * fc
		} else {
			taps[idx] = math.Sin(2*math.Pi*fc*x) / x
		}
	}

	window.Blackman(taps)

	var sum float64
	for _, tap := range taps {
		sum += tap
	}
	for idx := range taps {
		taps[idx] /= sum
	}

	return taps
}
