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

// Package ddc implements a digital down-converter: an NCO mixer followed by
// integrate-and-dump decimation, a windowed-sinc low-pass and a fractional
// linear resampler. One Downconverter isolates a single narrowband channel
// at an arbitrary offset from the wideband center.
package ddc

import (
	"math"
	"math/cmplx"
)

// Channel filter characteristics, fixed relative to the intermediate rate.
const (
	CutoffHz     = 14000
	TransitionHz = 10000
)

// Downconverter mixes a wideband complex stream to baseband and resamples it
// to a fixed target rate. All filter and resampler state carries across
// Process calls until the next Configure.
type Downconverter struct {
	targetRate float64
	inputRate  float64

	// NCO
	phase     float64
	phaseIncr float64

	// Integrate-and-dump decimation.
	decimation int
	boxcar     complex128
	boxcarN    int

	// Channel filter.
	taps     []float64
	delay    []complex128
	delayIdx int

	// Fractional resampler.
	intermediateRate float64
	step             float64
	pos              float64
	last             complex128
}

// New returns an unconfigured down-converter for the given output rate.
func New(targetRate float64) *Downconverter {
	return &Downconverter{targetRate: targetRate}
}

// TargetRate returns the configured output sample rate.
func (dc *Downconverter) TargetRate() float64 {
	return dc.targetRate
}

// IntermediateRate returns the rate after integrate-and-dump decimation.
func (dc *Downconverter) IntermediateRate() float64 {
	return dc.intermediateRate
}

// Configure sets the input rate and channel offset, designs the channel
// filter for the derived intermediate rate and resets all DSP state.
func (dc *Downconverter) Configure(inputRate, freqOffsetHz float64) {
	dc.inputRate = inputRate
	dc.phase = 0
	dc.phaseIncr = -2 * math.Pi * freqOffsetHz / inputRate

	dc.decimation = int(inputRate / (4 * dc.targetRate))
	if dc.decimation < 1 {
		dc.decimation = 1
	}
	dc.boxcar = 0
	dc.boxcarN = 0

	dc.intermediateRate = inputRate / float64(dc.decimation)
	dc.taps = LowpassTaps(dc.intermediateRate, CutoffHz, TransitionHz)
	dc.delay = make([]complex128, len(dc.taps))
	dc.delayIdx = 0

	dc.step = dc.intermediateRate / dc.targetRate
	dc.pos = 0
	dc.last = 0
}

// Process consumes input samples and appends down-converted output to out,
// returning the number of output samples produced. When out fills up the
// remaining input is not processed in this call; the caller re-invokes with
// more capacity. This is a hard contract, not an error.
func (dc *Downconverter) Process(in []complex128, out []complex128) (n int) {
	for _, s := range in {
		// Mix to near-baseband.
		dc.phase += dc.phaseIncr
		if dc.phase > math.Pi {
			dc.phase -= 2 * math.Pi
		} else if dc.phase <= -math.Pi {
			dc.phase += 2 * math.Pi
		}
		dc.boxcar += s * cmplx.Rect(1, dc.phase)

		dc.boxcarN++
		if dc.boxcarN < dc.decimation {
			continue
		}

		dump := dc.boxcar / complex(float64(dc.decimation), 0)
		dc.boxcar = 0
		dc.boxcarN = 0

		cur := dc.filter(dump)

		// Emit interpolated output while the next output instant falls
		// before the current intermediate sample.
		for dc.pos < 1 {
			if n == len(out) {
				return n
			}
			out[n] = dc.last + complex(dc.pos, 0)*(cur-dc.last)
			n++
			dc.pos += dc.step
		}
		dc.pos--
		dc.last = cur
	}

	return n
}

// filter pushes one sample into the circular delay line and convolves
// against the taps in time-reversed order.
func (dc *Downconverter) filter(s complex128) complex128 {
	dc.delay[dc.delayIdx] = s

	var acc complex128
	idx := dc.delayIdx
	for _, tap := range dc.taps {
		acc += complex(tap, 0) * dc.delay[idx]
		if idx == 0 {
			idx = len(dc.delay) - 1
		} else {
			idx--
		}
	}

	dc.delayIdx++
	if dc.delayIdx == len(dc.delay) {
		dc.delayIdx = 0
	}

	return acc
}
