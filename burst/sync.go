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

package burst

import (
	"math"
	"math/cmplx"

	"github.com/bemasher/rtltetra/ddc"
)

const (
	// Best normalized correlation error must beat this to classify.
	trainingThreshold = 1.0

	// Offset assumed when no training sequence matches. Carried over from
	// the original receiver; origin of the value is not documented there.
	defaultOffset = 6

	// Bursts to search with the narrowed window after a successful sync.
	trackingBursts = 25

	// Narrowed window width in units of the symbol overlap.
	trackingWindowOverlaps = 6

	// Internal rate is the input rate zero-stuffed up to at least this.
	nominalInternalRate = 144000
)

type template struct {
	kind   Kind
	phases []float64
	offset int
}

// Synchronizer demodulates differential phase from a narrowband stream and
// extracts classified bursts. All filter and history state is continuous
// across Process calls; Configure with a changed rate rebuilds everything.
type Synchronizer struct {
	inputRate    float64
	interp       int
	internalRate float64
	symbolLength float64
	overlap      int

	taps     []float64
	delay    []complex128
	delayIdx int

	// One symbol period of filtered samples, kept across calls so the
	// differential phase lag never breaks at block boundaries.
	ring    []complex128
	ringIdx int

	hist []float64
	fill int

	symbolAt     [BurstSymbols]int
	burstSamples int

	direct    bool
	templates []template
	track     int
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Configure rebuilds filters, offset tables and band-limited training
// templates for the given input rate. Rate changes of 1 Hz or less are
// ignored to keep state continuous across jittering sources.
func (s *Synchronizer) Configure(inputRate float64) {
	if s.inputRate != 0 && math.Abs(inputRate-s.inputRate) <= 1 {
		return
	}
	s.inputRate = inputRate

	s.interp = int(math.Round(nominalInternalRate / inputRate))
	if s.interp < 1 {
		s.interp = 1
	}
	s.internalRate = inputRate * float64(s.interp)
	s.symbolLength = s.internalRate / SymbolRate
	s.overlap = int(math.Round(s.symbolLength))

	s.taps = ddc.LowpassTaps(s.internalRate, ddc.CutoffHz, ddc.TransitionHz)
	s.delay = make([]complex128, len(s.taps))
	s.delayIdx = 0
	s.ring = make([]complex128, s.overlap)
	s.ringIdx = 0

	for idx := range s.symbolAt {
		s.symbolAt[idx] = int(math.Round(float64(idx) * s.symbolLength))
	}
	s.burstSamples = int(math.Round(BurstSymbols * s.symbolLength))

	s.hist = make([]float64, 4*s.burstSamples)
	s.fill = 0
	s.track = 0

	s.templates = []template{
		s.renderTemplate(NormalDecodeBlock1),
		s.renderTemplate(NormalDecodeBlock2),
		s.renderTemplate(Sync),
	}
}

// SetDirect switches the normal training sequence offsets between trunked
// and direct operation.
func (s *Synchronizer) SetDirect(direct bool) {
	if s.direct == direct {
		return
	}
	s.direct = direct
	for idx := range s.templates {
		kind := s.templates[idx].kind
		if kind == Sync {
			continue
		}
		s.templates[idx].offset = int(math.Round(float64(TrainingSymbol(kind, direct)) * s.symbolLength))
	}
}

// FilterDelay returns the matched filter's group delay in internal samples.
func (s *Synchronizer) FilterDelay() int {
	return len(s.taps) / 2
}

// SymbolLength returns samples per symbol at the internal rate.
func (s *Synchronizer) SymbolLength() float64 {
	return s.symbolLength
}

// Overlap returns the differential phase lag in internal samples.
func (s *Synchronizer) Overlap() int {
	return s.overlap
}

// Process consumes narrowband samples and returns any bursts completed by
// this call. If the phase history would overflow, the synchronizer resets
// itself and returns what it has; at most one burst is lost.
func (s *Synchronizer) Process(in []complex128) (bursts []Burst) {
	if s.interp == 0 {
		return nil
	}

	scale := complex(float64(s.interp), 0)
	for _, x := range in {
		for k := 0; k < s.interp; k++ {
			var v complex128
			if k == 0 {
				v = x * scale
			}
			f := s.filter(v)

			prev := s.ring[s.ringIdx]
			s.ring[s.ringIdx] = f
			s.ringIdx++
			if s.ringIdx == s.overlap {
				s.ringIdx = 0
			}

			if s.fill == len(s.hist) {
				s.reset()
				return bursts
			}
			s.hist[s.fill] = cmplx.Phase(f * cmplx.Conj(prev))
			s.fill++
		}

		for s.fill >= s.required() {
			bursts = append(bursts, s.synchronize())
		}
	}

	return bursts
}

func (s *Synchronizer) filter(x complex128) complex128 {
	s.delay[s.delayIdx] = x

	var acc complex128
	idx := s.delayIdx
	for _, tap := range s.taps {
		acc += complex(tap, 0) * s.delay[idx]
		if idx == 0 {
			idx = len(s.delay) - 1
		} else {
			idx--
		}
	}

	s.delayIdx++
	if s.delayIdx == len(s.delay) {
		s.delayIdx = 0
	}

	return acc
}

func (s *Synchronizer) searchWindow() int {
	if s.track > 0 {
		return trackingWindowOverlaps * s.overlap
	}
	return s.burstSamples
}

func (s *Synchronizer) required() int {
	return s.searchWindow() + s.burstSamples
}

// synchronize runs the sliding correlation over the current search window,
// classifies one burst, extracts its symbols and drops the consumed span
// from the history.
func (s *Synchronizer) synchronize() Burst {
	window := s.searchWindow()

	var b Burst
	bestErr := math.Inf(1)
	bestKind := None
	bestOffset := 0
	for _, t := range s.templates {
		err, off := s.correlate(t, window)
		if err < bestErr {
			bestErr, bestKind, bestOffset = err, t.kind, off
		}
	}

	b.Err = bestErr
	if bestErr < trainingThreshold {
		b.Kind = bestKind
		b.Offset = bestOffset
		s.track = trackingBursts
	} else {
		b.Kind = None
		b.Offset = defaultOffset
		if s.track > 0 {
			s.track--
		}
	}

	s.extract(&b)

	consumed := b.Offset + s.burstSamples
	if consumed > s.fill {
		consumed = s.fill
	}
	copy(s.hist, s.hist[consumed:s.fill])
	s.fill -= consumed

	return b
}

// correlate returns the minimum sum-of-squared wrapped phase difference
// between template and history over the window, normalized by template
// length, and the offset at which it occurs.
func (s *Synchronizer) correlate(t template, window int) (minErr float64, minOff int) {
	minErr = math.Inf(1)
	for w := 0; w < window; w++ {
		base := w + t.offset
		var sum float64
		for k, ph := range t.phases {
			d := wrapPhase(s.hist[base+k] - ph)
			sum += d * d
		}
		if sum < minErr {
			minErr, minOff = sum, w
		}
	}
	minErr /= float64(len(t.phases))
	return minErr, minOff
}

// extract samples the phase history at the per-symbol offset table and
// derives two bits per symbol by the differential quadrant rule. Positions
// past the history read as zero.
func (s *Synchronizer) extract(b *Burst) {
	for idx := 0; idx < BurstSymbols; idx++ {
		pos := b.Offset + s.symbolAt[idx]
		var ph float64
		if pos >= 0 && pos < s.fill {
			ph = s.hist[pos]
		}
		b.Phases[idx] = ph

		var sign, mag byte
		if ph < 0 {
			sign = 1
		}
		if math.Abs(ph) > math.Pi/2 {
			mag = 1
		}
		b.Bits[2*idx] = sign
		b.Bits[2*idx+1] = mag
	}
}

// renderTemplate modulates a training sequence at the internal rate and
// passes it through the synchronizer's own low-pass and differential stages
// so templates and signal share band-limiting and group delay.
func (s *Synchronizer) renderTemplate(kind Kind) template {
	dphis := TrainingPhases(kind)
	n := int(math.Round(float64(len(dphis)) * s.symbolLength))
	gd := len(s.taps) / 2
	lead := len(s.taps) + s.overlap

	wave := Modulate(dphis, s.symbolLength, lead, gd+1)

	delay := make([]complex128, len(s.taps))
	delayIdx := 0
	ring := make([]complex128, s.overlap)
	ringIdx := 0

	diffs := make([]float64, len(wave))
	for j, x := range wave {
		delay[delayIdx] = x
		var acc complex128
		idx := delayIdx
		for _, tap := range s.taps {
			acc += complex(tap, 0) * delay[idx]
			if idx == 0 {
				idx = len(delay) - 1
			} else {
				idx--
			}
		}
		delayIdx++
		if delayIdx == len(delay) {
			delayIdx = 0
		}

		prev := ring[ringIdx]
		ring[ringIdx] = acc
		ringIdx++
		if ringIdx == s.overlap {
			ringIdx = 0
		}
		diffs[j] = cmplx.Phase(acc * cmplx.Conj(prev))
	}

	phases := append([]float64(nil), diffs[lead+gd:lead+gd+n]...)
	offset := int(math.Round(float64(TrainingSymbol(kind, s.direct)) * s.symbolLength))

	return template{kind: kind, phases: phases, offset: offset}
}

func (s *Synchronizer) reset() {
	for idx := range s.delay {
		s.delay[idx] = 0
	}
	for idx := range s.ring {
		s.ring[idx] = 0
	}
	s.delayIdx = 0
	s.ringIdx = 0
	s.fill = 0
	s.track = 0
}
