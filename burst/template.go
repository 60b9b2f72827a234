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
)

// Training sequence symbol positions within a burst.
const (
	normalTrainingSymbolTrunked = 110
	normalTrainingSymbolDirect  = 120
	syncTrainingSymbol          = 107
)

// Training sequences as transmitted bit pairs, one differential symbol per
// pair.
var (
	normalTraining1 = []byte{
		1, 1, 0, 1, 0, 0, 0, 1, 1, 1, 0, 1, 0, 0, 0, 1, 1, 1, 0, 1, 0, 0,
	}
	normalTraining2 = []byte{
		0, 1, 1, 1, 1, 0, 1, 0, 0, 1, 0, 0, 0, 0, 1, 1, 0, 1, 1, 1, 1, 0,
	}
	syncTraining = []byte{
		1, 1, 0, 0, 0, 1, 1, 0, 0, 1, 1, 1, 0, 0, 1, 1, 1, 0, 1, 1,
		0, 1, 1, 0, 0, 0, 0, 1, 1, 0, 1, 1, 0, 0, 0, 1, 1, 1,
	}
)

// symbolPhase maps one bit pair to its differential phase. The first bit
// selects the sign, the second the magnitude.
func symbolPhase(sign, magnitude byte) float64 {
	ph := math.Pi / 4
	if magnitude == 1 {
		ph = 3 * math.Pi / 4
	}
	if sign == 1 {
		ph = -ph
	}
	return ph
}

// TrainingPhases returns the differential phase sequence of a burst kind's
// training pattern, one value per symbol.
func TrainingPhases(kind Kind) []float64 {
	var bits []byte
	switch kind {
	case NormalDecodeBlock1:
		bits = normalTraining1
	case NormalDecodeBlock2:
		bits = normalTraining2
	case Sync:
		bits = syncTraining
	default:
		return nil
	}

	phases := make([]float64, len(bits)/2)
	for idx := range phases {
		phases[idx] = symbolPhase(bits[2*idx], bits[2*idx+1])
	}
	return phases
}

// TrainingSymbol returns the symbol offset of a kind's training sequence
// within a burst.
func TrainingSymbol(kind Kind, direct bool) int {
	if kind == Sync {
		return syncTrainingSymbol
	}
	if direct {
		return normalTrainingSymbolDirect
	}
	return normalTrainingSymbolTrunked
}

// BurstPhases assembles a full burst's differential phase sequence: payload
// symbols with the kind's training sequence overlaid at its fixed position.
// Payload bits beyond the burst are ignored; missing bits read as zero.
func BurstPhases(kind Kind, payload []byte, direct bool) []float64 {
	phases := make([]float64, BurstSymbols)
	for idx := range phases {
		var b0, b1 byte
		if 2*idx < len(payload) {
			b0 = payload[2*idx]
		}
		if 2*idx+1 < len(payload) {
			b1 = payload[2*idx+1]
		}
		phases[idx] = symbolPhase(b0, b1)
	}

	training := TrainingPhases(kind)
	at := TrainingSymbol(kind, direct)
	for idx, ph := range training {
		if at+idx < len(phases) {
			phases[at+idx] = ph
		}
	}

	return phases
}

// Modulate renders a unit-amplitude waveform from a differential phase
// sequence at the given samples per symbol. The carrier phase accumulates
// one differential step per symbol and holds between transitions. lead and
// tail samples of constant initial/final phase pad the sequence.
func Modulate(dphis []float64, symbolLength float64, lead, tail int) []complex128 {
	n := int(math.Round(float64(len(dphis)) * symbolLength))
	wave := make([]complex128, lead+n+tail)

	phase := 0.0
	symIdx := -1
	for j := range wave {
		if j >= lead {
			k := int(float64(j-lead) / symbolLength)
			if k >= len(dphis) {
				k = len(dphis) - 1
			}
			for symIdx < k {
				symIdx++
				phase += dphis[symIdx]
			}
		}
		wave[j] = cmplx.Rect(1, phase)
	}

	return wave
}

func wrapPhase(p float64) float64 {
	for p > math.Pi {
		p -= 2 * math.Pi
	}
	for p <= -math.Pi {
		p += 2 * math.Pi
	}
	return p
}
