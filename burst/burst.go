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

// Package burst locates and classifies fixed-duration π/4-DQPSK bursts in a
// narrowband complex stream by sliding correlation of differential phase
// against known training sequences.
package burst

// Fixed air-interface timing.
const (
	SymbolRate   = 18000
	BurstSymbols = 255
	BurstBits    = 2 * BurstSymbols
)

// Kind classifies a synchronized burst by its winning training sequence.
type Kind int

const (
	None Kind = iota
	Sync
	NormalDecodeBlock1
	NormalDecodeBlock2
)

func (k Kind) String() string {
	switch k {
	case Sync:
		return "SB"
	case NormalDecodeBlock1:
		return "NDB1"
	case NormalDecodeBlock2:
		return "NDB2"
	default:
		return "None"
	}
}

// Burst is one synchronization cycle's result: the classification, the
// winning history offset, the normalized correlation error of the winning
// template and the extracted symbol phases and bits.
type Burst struct {
	Kind   Kind
	Offset int
	Err    float64

	Phases [BurstSymbols]float64
	Bits   [BurstBits]byte
}
