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

// Package phy is a reference PHY/MAC decode capability: positional
// sub-channel extraction, descrambling and CRC-validated field parsing. It
// implements the contract the state machine consumes; a full
// error-correcting PHY library is an external collaborator and can replace
// it wholesale.
package phy

import (
	"github.com/bemasher/rtltetra/burst"
	"github.com/bemasher/rtltetra/crc"
	"github.com/bemasher/rtltetra/tetra"
)

// Bit positions of the physical sub-channels within a 510-bit burst.
const (
	bschStart, bschLen  = 94, 120
	blk2Start, blk2Len  = 252, 216
	aachStart, aachLen  = 230, 30
	blk1Start, blk1Len  = 14, 216
	ndbB2Start, ndbB2Ln = 260, 216
)

// Decoder holds the current scrambling code and checksum tables.
type Decoder struct {
	crc      crc.CRC
	scramble uint32
}

func NewDecoder() *Decoder {
	return &Decoder{crc: crc.NewCCITT()}
}

// SetScramblingCode installs the code applied to every sub-channel except
// the broadcast sync channel it is learned from.
func (d *Decoder) SetScramblingCode(code uint32) {
	d.scramble = code
}

// ExtractSubChannels slices a burst's raw bits into its physical
// sub-channels for the given kind and mode.
func (d *Decoder) ExtractSubChannels(bits []byte, kind burst.Kind, mode tetra.Mode, timeslot int) map[tetra.SubChannel][]byte {
	subs := make(map[tetra.SubChannel][]byte)
	if len(bits) < burst.BurstBits {
		return subs
	}

	switch kind {
	case burst.Sync:
		subs[tetra.SubBSCH] = append([]byte(nil), bits[bschStart:bschStart+bschLen]...)
		blk2 := d.descramble(bits[blk2Start : blk2Start+blk2Len])
		if mode == tetra.ModeDirect {
			subs[tetra.SubSCHS] = blk2
		} else {
			subs[tetra.SubSCHHD2] = blk2
		}

	case burst.NormalDecodeBlock1:
		subs[tetra.SubAACH] = d.descramble(bits[aachStart : aachStart+aachLen])
		full := make([]byte, 0, blk1Len+ndbB2Ln)
		full = append(full, bits[blk1Start:blk1Start+blk1Len]...)
		full = append(full, bits[ndbB2Start:ndbB2Start+ndbB2Ln]...)
		subs[tetra.SubSCHF] = d.descramble(full)
		subs[tetra.SubTCH] = d.descramble(full)

	case burst.NormalDecodeBlock2:
		subs[tetra.SubAACH] = d.descramble(bits[aachStart : aachStart+aachLen])
		subs[tetra.SubSCHHD1] = d.descramble(bits[blk1Start : blk1Start+blk1Len])
		subs[tetra.SubSCHHD2] = d.descramble(bits[ndbB2Start : ndbB2Start+ndbB2Ln])
		full := make([]byte, 0, blk1Len+ndbB2Ln)
		full = append(full, bits[blk1Start:blk1Start+blk1Len]...)
		full = append(full, bits[ndbB2Start:ndbB2Start+ndbB2Ln]...)
		subs[tetra.SubTCH] = d.descramble(full)
	}

	return subs
}

// ParseLogicChannel validates the trailing 16-bit checksum and strips it.
func (d *Decoder) ParseLogicChannel(sub tetra.SubChannel, bits []byte) tetra.LogicChannel {
	if len(bits) <= 16 {
		return tetra.LogicChannel{}
	}
	return tetra.LogicChannel{
		CRCValid: d.crc.CheckBits(bits),
		Bits:     append([]byte(nil), bits[:len(bits)-16]...),
	}
}

// ParsePDU interprets a validated logic channel's payload into keyed
// fields.
func (d *Decoder) ParsePDU(sub tetra.SubChannel, lc tetra.LogicChannel, mode tetra.Mode, nt tetra.NetworkTime) []tetra.ReceivedData {
	if !lc.CRCValid {
		return nil
	}

	rd := tetra.ReceivedData{
		Source: sub.String(),
		Fields: make(map[string]int64),
	}
	bits := lc.Bits

	switch sub {
	case tetra.SubBSCH, tetra.SubSCHS:
		rd.Fields[tetra.FieldSystemCode] = bitsUint(bits, 0, 4)
		rd.Fields[tetra.FieldColourCode] = bitsUint(bits, 4, 6)
		rd.Fields[tetra.FieldTimeslot] = bitsUint(bits, 10, 2) + 1
		rd.Fields[tetra.FieldFrame] = bitsUint(bits, 12, 5)
		rd.Fields[tetra.FieldMultiframe] = bitsUint(bits, 17, 6)
		rd.Fields[tetra.FieldSharingMode] = bitsUint(bits, 23, 2)
		rd.Fields[tetra.FieldMCC] = bitsUint(bits, 31, 10)
		rd.Fields[tetra.FieldMNC] = bitsUint(bits, 41, 14)
		rd.Fields[tetra.FieldMainCarrier] = bitsUint(bits, 55, 12)
		rd.Fields[tetra.FieldFrequencyBand] = bitsUint(bits, 67, 4)
		rd.Fields[tetra.FieldMasterSlave] = bitsUint(bits, 71, 1)
		rd.Fields[tetra.FieldSourceAddress] = bitsUint(bits, 72, 24)
		rd.Fields[tetra.FieldRepeaterAddress] = bitsUint(bits, 96, 8)

	case tetra.SubAACH:
		rd.Fields["Header"] = bitsUint(bits, 0, 2)
		rd.Fields[tetra.FieldDownlinkUsage] = bitsUint(bits, 2, 3)
		rd.Fields["UplinkUsage"] = bitsUint(bits, 5, 3)

	default:
		rd.Fields[tetra.FieldPDUType] = bitsUint(bits, 0, 2)
		rd.Fields[tetra.FieldSourceAddress] = bitsUint(bits, 3, 24)
		rd.Fields["Length"] = bitsUint(bits, 27, 6)
	}

	return []tetra.ReceivedData{rd}
}

// descramble applies the LFSR keystream keyed by the current scrambling
// code; a zero code passes bits through untouched.
func (d *Decoder) descramble(bits []byte) []byte {
	out := append([]byte(nil), bits...)
	if d.scramble == 0 {
		return out
	}

	state := d.scramble | 3
	for idx := range out {
		tap := state>>31 ^ state>>29 ^ state>>23 ^ state>>13 ^ state>>5 ^ state
		state = state<<1 | tap&1
		out[idx] ^= byte(state & 1)
	}
	return out
}

// bitsUint reads an n-bit big-endian field from a 1-bit-per-byte buffer.
// Out-of-range reads return 0.
func bitsUint(bits []byte, at, n int) (v int64) {
	if at < 0 || at+n > len(bits) {
		return 0
	}
	for _, b := range bits[at : at+n] {
		v = v<<1 | int64(b&1)
	}
	return v
}
