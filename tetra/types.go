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

// Package tetra drives the per-channel protocol state machine: it
// classifies bursts, tracks network timing and routes extracted bits to
// signaling parsing or voice decoding through external PHY/MAC and vocoder
// capabilities.
package tetra

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bemasher/rtltetra/burst"
)

// Mode is the channel's operating mode, selected by the sync PDU's system
// code.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeTrunked
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeTrunked:
		return "trunked"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// SubChannel identifies a physical sub-channel extracted from a burst.
type SubChannel int

const (
	SubBSCH SubChannel = iota
	SubSCHS
	SubAACH
	SubSCHF
	SubSCHHD1
	SubSCHHD2
	SubTCH
)

func (s SubChannel) String() string {
	switch s {
	case SubBSCH:
		return "BSCH"
	case SubSCHS:
		return "SCH/S"
	case SubAACH:
		return "AACH"
	case SubSCHF:
		return "SCH/F"
	case SubSCHHD1:
		return "SCH/HD1"
	case SubSCHHD2:
		return "SCH/HD2"
	case SubTCH:
		return "TCH"
	default:
		return "?"
	}
}

// LogicChannel is a CRC-checked bit channel extracted from a burst's
// physical sub-channels, input to PDU parsing. Bits hold one bit per byte.
type LogicChannel struct {
	CRCValid bool
	Bits     []byte

	Timeslot, Frame int
}

// Field keys set by PDU parsing.
const (
	FieldSystemCode      = "SystemCode"
	FieldColourCode      = "ColourCode"
	FieldTimeslot        = "Timeslot"
	FieldFrame           = "Frame"
	FieldMultiframe      = "Multiframe"
	FieldSharingMode     = "SharingMode"
	FieldMCC             = "MCC"
	FieldMNC             = "MNC"
	FieldMasterSlave     = "MasterSlave"
	FieldSourceAddress   = "SourceAddress"
	FieldRepeaterAddress = "RepeaterAddress"
	FieldMainCarrier     = "MainCarrier"
	FieldFrequencyBand   = "FrequencyBand"
	FieldDownlinkUsage   = "DownlinkUsage"
	FieldPDUType         = "PDUType"
)

// ReceivedData is one decoded protocol element: a keyed field map stamped
// with its receiver channel and source logic channel.
type ReceivedData struct {
	Time    time.Time
	Channel string
	Source  string
	Fields  map[string]int64
}

func (rd ReceivedData) String() string {
	return fmt.Sprintf("{Time:%s Channel:%s %s:%v}",
		rd.Time.Format("2006-01-02T15:04:05.000"), rd.Channel, rd.Source, rd.Fields,
	)
}

// Record produces csv fields: timestamp, channel, source, then key=value
// pairs in key order.
func (rd ReceivedData) Record() (r []string) {
	r = append(r, rd.Time.Format(time.RFC3339Nano), rd.Channel, rd.Source)

	keys := make([]string, 0, len(rd.Fields))
	for key := range rd.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		r = append(r, key+"="+strconv.FormatInt(rd.Fields[key], 10))
	}
	return r
}

// PHY is the external PHY/MAC decode capability: sub-channel extraction,
// logic channel CRC validation and PDU parsing. Implementations carry the
// current scrambling code.
type PHY interface {
	SetScramblingCode(code uint32)
	ExtractSubChannels(bits []byte, kind burst.Kind, mode Mode, timeslot int) map[SubChannel][]byte
	ParseLogicChannel(sub SubChannel, bits []byte) LogicChannel
	ParsePDU(sub SubChannel, lc LogicChannel, mode Mode, nt NetworkTime) []ReceivedData
}

// Voice frame geometry: traffic bits in, PCM samples out.
const (
	VoiceBits         = 432
	VoiceFrameSamples = 480
)

// Voice is the external vocoder capability. The timeslot selects one of
// four independent codec contexts; first marks the first frame after
// (re)synchronization.
type Voice interface {
	Decode(bits []byte, timeslot int, first bool) []int16
}

// AudioHandler receives one fixed-size PCM frame per decoded voice burst.
type AudioHandler interface {
	Audio(timeslot int, pcm []int16)
}

// ScramblingCode packs network identity into the trunked-mode scrambling
// code: MCC (10 bits), MNC (14 bits), colour code (6 bits).
func ScramblingCode(mcc, mnc, colour int64) uint32 {
	return uint32(mcc&0x3FF)<<20 | uint32(mnc&0x3FFF)<<6 | uint32(colour&0x3F)
}

// DirectScramblingCode derives the direct-mode scrambling code from source
// and repeater identities.
func DirectScramblingCode(source, repeater int64) uint32 {
	return uint32(source&0xFFFFFF)<<6 | uint32(repeater&0x3F)
}

// CarrierFrequencyHz converts broadcast carrier fields to a frequency:
// 25 kHz carrier raster within a 100 MHz band.
func CarrierFrequencyHz(carrier, band int64) float64 {
	return float64(band)*100e6 + float64(carrier)*25e3
}
