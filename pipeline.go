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

package main

import (
	"github.com/bemasher/rtltetra/burst"
	"github.com/bemasher/rtltetra/ddc"
	"github.com/bemasher/rtltetra/tetra"
)

// ChannelRate is the narrowband rate every channel pipeline runs at:
// four samples per symbol.
const ChannelRate = 4 * burst.SymbolRate

// ByteToCmplxLUT converts unsigned 8-bit IQ pairs to unit-range complex
// samples, removing the tuner's DC offset.
type ByteToCmplxLUT [256]float64

func NewByteToCmplxLUT() (lut ByteToCmplxLUT) {
	for idx := range lut {
		lut[idx] = (float64(idx) - 127.4) / 127.6
	}
	return lut
}

func (l *ByteToCmplxLUT) Execute(in []byte, out []complex128) {
	for idx := range out {
		inIdx := idx << 1
		out[idx] = complex(l[in[inIdx]], l[in[inIdx+1]])
	}
}

// Pipeline chains one channel's downconvert, synchronize and decode stages
// behind a hub sink. It runs entirely on the hub's dispatch worker.
type Pipeline struct {
	cfg        ChannelConfig
	centerFreq float64

	dc   *ddc.Downconverter
	agc  ddc.AGC
	sync *burst.Synchronizer
	ch   *tetra.Channel

	inRate int
	narrow []complex128
}

func NewPipeline(cfg ChannelConfig, centerFreq float64, ch *tetra.Channel, sync *burst.Synchronizer) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		centerFreq: centerFreq,
		dc:         ddc.New(ChannelRate),
		agc:        ddc.AGC{Gain: cfg.AGCGain, Decay: cfg.AGCDecay},
		sync:       sync,
		ch:         ch,
	}
}

// Channel returns the pipeline's protocol state machine.
func (p *Pipeline) Channel() *tetra.Channel {
	return p.ch
}

// Intake implements hub.Sink. A rate change reconfigures the
// down-converter and synchronizer before processing.
func (p *Pipeline) Intake(samples []complex128, rate int) error {
	if rate != p.inRate {
		p.inRate = rate
		p.dc.Configure(float64(rate), p.cfg.FrequencyHz-p.centerFreq)
		p.sync.Configure(p.dc.TargetRate())
		p.agc.Reset()
	}

	if need := 2*len(samples) + 16; cap(p.narrow) < need {
		p.narrow = make([]complex128, need)
	}
	p.narrow = p.narrow[:cap(p.narrow)]

	n := p.dc.Process(samples, p.narrow)
	p.agc.Process(p.narrow[:n])

	for _, b := range p.sync.Process(p.narrow[:n]) {
		b := b
		p.ch.HandleBurst(&b)
	}

	return nil
}

// nullVoice stands in for the external vocoder: it reports voice activity
// with silent frames.
type nullVoice struct{}

func (nullVoice) Decode(bits []byte, timeslot int, first bool) []int16 {
	return make([]int16, tetra.VoiceFrameSamples)
}
