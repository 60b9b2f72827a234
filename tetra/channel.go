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

package tetra

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtltetra/burst"
)

// System codes at or above this value select direct mode.
const directSystemCode = 12

// AACH downlink usage marking the slot as assigned traffic.
const UsageTraffic = 3

// Master link flag value in the direct sync PDU.
const masterLink = 1

// Smoothing factor of the rolling error estimate.
const errorAlpha = 0.05

// Config assembles a channel state machine's collaborators.
type Config struct {
	ID            string
	SignalingOnly bool
	FlushInterval time.Duration

	PHY   PHY
	Voice Voice
	Audio AudioHandler

	Deliver func([]ReceivedData)
	OnSync  func()
	OnMode  func(Mode)
}

// Channel is one logical channel's protocol state machine. It is owned by
// the hub's dispatch worker and is not safe for concurrent use.
type Channel struct {
	id      string
	mode    Mode
	time    NetworkTime
	errRate float64
	sigOnly bool

	scramble      uint32
	mainCarrierHz float64

	phy   PHY
	voice Voice
	audio AudioHandler

	batch  *Batcher
	onSync func()
	onMode func(Mode)

	firstVoice [TimeslotMax + 1]bool

	log *logrus.Entry
}

// NewChannel builds a channel state machine from its collaborators.
func NewChannel(cfg Config) *Channel {
	c := &Channel{
		id:      cfg.ID,
		time:    NewNetworkTime(),
		sigOnly: cfg.SignalingOnly,
		phy:     cfg.PHY,
		voice:   cfg.Voice,
		audio:   cfg.Audio,
		batch:   NewBatcher(cfg.FlushInterval, cfg.Deliver),
		onSync:  cfg.OnSync,
		onMode:  cfg.OnMode,
		log:     logrus.WithField("channel", cfg.ID),
	}
	c.resetVoice()
	return c
}

// Mode returns the current operating mode.
func (c *Channel) Mode() Mode { return c.mode }

// Time returns a snapshot of network time.
func (c *Channel) Time() NetworkTime { return c.time }

// ErrorRate returns the rolling decode error estimate in [0,1].
func (c *Channel) ErrorRate() float64 { return c.errRate }

// HasMainCarrier reports whether broadcast sync has delivered main-carrier
// information yet.
func (c *Channel) HasMainCarrier() bool { return c.mainCarrierHz > 0 }

// MainCarrierHz returns the derived main carrier frequency, 0 if unknown.
func (c *Channel) MainCarrierHz() float64 { return c.mainCarrierHz }

// ScramblingCode returns the code currently pushed into the PHY.
func (c *Channel) ScramblingCode() uint32 { return c.scramble }

// Close flushes pending decoded records.
func (c *Channel) Close() { c.batch.Close() }

// HandleBurst dispatches one synchronized burst through the state machine.
// Network time advances by one timeslot per burst regardless of outcome.
func (c *Channel) HandleBurst(b *burst.Burst) {
	defer c.time.Advance()

	switch b.Kind {
	case burst.None:
		c.observe(false)
	case burst.Sync:
		c.handleSync(b)
	case burst.NormalDecodeBlock1, burst.NormalDecodeBlock2:
		c.handleNormal(b)
	}
}

func (c *Channel) handleSync(b *burst.Burst) {
	subs := c.phy.ExtractSubChannels(b.Bits[:], b.Kind, c.mode, c.time.Timeslot)

	lc := c.phy.ParseLogicChannel(SubBSCH, subs[SubBSCH])
	c.observe(lc.CRCValid)
	if !lc.CRCValid {
		return
	}
	lc.Timeslot, lc.Frame = c.time.Timeslot, c.time.Frame

	recs := c.phy.ParsePDU(SubBSCH, lc, c.mode, c.time)
	if len(recs) == 0 {
		return
	}
	f := recs[0].Fields

	if f[FieldSystemCode] >= directSystemCode {
		c.setMode(ModeDirect)
	} else {
		c.setMode(ModeTrunked)
	}

	switch c.mode {
	case ModeTrunked:
		c.setScramble(ScramblingCode(f[FieldMCC], f[FieldMNC], f[FieldColourCode]))
		c.time.Sync(int(f[FieldTimeslot]), int(f[FieldFrame]), int(f[FieldMultiframe]))
	case ModeDirect:
		c.setScramble(DirectScramblingCode(f[FieldSourceAddress], f[FieldRepeaterAddress]))
		c.time.SyncDirect(int(f[FieldFrame]), int(f[FieldMultiframe]), f[FieldMasterSlave] == masterLink)
	}

	if carrier, ok := f[FieldMainCarrier]; ok {
		c.mainCarrierHz = CarrierFrequencyHz(carrier, f[FieldFrequencyBand])
	}

	c.resetVoice()
	if c.onSync != nil {
		c.onSync()
	}
	c.batch.Append(c.stamp(recs))

	// The burst's second half is mode dependent: a MAC PDU under a trunked
	// network, a secondary sync PDU carrying its own scrambling identity in
	// direct mode. Its keying and descrambling follow the mode and scrambler
	// the sync PDU just selected, so the burst is sliced again.
	subs = c.phy.ExtractSubChannels(b.Bits[:], b.Kind, c.mode, c.time.Timeslot)
	switch c.mode {
	case ModeTrunked:
		c.parseSignaling(SubSCHHD2, subs[SubSCHHD2])
	case ModeDirect:
		c.parseDirectSync(subs[SubSCHS])
	}
}

func (c *Channel) handleNormal(b *burst.Burst) {
	subs := c.phy.ExtractSubChannels(b.Bits[:], b.Kind, c.mode, c.time.Timeslot)

	// Trunked slots start with the access-assign broadcast.
	usage := int64(-1)
	if c.mode == ModeTrunked {
		if bits := subs[SubAACH]; len(bits) > 0 {
			lc := c.phy.ParseLogicChannel(SubAACH, bits)
			c.observe(lc.CRCValid)
			if lc.CRCValid {
				lc.Timeslot, lc.Frame = c.time.Timeslot, c.time.Frame
				if recs := c.phy.ParsePDU(SubAACH, lc, c.mode, c.time); len(recs) > 0 {
					usage = recs[0].Fields[FieldDownlinkUsage]
					c.batch.Append(c.stamp(recs))
				}
			}
		}
	}

	if c.trafficSlot(usage) && !c.sigOnly {
		c.decodeVoice(subs[SubTCH])
		return
	}

	switch b.Kind {
	case burst.NormalDecodeBlock1:
		c.parseSignaling(SubSCHF, subs[SubSCHF])
	case burst.NormalDecodeBlock2:
		c.parseSignaling(SubSCHHD1, subs[SubSCHHD1])
		c.parseSignaling(SubSCHHD2, subs[SubSCHHD2])
	}
}

// trafficSlot decides whether the current slot position carries voice.
// Frame 18 is always control. Trunked slots follow the access-assign
// downlink usage; direct mode carries traffic on timeslot 1.
func (c *Channel) trafficSlot(usage int64) bool {
	if c.time.Frame == ControlFrame {
		return false
	}
	switch c.mode {
	case ModeTrunked:
		return usage == UsageTraffic
	case ModeDirect:
		return c.time.Timeslot == 1
	}
	return false
}

func (c *Channel) parseSignaling(sub SubChannel, bits []byte) {
	if len(bits) == 0 {
		return
	}
	lc := c.phy.ParseLogicChannel(sub, bits)
	c.observe(lc.CRCValid)
	if !lc.CRCValid {
		return
	}
	lc.Timeslot, lc.Frame = c.time.Timeslot, c.time.Frame
	c.batch.Append(c.stamp(c.phy.ParsePDU(sub, lc, c.mode, c.time)))
}

func (c *Channel) parseDirectSync(bits []byte) {
	if len(bits) == 0 {
		return
	}
	lc := c.phy.ParseLogicChannel(SubSCHS, bits)
	c.observe(lc.CRCValid)
	if !lc.CRCValid {
		return
	}
	lc.Timeslot, lc.Frame = c.time.Timeslot, c.time.Frame

	recs := c.phy.ParsePDU(SubSCHS, lc, c.mode, c.time)
	if len(recs) == 0 {
		return
	}
	f := recs[0].Fields
	if src, ok := f[FieldSourceAddress]; ok {
		c.setScramble(DirectScramblingCode(src, f[FieldRepeaterAddress]))
	}
	c.batch.Append(c.stamp(recs))
}

func (c *Channel) decodeVoice(bits []byte) {
	if c.voice == nil || len(bits) == 0 {
		return
	}

	slot := c.time.Timeslot
	pcm := c.voice.Decode(bits, slot, c.firstVoice[slot])
	c.firstVoice[slot] = false
	if c.audio != nil {
		c.audio.Audio(slot, pcm)
	}

	c.batch.Append([]ReceivedData{{
		Time:    time.Now(),
		Channel: c.id,
		Source:  SubTCH.String(),
		Fields: map[string]int64{
			FieldTimeslot: int64(slot),
			"Samples":     int64(len(pcm)),
		},
	}})
}

func (c *Channel) setMode(m Mode) {
	if c.mode == m {
		return
	}
	c.log.WithField("mode", m.String()).Info("operating mode changed")
	c.mode = m
	c.resetVoice()
	if c.onMode != nil {
		c.onMode(m)
	}
}

func (c *Channel) setScramble(code uint32) {
	if c.scramble == code {
		return
	}
	c.scramble = code
	c.phy.SetScramblingCode(code)
}

// observe folds one decode outcome into the rolling error estimate.
func (c *Channel) observe(ok bool) {
	fail := 0.0
	if !ok {
		fail = 1.0
	}
	c.errRate += errorAlpha * (fail - c.errRate)
}

func (c *Channel) resetVoice() {
	for idx := range c.firstVoice {
		c.firstVoice[idx] = true
	}
}

func (c *Channel) stamp(recs []ReceivedData) []ReceivedData {
	now := time.Now()
	for idx := range recs {
		if recs[idx].Time.IsZero() {
			recs[idx].Time = now
		}
		if recs[idx].Channel == "" {
			recs[idx].Channel = c.id
		}
	}
	return recs
}
