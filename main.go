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
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/bemasher/rtltcp"

	"github.com/bemasher/rtltetra/burst"
	"github.com/bemasher/rtltetra/hub"
	"github.com/bemasher/rtltetra/phy"
	"github.com/bemasher/rtltetra/tetra"
)

const BlockSize = 1 << 14

var rcvr Receiver

type Receiver struct {
	rtltcp.SDR

	hub       *hub.Hub
	pipelines []*Pipeline

	centerFreq float64
	sampleRate int

	lut ByteToCmplxLUT

	stop chan struct{}
}

func (rcvr *Receiver) NewReceiver() {
	rcvr.stop = make(chan struct{}, 1)
	rcvr.lut = NewByteToCmplxLUT()
	rcvr.hub = hub.New(hub.MaxDepth)

	// Default to the mean of the enabled channel frequencies so a
	// single channel lands at the tuner center.
	var sum float64
	var enabled int
	for _, cfg := range channelCfgs {
		if cfg.Enabled {
			sum += cfg.FrequencyHz
			enabled++
		}
	}
	if enabled == 0 {
		log.Fatal("no enabled channels")
	}
	rcvr.centerFreq = sum / float64(enabled)
	rcvr.sampleRate = 2400000

	// Connect to rtl_tcp server.
	if err := rcvr.Connect(nil); err != nil {
		log.Fatal(err)
	}

	gainFlagSet := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "centerfreq":
			rcvr.centerFreq = float64(rcvr.Flags.CenterFreq)
		case "samplerate":
			rcvr.sampleRate = int(rcvr.Flags.SampleRate)
		case "gainbyindex", "tunergainmode", "tunergain", "agcmode":
			gainFlagSet = true
		}
	})

	rcvr.SetCenterFreq(uint32(rcvr.centerFreq))
	rcvr.SetSampleRate(uint32(rcvr.sampleRate))

	if !gainFlagSet {
		rcvr.SetGainMode(true)
	}

	var encMu sync.Mutex
	deliver := func(recs []tetra.ReceivedData) {
		encMu.Lock()
		defer encMu.Unlock()
		for _, rec := range recs {
			if err := encoder.Encode(rec); err != nil {
				log.Fatal("Error encoding message: ", err)
			}
		}
	}

	for _, cfg := range channelCfgs {
		if !cfg.Enabled {
			continue
		}

		synchronizer := burst.NewSynchronizer()

		ch := tetra.NewChannel(tetra.Config{
			ID:            cfg.ID,
			SignalingOnly: cfg.SignalingOnly,
			PHY:           phy.NewDecoder(),
			Voice:         nullVoice{},
			Audio:         &audioWriter{w: audioFile},
			Deliver:       deliver,
			OnMode: func(m tetra.Mode) {
				synchronizer.SetDirect(m == tetra.ModeDirect)
			},
		})

		p := NewPipeline(cfg, rcvr.centerFreq, ch, synchronizer)
		rcvr.pipelines = append(rcvr.pipelines, p)
		rcvr.hub.AddSink(p)

		log.Printf("channel %s: %.4f MHz (offset %+.0f Hz)\n",
			cfg.ID, cfg.FrequencyHz/1e6, cfg.FrequencyHz-rcvr.centerFreq,
		)
	}

	log.Println("CenterFreq:", uint32(rcvr.centerFreq))
	log.Println("SampleRate:", rcvr.sampleRate)
	log.Println("GainCount:", rcvr.SDR.Info.GainCount)

	return
}

func (rcvr *Receiver) Close() {
	rcvr.stop <- struct{}{}

	if err := rcvr.hub.Close(); err != nil {
		log.Println("hub close:", err)
	}
	for _, p := range rcvr.pipelines {
		p.Channel().Close()
	}

	rcvr.SDR.Close()
}

func (rcvr *Receiver) Run() {
	// Setup signal channel for interruption.
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Kill, os.Interrupt)

	// Setup time limit channel
	tLimit := make(<-chan time.Time, 1)
	if *timeLimit != 0 {
		tLimit = time.After(*timeLimit)
	}

	start := time.Now()

	blockCh := make(chan []complex128)

	// Read sample blocks and hand them to the hub.
	go func() {
		raw := make([]byte, BlockSize<<1)
		samplesA := make([]complex128, BlockSize)
		samplesB := make([]complex128, BlockSize)

		defer close(blockCh)

		for {
			select {
			// Exit if we've been told to stop.
			case <-rcvr.stop:
				return
			default:
				// Read new sample block.
				_, err := io.ReadFull(rcvr, raw)

				// If we get an EOF, exit.
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					log.Println("encountered eof:", err)
					return
				}

				// If we get a network operation error.
				if opErr, ok := err.(*net.OpError); ok {
					// If temporary, keep reading.
					if opErr.Temporary() {
						log.Printf("operr: temporary: %+v\n", opErr)
						continue
					}

					// If it's not temporary, exit.
					log.Printf("operr: %+v\n", opErr)
					return
				}

				rcvr.lut.Execute(raw, samplesA)
				blockCh <- samplesA

				// Exchange blocks for next read.
				samplesA, samplesB = samplesB, samplesA
			}
		}
	}()

	for {
		// Exit on interrupt or time limit, otherwise receive.
		select {
		case <-sigint:
			return
		case <-tLimit:
			log.Println("Time Limit Reached:", time.Since(start))
			return
		case samples, ok := <-blockCh:
			// If blockCh is closed, exit.
			if !ok {
				return
			}

			if err := rcvr.hub.Push(samples, rcvr.sampleRate); err != nil {
				log.Println("hub push:", err)
				return
			}
		}
	}
}

// audioWriter dumps decoded voice frames as little-endian PCM.
type audioWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (a *audioWriter) Audio(timeslot int, pcm []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf := make([]byte, len(pcm)<<1)
	for idx, s := range pcm {
		binary.LittleEndian.PutUint16(buf[idx<<1:], uint16(s))
	}
	a.w.Write(buf)
}

func init() {
	log.SetFlags(log.Lshortfile | log.Lmicroseconds)
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	rcvr.RegisterFlags()
	RegisterFlags()
	EnvOverride()
	flag.Parse()
	rcvr.HandleFlags()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	HandleFlags()

	rcvr.NewReceiver()

	defer audioFile.Close()
	defer rcvr.Close()

	rcvr.Run()
}
