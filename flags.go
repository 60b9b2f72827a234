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
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/bemasher/rtltetra/csv"
)

var channelFilename = flag.String("channels", "", "yaml file listing channels to receive")

var channelFreq = flag.Float64("frequency", 0, "single channel frequency in Hz, used when -channels is not given")

var signalingOnly = flag.Bool("signaling", false, "decode signaling only, skip traffic timeslots")

var audioFilename = flag.String("audiofile", os.DevNull, "raw signed 16-bit PCM dump file")
var audioFile *os.File

var timeLimit = flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")

var encoder Encoder
var format = flag.String("format", "plain", "decoded message output format: plain, csv, json, or xml")

var version = flag.Bool("version", false, "display build date and commit hash")

var channelCfgs []ChannelConfig

func RegisterFlags() {
	rtltetraFlags := map[string]bool{
		"channels":  true,
		"frequency": true,
		"signaling": true,
		"audiofile": true,
		"duration":  true,
		"format":    true,
		"version":   true,
	}

	printDefaults := func(validFlags map[string]bool, inclusion bool) {
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			if validFlags[f.Name] != inclusion {
				return
			}

			format := "  -%s=%s: %s\n"
			fmt.Fprintf(os.Stderr, format, f.Name, f.Value, f.Usage)
		})
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		printDefaults(rtltetraFlags, true)

		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "rtltcp specific:")
		printDefaults(rtltetraFlags, false)
	}
}

func EnvOverride() {
	flag.VisitAll(func(f *flag.Flag) {
		envName := "RTLTETRA_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue != "" {
			if err := flag.Set(f.Name, flagValue); err != nil {
				log.Printf(
					"Environment variable %q failed to override flag %q with value %q: %q\n",
					envName, f.Name, flagValue, err,
				)
			} else {
				log.Printf("Environment variable %q overrides flag %q with %q\n", envName, f.Name, flagValue)
			}
		}
	})
}

func HandleFlags() {
	var err error

	audioFile, err = os.Create(*audioFilename)
	if err != nil {
		log.Fatal("Error creating audio file:", err)
	}

	encoder, err = NewEncoder(strings.ToLower(*format), os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	if *channelFilename != "" {
		channelCfgs, err = LoadChannels(*channelFilename)
		if err != nil {
			log.Fatal("Error loading channel list:", err)
		}
	} else if *channelFreq != 0 {
		channelCfgs = []ChannelConfig{{
			ID:          "ch0",
			FrequencyHz: *channelFreq,
			Enabled:     true,
		}}
	} else {
		log.Fatal("One of -channels or -frequency is required")
	}

	if *signalingOnly {
		for idx := range channelCfgs {
			channelCfgs[idx].SignalingOnly = true
		}
	}
}

// JSON, XML and GOB all implement this interface so we can simplify log
// output formatting.
type Encoder interface {
	Encode(interface{}) error
}

// NewEncoder maps a -format value to its encoder writing to w.
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	switch format {
	case "plain":
		return PlainEncoder{}, nil
	case "csv":
		return csv.NewEncoder(w), nil
	case "json":
		return json.NewEncoder(w), nil
	case "xml":
		return xml.NewEncoder(w), nil
	}
	return nil, fmt.Errorf("invalid format: %q", format)
}

type PlainEncoder struct{}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Println(msg)
	return
}
