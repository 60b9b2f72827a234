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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ChannelConfig is one logical channel's immutable configuration snapshot.
// Updates replace the whole snapshot; nothing mutates one in place.
type ChannelConfig struct {
	ID            string  `yaml:"id"`
	FrequencyHz   float64 `yaml:"frequency"`
	Enabled       bool    `yaml:"enabled"`
	AGCGain       float64 `yaml:"agc_gain"`
	AGCDecay      float64 `yaml:"agc_decay"`
	SignalingOnly bool    `yaml:"signaling_only"`
}

type channelList struct {
	Channels []ChannelConfig `yaml:"channels"`
}

// LoadChannels reads the channel list from a YAML file and validates it.
func LoadChannels(path string) ([]ChannelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read channel list")
	}

	var list channelList
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, errors.Wrap(err, "parse channel list")
	}
	if len(list.Channels) == 0 {
		return nil, errors.New("channel list is empty")
	}

	seen := make(map[string]bool)
	for idx, cfg := range list.Channels {
		if cfg.ID == "" {
			return nil, errors.Errorf("channel %d: missing id", idx)
		}
		if seen[cfg.ID] {
			return nil, errors.Errorf("channel %q: duplicate id", cfg.ID)
		}
		seen[cfg.ID] = true
		if cfg.Enabled && cfg.FrequencyHz <= 0 {
			return nil, errors.Errorf("channel %q: invalid frequency %f", cfg.ID, cfg.FrequencyHz)
		}
	}

	return list.Channels, nil
}
