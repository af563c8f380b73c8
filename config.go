// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package stimulus

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Action is what a fallback rule does when a stimulus is degenerate.
type Action string

const (
	// ActionSameRecording retries on another channel of the same recording.
	ActionSameRecording Action = "same_recording"
	// ActionReference substitutes the stimulus of a catalogued reference recording.
	ActionReference Action = "reference"
)

// FallbackRule is an experimenter specific recovery for a degenerate stimulus.
type FallbackRule struct {
	Experimenter string `yaml:"experimenter"`
	Action       Action `yaml:"action"`
	Channel      int    `yaml:"channel,omitempty"`      // ActionSameRecording
	ReferenceID  string `yaml:"reference_id,omitempty"` // ActionReference
}

// Probe holds the sample indices at which a sweep's amplitude is read.
type Probe struct {
	Index         int `yaml:"index"`
	FallbackIndex int `yaml:"fallback_index"` // Used when the waveform is shorter than Index
}

// GainHeuristic decides the stimulus channel gain from the waveform minimum.
type GainHeuristic struct {
	Threshold  float64 `yaml:"threshold"`   // Minimum above which the waveform is ampere scaled
	ScaledGain float64 `yaml:"scaled_gain"` // Gain for ampere scaled waveforms
	UnitGain   float64 `yaml:"unit_gain"`
}

// Config holds the constants used during stimulus resolution.
type Config struct {
	Probe             Probe          `yaml:"probe"`
	GainCandidates    []float64      `yaml:"gain_candidates"`
	GainHeuristic     GainHeuristic  `yaml:"gain_heuristic"`
	FallbackRules     []FallbackRule `yaml:"fallback_rules"`
	MaxReferenceDepth int            `yaml:"max_reference_depth"`
}

const (
	DefaultProbeIndex         = 5000
	DefaultFallbackProbeIndex = 2999

	// ReferenceRecordingID is the catalogued recording whose stimulus replaces
	// degenerate recordings from the Lihua rig.
	ReferenceRecordingID = "14617300.abf"
)

// defaultGainCandidates are the amplifier gains seen across recording rigs.
var defaultGainCandidates = [...]float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000}

// DefaultGainCandidates returns a copy of the default amplifier gains.
func DefaultGainCandidates() []float64 {
	return append([]float64(nil), defaultGainCandidates[:]...)
}

// DefaultConfig returns the configuration used by the legacy pipeline.
func DefaultConfig() Config {
	return Config{
		Probe: Probe{
			Index:         DefaultProbeIndex,
			FallbackIndex: DefaultFallbackProbeIndex,
		},
		GainCandidates: DefaultGainCandidates(),
		GainHeuristic: GainHeuristic{
			Threshold:  -1,
			ScaledGain: 1000,
			UnitGain:   1,
		},
		FallbackRules: []FallbackRule{
			{Experimenter: "Homeira", Action: ActionSameRecording, Channel: 0},
			{Experimenter: "Lihua", Action: ActionReference, ReferenceID: ReferenceRecordingID},
		},
		MaxReferenceDepth: 1,
	}
}

// LoadConfig reads a YAML configuration. Keys missing from the document keep
// their default values.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: error decoding config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if len(c.GainCandidates) == 0 {
		return fmt.Errorf("%w: empty gain candidate set", ErrConfiguration)
	}
	if c.Probe.Index < 0 || c.Probe.FallbackIndex < 0 {
		return fmt.Errorf("%w: negative probe index", ErrConfiguration)
	}
	if c.MaxReferenceDepth < 0 {
		return fmt.Errorf("%w: negative reference depth", ErrConfiguration)
	}

	seen := make(map[string]bool, len(c.FallbackRules))
	for _, rule := range c.FallbackRules {
		if seen[rule.Experimenter] {
			return fmt.Errorf("%w: duplicate fallback rule for %q", ErrConfiguration, rule.Experimenter)
		}
		seen[rule.Experimenter] = true

		switch rule.Action {
		case ActionSameRecording:
			if rule.Channel < 0 {
				return fmt.Errorf("%w: negative fallback channel for %q", ErrConfiguration, rule.Experimenter)
			}
		case ActionReference:
			if rule.ReferenceID == "" {
				return fmt.Errorf("%w: missing reference id for %q", ErrConfiguration, rule.Experimenter)
			}
		default:
			return fmt.Errorf("%w: unknown fallback action %q", ErrConfiguration, rule.Action)
		}
	}

	return nil
}

func (c Config) rule(experimenter string) (FallbackRule, bool) {
	for _, rule := range c.FallbackRules {
		if rule.Experimenter == experimenter {
			return rule, true
		}
	}
	return FallbackRule{}, false
}
