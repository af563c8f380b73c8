// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package stimulus_test

import (
	"strings"
	"testing"

	"github.com/OpenPSG/stimulus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := stimulus.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5000, cfg.Probe.Index)
	assert.Equal(t, 2999, cfg.Probe.FallbackIndex)
	assert.Equal(t, 1, cfg.MaxReferenceDepth)
	assert.Equal(t, -1.0, cfg.GainHeuristic.Threshold)
	assert.Equal(t, 1000.0, cfg.GainHeuristic.ScaledGain)
	assert.Equal(t, 1.0, cfg.GainHeuristic.UnitGain)
	assert.Equal(t, []stimulus.FallbackRule{
		{Experimenter: "Homeira", Action: stimulus.ActionSameRecording, Channel: 0},
		{Experimenter: "Lihua", Action: stimulus.ActionReference, ReferenceID: "14617300.abf"},
	}, cfg.FallbackRules)

	// Each call returns an independent copy.
	cfg.GainCandidates[0] = 42
	assert.Equal(t, 1.0, stimulus.DefaultConfig().GainCandidates[0])

	candidates := stimulus.DefaultGainCandidates()
	candidates[0] = 999
	assert.Equal(t, 1.0, stimulus.DefaultGainCandidates()[0])
	assert.Equal(t, 1.0, stimulus.DefaultConfig().GainCandidates[0])
}

func TestLoadConfig(t *testing.T) {
	doc := `
probe:
  index: 4000
gain_candidates: [1, 10, 100]
fallback_rules:
  - experimenter: Ana
    action: reference
    reference_id: ref.abf
`
	cfg, err := stimulus.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Probe.Index)
	assert.Equal(t, 2999, cfg.Probe.FallbackIndex)
	assert.Equal(t, []float64{1, 10, 100}, cfg.GainCandidates)
	assert.Equal(t, 1000.0, cfg.GainHeuristic.ScaledGain)
	require.Len(t, cfg.FallbackRules, 1)
	assert.Equal(t, "ref.abf", cfg.FallbackRules[0].ReferenceID)
}

func TestLoadConfigEmpty(t *testing.T) {
	cfg, err := stimulus.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, stimulus.DefaultConfig(), cfg)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "probe_idx: 3\n",
		"empty candidates":  "gain_candidates: []\n",
		"unknown action":    "fallback_rules:\n  - experimenter: A\n    action: retry\n",
		"missing reference": "fallback_rules:\n  - experimenter: A\n    action: reference\n",
		"duplicate rule":    "fallback_rules:\n  - {experimenter: A, action: same_recording}\n  - {experimenter: A, action: same_recording}\n",
		"negative depth":    "max_reference_depth: -1\n",
		"negative probe":    "probe: {index: -5, fallback_index: 2}\n",
		"not a mapping":     "- 1\n- 2\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := stimulus.LoadConfig(strings.NewReader(doc))
			require.ErrorIs(t, err, stimulus.ErrConfiguration)
		})
	}
}

func TestParseField(t *testing.T) {
	f, err := stimulus.ParseField("Secondary")
	require.NoError(t, err)
	assert.Equal(t, stimulus.Secondary, f)
	assert.Equal(t, "secondary", f.String())

	f, err = stimulus.ParseField("primary")
	require.NoError(t, err)
	assert.Equal(t, stimulus.Primary, f)

	_, err = stimulus.ParseField("sweepC")
	require.ErrorIs(t, err, stimulus.ErrConfiguration)
}
