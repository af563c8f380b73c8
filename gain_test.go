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
	"math"
	"math/rand"
	"testing"

	"github.com/OpenPSG/stimulus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGain(t *testing.T) {
	// -7 mV read at gain 10 matches a stated resting potential of -70 mV.
	gain, residual, err := stimulus.ResolveGain(-7, -70, 0, stimulus.DefaultGainCandidates())
	require.NoError(t, err)
	assert.Equal(t, 10.0, gain)
	assert.Equal(t, 0.0, residual)

	gain, residual, err = stimulus.ResolveGain(-0.068, -70, -2, []float64{1, 10, 1000})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, gain)
	assert.InDelta(t, 0, residual, 1e-9)
}

func TestResolveGainTies(t *testing.T) {
	gain, residual, err := stimulus.ResolveGain(1, 0, 0, []float64{2, -2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, gain)
	assert.Equal(t, 2.0, residual)
}

func TestResolveGainEmpty(t *testing.T) {
	_, _, err := stimulus.ResolveGain(1, 1, 0, nil)
	require.ErrorIs(t, err, stimulus.ErrConfiguration)
}

func TestResolveGainMinimal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		candidates := make([]float64, 1+rng.Intn(8))
		for j := range candidates {
			candidates[j] = float64(rng.Intn(20)) * 5
		}
		sample := rng.Float64()*20 - 10
		stated := rng.Float64()*200 - 100
		offset := rng.Float64()*10 - 5

		gain, residual, err := stimulus.ResolveGain(sample, stated, offset, candidates)
		require.NoError(t, err)
		require.Contains(t, candidates, gain)
		for _, g := range candidates {
			require.LessOrEqual(t, residual, math.Abs(sample*g+offset-stated))
		}
	}
}

func TestInferStimulusGain(t *testing.T) {
	tests := []struct {
		name     string
		waveform []float64
		want     float64
	}{
		{"ampere scaled", []float64{0, 0.05, -0.02}, 1000},
		{"just above threshold", []float64{-0.999, 0}, 1000},
		{"at threshold", []float64{-1, 0, 0.5}, 1},
		{"pico scaled", []float64{-100, 0, 50}, 1},
		{"empty", nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stimulus.InferStimulusGain(tt.waveform))
		})
	}
}

func TestGainHeuristicConfigured(t *testing.T) {
	h := stimulus.GainHeuristic{Threshold: 0, ScaledGain: 20, UnitGain: 2}
	assert.Equal(t, 20.0, h.Infer([]float64{0.5, 1}))
	assert.Equal(t, 2.0, h.Infer([]float64{0, 1}))
}
