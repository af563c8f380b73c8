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
	"fmt"
	"math"
)

// ResolveGain picks the candidate gain that best reconciles a recorded sample
// with an externally stated value (e.g. resting membrane potential). Ties go
// to the earliest candidate.
func ResolveGain(sample, stated, offset float64, candidates []float64) (gain, residual float64, err error) {
	if len(candidates) == 0 {
		return 0, 0, fmt.Errorf("%w: empty gain candidate set", ErrConfiguration)
	}

	gain = candidates[0]
	residual = math.Abs(sample*gain + offset - stated)
	for _, g := range candidates[1:] {
		if r := math.Abs(sample*g + offset - stated); r < residual {
			gain, residual = g, r
		}
	}

	return gain, residual, nil
}

// Infer returns the gain for a raw stimulus waveform. Waveforms whose minimum
// stays above the threshold are taken to be in amperes and are scaled to the
// pico unit convention. This is a unit detector, not a calibration.
func (h GainHeuristic) Infer(waveform []float64) float64 {
	if len(waveform) == 0 {
		return h.UnitGain
	}

	lo := waveform[0]
	for _, v := range waveform[1:] {
		if v < lo {
			lo = v
		}
	}

	if lo > h.Threshold {
		return h.ScaledGain
	}
	return h.UnitGain
}

// InferStimulusGain applies the default gain heuristic.
func InferStimulusGain(waveform []float64) float64 {
	return DefaultConfig().GainHeuristic.Infer(waveform)
}
