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

// ExtractEnvelope finds the stimulus plateau of every sweep on a channel.
//
// The amplitude of a sweep is the gain corrected value at the probe index,
// which assumes a single step protocol whose plateau spans the probe point.
// The plateau is every sample equal to that amplitude. Sweeps with a zero
// amplitude have no plateau and leave the aggregate window untouched.
func ExtractEnvelope(rec Recording, channel int, gain float64, probe Probe, field Field) (*Envelope, error) {
	if channel < 0 || channel >= rec.ChannelCount() {
		return nil, fmt.Errorf("%w: channel %d out of range [0, %d)", ErrValidation, channel, rec.ChannelCount())
	}

	sweeps := rec.SweepCount()
	if sweeps < 1 {
		return nil, fmt.Errorf("%w: recording has no sweeps", ErrValidation)
	}

	env := &Envelope{
		Amplitudes: make([]float64, sweeps),
		Plateaus:   make([]Plateau, sweeps),
		SweepCount: sweeps,
	}

	detected := false
	for i := 0; i < sweeps; i++ {
		sw, err := rec.Sweep(channel, i)
		if err != nil {
			return nil, fmt.Errorf("error reading sweep %d: %w", i, err)
		}

		raw, err := sw.Values(field)
		if err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		if sw.SampleRate <= 0 {
			return nil, fmt.Errorf("%w: sweep %d has sample rate %v", ErrValidation, i, sw.SampleRate)
		}

		values := make([]float64, len(raw))
		for j, v := range raw {
			values[j] = math.RoundToEven(v * gain)
		}

		amplitude, err := probeAmplitude(values, probe)
		if err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		env.Amplitudes[i] = amplitude
		env.Plateaus[i].Amplitude = amplitude
		env.SampleRate = sw.SampleRate

		first, last, count := plateau(values, amplitude)
		if count == 0 {
			continue
		}
		if last >= len(sw.Time) {
			return nil, fmt.Errorf("%w: sweep %d time axis shorter than waveform", ErrValidation, i)
		}

		p := Plateau{
			Amplitude: amplitude,
			Duration:  float64(count) / sw.SampleRate,
			Start:     sw.Time[first],
			End:       sw.Time[last],
		}
		env.Plateaus[i] = p
		env.Duration, env.Start, env.End = p.Duration, p.Start, p.End
		detected = true
	}

	if !detected {
		return nil, fmt.Errorf("%w: no stimulus detected", ErrValidation)
	}

	return env, nil
}

func probeAmplitude(values []float64, probe Probe) (float64, error) {
	if probe.Index < len(values) {
		return values[probe.Index], nil
	}
	if probe.FallbackIndex < len(values) {
		return values[probe.FallbackIndex], nil
	}
	return 0, fmt.Errorf("%w: waveform of %d samples is shorter than probe index %d",
		ErrValidation, len(values), probe.FallbackIndex)
}

// plateau returns the first and last index of, and the number of, samples
// equal to a non-zero amplitude.
func plateau(values []float64, amplitude float64) (first, last, count int) {
	if amplitude == 0 || math.IsNaN(amplitude) {
		return 0, 0, 0
	}

	first = -1
	for i, v := range values {
		if v != amplitude {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		count++
	}

	return first, last, count
}
