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
	"io"
	"strings"
)

// Field selects which of the two waveform layouts a recorder stored the
// stimulus in.
type Field int

const (
	// Primary is the recorded (acquired) waveform of a channel.
	Primary Field = iota
	// Secondary is the command waveform of a channel, when the recorder kept one.
	Secondary
)

func (f Field) String() string {
	switch f {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField parses "primary" or "secondary" (case insensitive).
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	}
	return 0, fmt.Errorf("%w: unknown stimulus field %q", ErrConfiguration, s)
}

// Sweep is one channel of one sweep of a recording.
type Sweep struct {
	Time       []float64 // Time axis in seconds
	Primary    []float64 // Recorded waveform
	Secondary  []float64 // Command waveform, nil if not recorded
	SampleRate float64   // Samples per second
}

// Values returns the waveform stored in the given field.
func (s *Sweep) Values(field Field) ([]float64, error) {
	switch field {
	case Primary:
		return s.Primary, nil
	case Secondary:
		if s.Secondary == nil {
			return nil, fmt.Errorf("%w: sweep has no secondary waveform", ErrValidation)
		}
		return s.Secondary, nil
	}
	return nil, fmt.Errorf("%w: unknown stimulus field %v", ErrConfiguration, field)
}

// Recording is a read-only multi-channel, multi-sweep time series.
type Recording interface {
	ChannelCount() int
	SweepCount() int
	// Sweep returns the samples of a single channel and sweep.
	Sweep(channel, sweep int) (*Sweep, error)
}

// RecordingFile is a Recording backed by an open file.
type RecordingFile interface {
	Recording
	io.Closer
}

// Opener opens recordings by path.
type Opener interface {
	Open(path string) (RecordingFile, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (RecordingFile, error)

func (f OpenerFunc) Open(path string) (RecordingFile, error) {
	return f(path)
}

// Metadata describes the recording being resolved.
type Metadata struct {
	Experimenter string
	Path         string
}

// CatalogEntry is a row of the reference catalog.
type CatalogEntry struct {
	ID           string // File identifier (e.g. 14617300.abf)
	Path         string
	Experimenter string
	Comments     string
}

// Catalog looks up recordings by identifier.
type Catalog interface {
	Lookup(id string) (CatalogEntry, error)
}

// Plateau is the constant stimulus segment found in a single sweep.
type Plateau struct {
	Amplitude float64
	Duration  float64 // Seconds, zero when no plateau was found
	Start     float64
	End       float64
}

// Envelope aggregates the stimulus plateaus of every sweep of a recording.
//
// Duration, Start and End come from the last sweep that had a non-zero
// plateau. Plateaus keeps the per-sweep values.
type Envelope struct {
	Amplitudes []float64 // One per sweep
	Duration   float64
	Start      float64
	End        float64
	SampleRate float64
	SweepCount int
	Plateaus   []Plateau
}

// Variance returns the population variance of the per-sweep amplitudes.
func (e *Envelope) Variance() float64 {
	return variance(e.Amplitudes)
}

// Degenerate reports whether every sweep has the same amplitude.
func (e *Envelope) Degenerate() bool {
	return e.Variance() == 0
}

// FallbackKind records which transition produced a resolution.
type FallbackKind string

const (
	FallbackNone          FallbackKind = "none"
	FallbackSameRecording FallbackKind = "same_recording"
	FallbackReference     FallbackKind = "reference"
)

// Resolution is the outcome of resolving a recording's stimulus.
type Resolution struct {
	Channel  int
	Gain     float64
	StimPath string // Recording the stimulus was taken from
	Valid    bool
	Fallback FallbackKind
	Envelope
}

// variance is the two-pass population variance. Identical values yield
// exactly zero.
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	flat := true
	for _, x := range xs[1:] {
		if x != xs[0] {
			flat = false
			break
		}
	}
	if flat {
		return 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs))
}
