// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenPSG/stimulus"
)

// Recording exposes an EDF file as a multi-sweep recording. Every data record
// is one sweep and every signal not labelled with SecondarySuffix is one
// channel.
type Recording struct {
	r        *Reader
	closer   io.Closer
	channels []channel
}

type channel struct {
	label     string
	primary   int
	secondary int // -1 if the channel has no command waveform
}

var _ stimulus.RecordingFile = (*Recording)(nil)

// Opener opens EDF recordings from the filesystem.
var Opener stimulus.Opener = stimulus.OpenerFunc(func(path string) (stimulus.RecordingFile, error) {
	rec, err := OpenRecording(path)
	if err != nil {
		return nil, err
	}
	return rec, nil
})

// OpenRecording opens the EDF file at path as a recording.
func OpenRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rec, err := NewRecording(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	rec.closer = f

	return rec, nil
}

// NewRecording reads the header of an EDF stream and maps its signals onto
// channels.
func NewRecording(r io.ReadSeeker) (*Recording, error) {
	er, err := Open(r)
	if err != nil {
		return nil, err
	}

	rec := &Recording{r: er}
	index := make(map[string]int)
	for i, sig := range er.hdr.Signals {
		if _, ok := sig.CommandOf(); ok {
			continue
		}
		if !sig.Calibrated() {
			return nil, fmt.Errorf("signal %q has an invalid calibration", sig.Label)
		}
		if _, ok := index[sig.Label]; ok {
			return nil, fmt.Errorf("duplicate channel label %q", sig.Label)
		}
		index[sig.Label] = len(rec.channels)
		rec.channels = append(rec.channels, channel{label: sig.Label, primary: i, secondary: -1})
	}

	for i, sig := range er.hdr.Signals {
		label, ok := sig.CommandOf()
		if !ok {
			continue
		}
		if !sig.Calibrated() {
			return nil, fmt.Errorf("signal %q has an invalid calibration", sig.Label)
		}
		c, ok := index[label]
		if !ok {
			return nil, fmt.Errorf("command signal %q has no channel", sig.Label)
		}
		if sig.SamplesPerRecord != er.hdr.Signals[rec.channels[c].primary].SamplesPerRecord {
			return nil, fmt.Errorf("command signal %q sample count does not match channel", sig.Label)
		}
		rec.channels[c].secondary = i
	}

	return rec, nil
}

// Header returns the EDF header of the recording.
func (rec *Recording) Header() *Header {
	return rec.r.Header()
}

// Labels returns the channel labels in channel order.
func (rec *Recording) Labels() []string {
	labels := make([]string, len(rec.channels))
	for i, c := range rec.channels {
		labels[i] = c.label
	}
	return labels
}

func (rec *Recording) ChannelCount() int {
	return len(rec.channels)
}

func (rec *Recording) SweepCount() int {
	return max(rec.r.hdr.DataRecords, 0)
}

// Sweep reads a single sweep and returns the samples of one channel.
func (rec *Recording) Sweep(channel, sweep int) (*stimulus.Sweep, error) {
	if channel < 0 || channel >= len(rec.channels) {
		return nil, fmt.Errorf("channel index out of range")
	}
	c := rec.channels[channel]

	signals, err := rec.r.ReadRecord(sweep)
	if err != nil {
		return nil, err
	}

	rate := rec.r.hdr.SampleRate(c.primary)
	if rate <= 0 {
		return nil, fmt.Errorf("channel %q has no sample rate", c.label)
	}

	sw := &stimulus.Sweep{
		Time:       make([]float64, len(signals[c.primary])),
		Primary:    signals[c.primary],
		SampleRate: rate,
	}
	for i := range sw.Time {
		sw.Time[i] = float64(i) / rate
	}
	if c.secondary >= 0 {
		sw.Secondary = signals[c.secondary]
	}

	return sw, nil
}

// Close closes the underlying file, if the recording owns one.
func (rec *Recording) Close() error {
	if rec.closer == nil {
		return nil
	}
	return rec.closer.Close()
}
