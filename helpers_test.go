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
	"fmt"

	"github.com/OpenPSG/stimulus"
)

const (
	testRate    = 10000.0
	testSamples = 10000
)

// memRecording is an in-memory recording indexed [channel][sweep][sample].
type memRecording struct {
	rate      float64
	primary   [][][]float64
	secondary [][][]float64
	closed    bool
}

func (m *memRecording) ChannelCount() int { return len(m.primary) }

func (m *memRecording) SweepCount() int {
	if len(m.primary) == 0 {
		return 0
	}
	return len(m.primary[0])
}

func (m *memRecording) Sweep(channel, sweep int) (*stimulus.Sweep, error) {
	if channel < 0 || channel >= m.ChannelCount() || sweep < 0 || sweep >= m.SweepCount() {
		return nil, fmt.Errorf("sweep (%d, %d) out of range", channel, sweep)
	}

	values := m.primary[channel][sweep]
	t := make([]float64, len(values))
	for i := range t {
		t[i] = float64(i) / m.rate
	}

	sw := &stimulus.Sweep{Time: t, Primary: values, SampleRate: m.rate}
	if m.secondary != nil {
		sw.Secondary = m.secondary[channel][sweep]
	}
	return sw, nil
}

func (m *memRecording) Close() error {
	m.closed = true
	return nil
}

// step returns n samples of zero with amp between [start, end).
func step(n, start, end int, amp float64) []float64 {
	s := make([]float64, n)
	for i := start; i < end && i < n; i++ {
		s[i] = amp
	}
	return s
}

// stepRecording builds a recording with one channel per amplitude list, each
// sweep a step over samples [1000, 8000).
func stepRecording(amps ...[]float64) *memRecording {
	rec := &memRecording{rate: testRate}
	for _, channel := range amps {
		var sweeps [][]float64
		for _, a := range channel {
			sweeps = append(sweeps, step(testSamples, 1000, 8000, a))
		}
		rec.primary = append(rec.primary, sweeps)
	}
	return rec
}

type memOpener struct {
	recordings map[string]*memRecording
	opened     []string
}

func (o *memOpener) Open(path string) (stimulus.RecordingFile, error) {
	rec, ok := o.recordings[path]
	if !ok {
		return nil, fmt.Errorf("no such recording: %s", path)
	}
	o.opened = append(o.opened, path)
	return rec, nil
}

type memCatalog map[string]stimulus.CatalogEntry

func (c memCatalog) Lookup(id string) (stimulus.CatalogEntry, error) {
	e, ok := c[id]
	if !ok {
		return stimulus.CatalogEntry{}, fmt.Errorf("recording %q not found", id)
	}
	return e, nil
}
