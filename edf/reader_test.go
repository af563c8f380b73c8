// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/stimulus/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sweepHeader returns a header with identity calibration, so whole number
// physical values survive the round trip exactly.
func sweepHeader(samples int, duration time.Duration, labels ...string) edf.Header {
	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Donor_1",
		RecordingID:        "sweeps",
		StartTime:          time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC),
		DataRecordDuration: duration,
		SignalCount:        len(labels),
	}
	for _, label := range labels {
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:             label,
			PhysicalDimension: "pA",
			PhysicalMin:       -32768,
			PhysicalMax:       32767,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  samples,
		})
	}
	return hdr
}

// writeSweeps writes sweeps indexed [sweep][signal][sample] to a new file.
func writeSweeps(t *testing.T, hdr edf.Header, sweeps [][][]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sweeps.edf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)
	for _, sweep := range sweeps {
		require.NoError(t, ew.WriteRecord(sweep))
	}
	require.NoError(t, ew.Close())

	return path
}

func ramp(n int, offset float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i) + offset
	}
	return s
}

func TestReader(t *testing.T) {
	hdr := sweepHeader(500, 500*time.Millisecond, "IN 0", "IN 1")
	path := writeSweeps(t, hdr, [][][]float64{
		{ramp(500, 0), ramp(500, -1000)},
		{ramp(500, 500), ramp(500, -500)},
	})

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	// Parse the header
	er, err := edf.Open(f)
	require.NoError(t, err)

	got := er.Header()
	assert.Equal(t, edf.Version0, got.Version)
	assert.Equal(t, "Donor_1", got.PatientID)
	assert.True(t, hdr.StartTime.Equal(got.StartTime))
	assert.Equal(t, 2, got.DataRecords)
	assert.Equal(t, 2, got.SignalCount)
	assert.Equal(t, 500*time.Millisecond, got.DataRecordDuration)
	assert.Equal(t, 256*3, got.HeaderBytes)
	assert.Equal(t, "IN 1", got.Signals[1].Label)
	assert.Equal(t, "pA", got.Signals[1].PhysicalDimension)
	assert.Equal(t, -32768.0, got.Signals[1].PhysicalMin)
	assert.Equal(t, 32767, got.Signals[1].DigitalMax)
	assert.InDelta(t, 1000, got.SampleRate(0), 1e-9)

	// Records can be read in any order.
	second, err := er.ReadRecord(1)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, ramp(500, 500), second[0])
	assert.Equal(t, ramp(500, -500), second[1])

	first, err := er.ReadRecord(0)
	require.NoError(t, err)
	assert.Equal(t, ramp(500, -1000), first[1])

	_, err = er.ReadRecord(2)
	require.Error(t, err)

	sr, err := er.Signal(1)
	require.NoError(t, err)
	samples := make([]float64, 1000)
	n, err := sr.Read(samples)
	require.NoError(t, err)
	require.Equal(t, 1000, n)
	assert.Equal(t, -1000.0, samples[0])
	assert.Equal(t, -500.0, samples[500])
	assert.Equal(t, -1.0, samples[999])

	_, err = er.Signal(2)
	require.Error(t, err)
}
