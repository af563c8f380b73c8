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
	"math"
	"strings"
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// SecondarySuffix marks a signal holding the command waveform of the channel
// whose label precedes the suffix (e.g. "IN 0 cmd" for channel "IN 0").
const SecondarySuffix = " cmd"

// Header represents the EDF/EDF+ file header.
//
// In a sweep recording every data record holds one sweep, so DataRecords is
// the sweep count and DataRecordDuration the sweep length.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the donor
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., IN 0)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., mV, pA)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// CommandOf returns the label of the channel whose command waveform this
// signal holds, if it is a command signal.
func (s Signal) CommandOf() (string, bool) {
	return strings.CutSuffix(s.Label, SecondarySuffix)
}

// Calibrated reports whether the signal maps digital values to physical
// values without loss of scale.
func (s Signal) Calibrated() bool {
	return s.DigitalMax > s.DigitalMin && s.PhysicalMax > s.PhysicalMin &&
		!math.IsNaN(s.PhysicalMin) && !math.IsNaN(s.PhysicalMax) &&
		!math.IsInf(s.PhysicalMin, 0) && !math.IsInf(s.PhysicalMax, 0)
}

// SampleRate returns the signal's samples per second.
func (h *Header) SampleRate(signalIndex int) float64 {
	if h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.Signals[signalIndex].SamplesPerRecord) / h.DataRecordDuration.Seconds()
}
