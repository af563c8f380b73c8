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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// maxRecordBytes is the data record size recommended by the EDF standard.
const maxRecordBytes = 61440

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	if hdr.SignalCount != len(hdr.Signals) {
		return nil, fmt.Errorf("signal count %d does not match %d signals", hdr.SignalCount, len(hdr.Signals))
	}
	hdr.Signals = append([]Signal(nil), hdr.Signals...)
	hdr.DataRecords = -1 // Unknown number of data records (at this time).

	ew := &Writer{w: w, hdr: &hdr}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record (one sweep) to the EDF file.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	var totalSamples int
	for i, signal := range signals {
		if len(signal) != ew.hdr.Signals[i].SamplesPerRecord {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, ew.hdr.Signals[i].SamplesPerRecord, len(signal))
		}
		totalSamples += len(signal)
	}

	if totalSamples*2 > maxRecordBytes {
		return fmt.Errorf("data record too large: %d bytes, max is %d bytes", totalSamples*2, maxRecordBytes)
	}

	// Records are appended after the header and any previous records.
	pos := int64(ew.hdr.HeaderBytes) + int64(ew.dataRecords)*int64(totalSamples*2)
	if _, err := ew.w.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to position: %w", err)
	}

	writer := bufio.NewWriter(ew.w)
	for i, signal := range ew.hdr.Signals {
		for _, sample := range signals[i] {
			digitalValue := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if err := binary.Write(writer, binary.LittleEndian, digitalValue); err != nil {
				return err
			}
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// writeHeader writes the EDF header at the start of the file.
func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	ew.hdr.HeaderBytes = 256 + (ew.hdr.SignalCount * 256)

	fields := []string{
		pad(string(ew.hdr.Version), 8),
		pad(ew.hdr.PatientID, 80),
		pad(ew.hdr.RecordingID, 80),
		pad(ew.hdr.StartTime.Format("02.01.06"), 8),
		pad(ew.hdr.StartTime.Format("15.04.05"), 8),
		pad(strconv.Itoa(ew.hdr.HeaderBytes), 8),
		pad("", 44), // Reserved
		pad(strconv.Itoa(ew.hdr.DataRecords), 8),
		formatNumber(ew.hdr.DataRecordDuration.Seconds()),
		pad(strconv.Itoa(ew.hdr.SignalCount), 4),
	}

	signalFields := []func(sig Signal) string{
		func(sig Signal) string { return pad(sig.Label, 16) },
		func(sig Signal) string { return pad(sig.TransducerType, 80) },
		func(sig Signal) string { return pad(sig.PhysicalDimension, 8) },
		func(sig Signal) string { return formatNumber(sig.PhysicalMin) },
		func(sig Signal) string { return formatNumber(sig.PhysicalMax) },
		func(sig Signal) string { return pad(strconv.Itoa(sig.DigitalMin), 8) },
		func(sig Signal) string { return pad(strconv.Itoa(sig.DigitalMax), 8) },
		func(sig Signal) string { return pad(sig.Prefiltering, 80) },
		func(sig Signal) string { return pad(strconv.Itoa(sig.SamplesPerRecord), 8) },
		func(sig Signal) string { return pad("", 32) }, // Reserved
	}
	for _, field := range signalFields {
		for _, sig := range ew.hdr.Signals {
			fields = append(fields, field(sig))
		}
	}

	writer := bufio.NewWriter(ew.w)
	for _, field := range fields {
		if _, err := writer.WriteString(field); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration factors.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := math.Round(((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin))
	digital = math.Max(float64(dmin), math.Min(float64(dmax), digital))
	return int16(digital)
}

// pad left aligns s in a field of the given width, truncating if needed.
func pad(s string, width int) string {
	if len(s) > width {
		s = s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}

// formatNumber formats a value into an 8 byte field.
func formatNumber(val float64) string {
	s := strconv.FormatFloat(val, 'f', -1, 64)
	if len(s) > 8 {
		// Try with 2 decimal places, then fall back to no decimal
		s = fmt.Sprintf("%.2f", val)
		if len(s) > 8 {
			s = fmt.Sprintf("%.0f", val)
		}
	}
	return pad(s, 8)
}
