// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/OpenPSG/stimulus"
	"github.com/OpenPSG/stimulus/batch"
	"github.com/OpenPSG/stimulus/catalog"
	"github.com/OpenPSG/stimulus/edf"
	"github.com/OpenPSG/stimulus/inventory"
)

// record is one line of output.
type record struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	Path       string    `json:"path"`
	StimPath   string    `json:"stim_path,omitempty"`
	Channel    int       `json:"channel"`
	Gain       float64   `json:"gain"`
	Valid      bool      `json:"valid"`
	Fallback   string    `json:"fallback,omitempty"`
	Amplitudes []float64 `json:"amplitudes,omitempty"`
	Duration   float64   `json:"stim_duration"`
	Start      float64   `json:"stim_start"`
	End        float64   `json:"stim_end"`
	SampleRate float64   `json:"sample_rate"`
	SweepCount int       `json:"sweep_count"`
	Error      string    `json:"error,omitempty"`
}

type options struct {
	catalogPath  string
	indexDir     string
	suffix       string
	experimenter string
	configPath   string
	field        stimulus.Field
	workers      int
	indexOnly    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.catalogPath, "catalog", "catalog.sqlite", "Path to the recording catalog database")
	flag.StringVar(&opts.indexDir, "index", "", "Scan this directory and add its recordings to the catalog")
	flag.StringVar(&opts.suffix, "suffix", ".edf", "Recording file suffix used when indexing")
	flag.StringVar(&opts.experimenter, "experimenter", "", "Experimenter recorded for indexed files")
	flag.StringVar(&opts.configPath, "config", "", "YAML resolution config (defaults if empty)")
	fieldName := flag.String("field", "primary", "Stimulus waveform field: primary, secondary")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "Recordings resolved in parallel")
	flag.BoolVar(&opts.indexOnly, "index-only", false, "Only update the catalog, do not resolve")

	flag.Parse()

	logger := log.New(os.Stderr, "[stimfx] ", log.LstdFlags)

	field, err := stimulus.ParseField(*fieldName)
	if err != nil {
		logger.Fatalf("Invalid field: %v", err)
	}
	opts.field = field

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, opts, os.Stdout, logger)
	cancel()
	if err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, opts options, out io.Writer, logger *log.Logger) error {
	cfg := stimulus.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = loadConfig(opts.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	store, err := catalog.Open(opts.catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	if opts.indexDir != "" {
		files, err := inventory.Scan(opts.indexDir, opts.suffix)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		for _, f := range files {
			entry := stimulus.CatalogEntry{ID: f.Name, Path: f.Path, Experimenter: opts.experimenter}
			if err := store.Upsert(entry); err != nil {
				return fmt.Errorf("index %s: %w", f.Path, err)
			}
		}
		logger.Printf("Indexed %s recordings from %s", humanize.Comma(int64(len(files))), opts.indexDir)
	}
	if opts.indexOnly {
		return nil
	}

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	resolver, err := stimulus.NewResolver(cfg, store, edf.Opener, logger)
	if err != nil {
		return fmt.Errorf("create resolver: %w", err)
	}

	metas := make([]stimulus.Metadata, len(entries))
	for i, e := range entries {
		metas[i] = stimulus.Metadata{Experimenter: e.Experimenter, Path: e.Path}
	}

	results := batch.Resolve(ctx, resolver, metas, opts.field, opts.workers)

	sum, err := writeResults(out, logger, entries, results)
	if err != nil {
		return err
	}

	logger.Printf("Resolved %s recordings (%s sweeps): %s valid, %s failed",
		humanize.Comma(int64(len(results))), humanize.Comma(int64(sum.sweeps)),
		humanize.Comma(int64(sum.valid)), humanize.Comma(int64(sum.failed)))
	return nil
}

type summary struct {
	valid, failed, sweeps int
}

// writeResults writes one JSON line per result. A resolution that cannot be
// encoded is reported as a failed line and the remaining results still go out.
func writeResults(w io.Writer, logger *log.Logger, entries []stimulus.CatalogEntry, results []batch.Result) (summary, error) {
	var sum summary
	for i, res := range results {
		out := record{
			ID:        entries[i].ID,
			SubjectID: catalog.SubjectFor(entries[i]).SubjectID,
			Path:      res.Metadata.Path,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		} else {
			r := res.Resolution
			out.StimPath = r.StimPath
			out.Channel = r.Channel
			out.Gain = r.Gain
			out.Valid = r.Valid
			out.Fallback = string(r.Fallback)
			out.Amplitudes = r.Amplitudes
			out.Duration = r.Duration
			out.Start = r.Start
			out.End = r.End
			out.SampleRate = r.SampleRate
			out.SweepCount = r.SweepCount
		}

		line, err := json.Marshal(out)
		if err != nil {
			logger.Printf("Encode %s: %v", out.Path, err)
			out = record{
				ID:        out.ID,
				SubjectID: out.SubjectID,
				Path:      out.Path,
				Error:     fmt.Sprintf("error encoding resolution: %v", err),
			}
			if line, err = json.Marshal(out); err != nil {
				return sum, fmt.Errorf("encode %s: %w", out.Path, err)
			}
		}

		if _, err := w.Write(append(line, '\n')); err != nil {
			return sum, fmt.Errorf("write output: %w", err)
		}

		if out.Error != "" {
			sum.failed++
			continue
		}
		sum.sweeps += out.SweepCount
		if out.Valid {
			sum.valid++
		}
	}

	return sum, nil
}

func loadConfig(path string) (stimulus.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return stimulus.Config{}, err
	}
	defer f.Close()

	return stimulus.LoadConfig(f)
}
