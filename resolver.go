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
	"errors"
	"fmt"
	"io"
	"log"
	"math"
)

// Resolver determines which channel of a recording carries the injected
// current stimulus and recovers its envelope, applying experimenter specific
// fallbacks when the stimulus is flat.
type Resolver struct {
	cfg     Config
	catalog Catalog
	opener  Opener
	logger  *log.Logger
}

// NewResolver creates a Resolver. The catalog and opener are only needed for
// reference recording fallbacks and ResolveFile. A nil logger discards output.
func NewResolver(cfg Config, catalog Catalog, opener Opener, logger *log.Logger) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.GainCandidates = append([]float64(nil), cfg.GainCandidates...)
	cfg.FallbackRules = append([]FallbackRule(nil), cfg.FallbackRules...)

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Resolver{
		cfg:     cfg,
		catalog: catalog,
		opener:  opener,
		logger:  logger,
	}, nil
}

// Config returns the resolver's configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// ResolveFile opens the recording at meta.Path and resolves its stimulus.
func (r *Resolver) ResolveFile(meta Metadata, field Field) (*Resolution, error) {
	return r.resolveFile(meta, field, 0)
}

// Resolve resolves the stimulus of an already opened recording.
//
// A flat stimulus from an experimenter without a fallback rule is an
// ErrValidation. One that is still flat after a same recording retry is
// returned with Valid set to false, so callers must check Valid before
// trusting the envelope.
func (r *Resolver) Resolve(rec Recording, meta Metadata, field Field) (*Resolution, error) {
	return r.resolve(rec, meta, field, 0)
}

func (r *Resolver) resolveFile(meta Metadata, field Field, depth int) (*Resolution, error) {
	if r.opener == nil {
		return nil, fmt.Errorf("%w: no recording opener configured", ErrConfiguration)
	}

	f, err := r.opener.Open(meta.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening recording %q: %w", meta.Path, err)
	}
	defer f.Close()

	return r.resolve(f, meta, field, depth)
}

func (r *Resolver) resolve(rec Recording, meta Metadata, field Field, depth int) (*Resolution, error) {
	if rec.ChannelCount() < 1 {
		return nil, fmt.Errorf("%w: recording %q has no channels", ErrValidation, meta.Path)
	}

	res, err := r.extract(rec, rec.ChannelCount()-1, field)
	if err != nil {
		return nil, err
	}
	res.StimPath = meta.Path

	if !res.Degenerate() {
		res.Valid = true
		return res, nil
	}

	rule, ok := r.cfg.rule(meta.Experimenter)
	if !ok {
		return nil, fmt.Errorf("%w: flat stimulus on channel %d of %s and no fallback for experimenter %q",
			ErrValidation, res.Channel, meta.Path, meta.Experimenter)
	}

	switch rule.Action {
	case ActionSameRecording:
		r.logger.Printf("Flat stimulus on channel %d of %s, retrying on channel %d",
			res.Channel, meta.Path, rule.Channel)

		retry, err := r.extract(rec, rule.Channel, field)
		if err != nil {
			return nil, fmt.Errorf("error retrying on channel %d: %w", rule.Channel, err)
		}
		retry.StimPath = meta.Path
		retry.Fallback = FallbackSameRecording
		retry.Valid = !retry.Degenerate()
		return retry, nil

	case ActionReference:
		r.logger.Printf("Flat stimulus on channel %d of %s, substituting reference recording %s",
			res.Channel, meta.Path, rule.ReferenceID)
		return r.substitute(rule.ReferenceID, field, depth)
	}

	return nil, fmt.Errorf("%w: unknown fallback action %q", ErrConfiguration, rule.Action)
}

// extract infers the gain from the first sweep of a channel and extracts the
// envelope with it.
func (r *Resolver) extract(rec Recording, channel int, field Field) (*Resolution, error) {
	if channel < 0 || channel >= rec.ChannelCount() {
		return nil, fmt.Errorf("%w: channel %d out of range [0, %d)", ErrValidation, channel, rec.ChannelCount())
	}
	if rec.SweepCount() < 1 {
		return nil, fmt.Errorf("%w: recording has no sweeps", ErrValidation)
	}

	sw, err := rec.Sweep(channel, 0)
	if err != nil {
		return nil, fmt.Errorf("error reading sweep 0: %w", err)
	}

	raw, err := sw.Values(field)
	if err != nil {
		return nil, err
	}
	gain := r.cfg.GainHeuristic.Infer(raw)

	env, err := ExtractEnvelope(rec, channel, gain, r.cfg.Probe, field)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Channel:  channel,
		Gain:     gain,
		Fallback: FallbackNone,
		Envelope: *env,
	}, nil
}

// substitute resolves a catalogued reference recording in place of the
// current one.
func (r *Resolver) substitute(id string, field Field, depth int) (*Resolution, error) {
	if depth >= r.cfg.MaxReferenceDepth {
		return nil, fmt.Errorf("%w: reference recording %q exceeds fallback depth %d",
			ErrConfiguration, id, r.cfg.MaxReferenceDepth)
	}
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: no reference catalog configured", ErrConfiguration)
	}

	entry, err := r.catalog.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("%w: reference recording %q: %w", ErrConfiguration, id, err)
	}

	ref, err := r.resolveFile(Metadata{Experimenter: entry.Experimenter, Path: entry.Path}, field, depth+1)
	if errors.Is(err, ErrValidation) {
		return nil, fmt.Errorf("%w: reference recording %q: %w", ErrConfiguration, id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("error resolving reference recording %q: %w", id, err)
	}
	if !ref.Valid {
		return nil, fmt.Errorf("%w: reference recording %q has a flat stimulus", ErrConfiguration, id)
	}

	ref.Fallback = FallbackReference
	return ref, nil
}

// ChannelGain reconciles the recorded value of a channel at referenceTime
// with an externally stated value using the configured gain candidates.
func (r *Resolver) ChannelGain(rec Recording, channel, sweep int, referenceTime, stated, offset float64) (gain, residual float64, err error) {
	if channel < 0 || channel >= rec.ChannelCount() {
		return 0, 0, fmt.Errorf("%w: channel %d out of range [0, %d)", ErrValidation, channel, rec.ChannelCount())
	}

	sw, err := rec.Sweep(channel, sweep)
	if err != nil {
		return 0, 0, fmt.Errorf("error reading sweep %d: %w", sweep, err)
	}

	i := int(math.Round(referenceTime * sw.SampleRate))
	if i < 0 || i >= len(sw.Primary) {
		return 0, 0, fmt.Errorf("%w: reference time %vs outside sweep", ErrValidation, referenceTime)
	}

	return ResolveGain(sw.Primary[i], stated, offset, r.cfg.GainCandidates)
}
