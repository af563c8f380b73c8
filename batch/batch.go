// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package batch resolves many recordings in parallel.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/OpenPSG/stimulus"
)

// Result is the outcome of resolving one recording.
type Result struct {
	Metadata   stimulus.Metadata
	Resolution *stimulus.Resolution
	Err        error
}

// ResolveFunc resolves a single recording.
type ResolveFunc func(meta stimulus.Metadata) (*stimulus.Resolution, error)

// Run resolves every recording with at most workers running at once. Results
// are returned in input order and a failure only affects its own Result.
// Recordings not yet started when ctx is cancelled report ctx.Err().
func Run(ctx context.Context, recordings []stimulus.Metadata, workers int, resolve ResolveFunc) []Result {
	results := make([]Result, len(recordings))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, meta := range recordings {
		i, meta := i, meta // per-iteration copies (go.mod targets go1.21)
		results[i].Metadata = meta
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Resolution, results[i].Err = resolve(meta)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Resolve runs a Resolver over recordings opened through its Opener.
func Resolve(ctx context.Context, r *stimulus.Resolver, recordings []stimulus.Metadata, field stimulus.Field, workers int) []Result {
	return Run(ctx, recordings, workers, func(meta stimulus.Metadata) (*stimulus.Resolution, error) {
		return r.ResolveFile(meta, field)
	})
}
