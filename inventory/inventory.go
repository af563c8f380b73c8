// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package inventory lists recording files found under a directory tree.
package inventory

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// File is a recording file found by Scan.
type File struct {
	Name string // Base name, used as the recording identifier
	Path string
}

// Scan recursively finds regular files under root whose names end in suffix
// (e.g. ".abf"), skipping Finder metadata files. Results are sorted by path.
func Scan(root, suffix string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := d.Name()
		if name == ".DS_Store" || strings.HasPrefix(name, "._") {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(suffix)) {
			return nil
		}

		files = append(files, File{Name: name, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
