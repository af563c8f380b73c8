// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/stimulus/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"b/14617300.abf",
		"a/deep/0001.ABF",
		"a/notes.txt",
		"a/._0001.abf",
		".DS_Store",
		"c.abf",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.abf"), 0o755))

	files, err := inventory.Scan(root, ".abf")
	require.NoError(t, err)

	assert.Equal(t, []inventory.File{
		{Name: "0001.ABF", Path: filepath.Join(root, "a/deep/0001.ABF")},
		{Name: "14617300.abf", Path: filepath.Join(root, "b/14617300.abf")},
		{Name: "c.abf", Path: filepath.Join(root, "c.abf")},
	}, files)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := inventory.Scan(filepath.Join(t.TempDir(), "missing"), ".abf")
	require.Error(t, err)
}
