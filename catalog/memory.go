// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package catalog stores the recording identifiers, paths and experimenters
// used to locate reference recordings.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/OpenPSG/stimulus"
)

// ErrNotFound is returned when a recording is not catalogued.
var ErrNotFound = errors.New("not found")

// Subject is the donor metadata derived from a catalog entry.
type Subject struct {
	SubjectID   string
	Species     string
	Description string
}

// SubjectFor derives donor metadata from a catalog entry, identifying the
// donor by the recording's file identifier without its extension.
func SubjectFor(e stimulus.CatalogEntry) Subject {
	id := e.ID
	if i := strings.LastIndexByte(id, '.'); i > 0 {
		id = id[:i]
	}
	return Subject{
		SubjectID:   "Donor_" + id,
		Species:     "Homo sapiens",
		Description: e.Comments,
	}
}

// Index is a catalog that can also be written and listed.
type Index interface {
	stimulus.Catalog
	Upsert(e stimulus.CatalogEntry) error
	List() ([]stimulus.CatalogEntry, error)
}

// Memory is an in-memory catalog, safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]stimulus.CatalogEntry
}

var _ Index = (*Memory)(nil)

// NewMemory creates a catalog holding the given entries.
func NewMemory(entries ...stimulus.CatalogEntry) *Memory {
	m := &Memory{entries: make(map[string]stimulus.CatalogEntry, len(entries))}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

// Upsert adds or replaces an entry.
func (m *Memory) Upsert(e stimulus.CatalogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("entry has no id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) Lookup(id string) (stimulus.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return stimulus.CatalogEntry{}, fmt.Errorf("recording %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// List returns every entry ordered by id.
func (m *Memory) List() ([]stimulus.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]stimulus.CatalogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
