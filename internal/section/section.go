// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package section implements the backing read-through store for a loaded
// binary image (spec.md §4.2): the section table consumed once at init,
// and the mmap'd image bytes that back reads of otherwise-unset memory.
//
// This is grounded on core/mapping.go's Mapping type and
// internal/core/process.go's mmap-and-trim logic in the teacher tree,
// adapted from a process's page-backed virtual memory mappings (which can
// be sparse, overlapping and permission-tagged) to a statically loaded
// executable's much simpler section table.
package section

import (
	"fmt"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
)

// Section is one entry of a loaded binary's section table (spec.md §3).
type Section struct {
	VirtAddr mach.Address
	VirtSize int64
	RawAddr  int64
	RawSize  int64
	Name     string
}

// contains reports whether a falls in this section's virtual range.
func (s Section) contains(a mach.Address) bool {
	return a >= s.VirtAddr && a.Sub(s.VirtAddr) < s.VirtSize
}

// Map is the section table installed once at Image init.
type Map struct {
	sections []Section
}

// NewMap builds a section map from a parsed configuration. Consumed once
// at init, per spec.md §5 ("callers must not concurrently re-initialize").
func NewMap(sections []Section) *Map {
	out := make([]Section, len(sections))
	copy(out, sections)
	return &Map{sections: out}
}

// find returns the unique section containing address a, or fails with
// domainerr.NotFound.
func (m *Map) find(a mach.Address) (Section, error) {
	var found *Section
	for i := range m.sections {
		if m.sections[i].contains(a) {
			if found != nil {
				return Section{}, fmt.Errorf("%w: address %s maps to more than one section", domainerr.NotFound, a)
			}
			found = &m.sections[i]
		}
	}
	if found == nil {
		return Section{}, fmt.Errorf("%w: no section contains address %s", domainerr.NotFound, a)
	}
	return *found, nil
}

// Sections returns the loaded section table.
func (m *Map) Sections() []Section {
	out := make([]Section, len(m.sections))
	copy(out, m.sections)
	return out
}

// ReadFromSections resolves a single byte at address a from the section
// table and backing image, per spec.md §4.2:
//
//  1. find the unique section containing a, failing with NotFound if none
//     does;
//  2. if the byte falls past the section's raw data (bss-style trailing
//     zero-fill that isn't actually materialised in the file), return
//     V.top;
//  3. otherwise lift the raw image byte with V.of_word.
func ReadFromSections(m *Map, img *Image, f cellval.Factory, a mach.Address) (cellval.Value, error) {
	sec, err := m.find(a)
	if err != nil {
		return nil, err
	}
	offset := a.Sub(sec.VirtAddr)
	if offset >= sec.RawSize {
		return f.Top(8), nil
	}
	b, err := img.ByteAt(sec.RawAddr + offset)
	if err != nil {
		return nil, err
	}
	return f.OfWord(mach.NewWord(uint64(b), 8)), nil
}
