// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package domainerr is the error vocabulary raised and recovered from
// inside the abstract domain (spec.md §6, §7). Each sentinel is wrapped
// with context via fmt.Errorf("%w: ...", Sentinel) at the raise site, and
// compared with errors.Is at the recovery boundary, matching the error
// handling already used throughout the teacher tree's core package.
package domainerr

import "errors"

var (
	// Concretization means a value could not be materialised to a
	// singleton (to_z, to_char, to_string, to_strings, get_bytes).
	Concretization = errors.New("concretization")

	// Empty means an update would yield an infeasible state (a weak
	// memory write to an absent key with strong=false).
	Empty = errors.New("empty update")

	// BotDeref means dereferencing an empty address set.
	BotDeref = errors.New("bottom dereference")

	// EnumFailure means to_addresses could not enumerate a finite address
	// set from a cell value.
	EnumFailure = errors.New("address enumeration failure")

	// NotFound means a missing key, or no match found in a bounded scan
	// or section lookup.
	NotFound = errors.New("not found")
)

// Is reports whether err ultimately wraps sentinel.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}
