// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package taint implements the per-bit taint lattice T that the abstract
// domain propagates alongside every cell value. T is "given" by the
// specification (the taint lattice itself is out of scope); this package
// is the one concrete instance the rest of the module builds and tests
// against.
package taint

import "math/bits"

// Set is a per-bit taint mask: bit i set means bit i of the associated
// cell value is tainted. A Set of width 0 means "no bits tracked", which
// behaves as untainted.
type Set struct {
	mask uint64
	bits int
}

// None returns an untainted set of the given bit width.
func None(width int) Set {
	return Set{bits: width}
}

// All returns a fully tainted set of the given bit width.
func All(width int) Set {
	return Set{mask: fullMask(width), bits: width}
}

func fullMask(width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// FromMask builds a Set from an explicit bitmask.
func FromMask(mask uint64, width int) Set {
	return Set{mask: mask & fullMask(width), bits: width}
}

// Mask returns the raw taint bitmask.
func (s Set) Mask() uint64 { return s.mask }

// Width returns the tracked bit width.
func (s Set) Width() int { return s.bits }

// IsTainted reports whether any bit is tainted.
func (s Set) IsTainted() bool { return s.mask != 0 }

// Join is the lattice join: union of tainted bits (more taint is less
// precise information, so join widens the tainted set).
func (s Set) Join(o Set) Set {
	return Set{mask: s.mask | o.mask, bits: max(s.bits, o.bits)}
}

// Meet is the lattice meet: intersection of tainted bits.
func (s Set) Meet(o Set) Set {
	return Set{mask: s.mask & o.mask, bits: max(s.bits, o.bits)}
}

// Widen has no useful approximation beyond join for a finite bitmask
// lattice: the chain stabilises in at most Width steps already, so widen
// is join.
func (s Set) Widen(o Set) Set {
	return s.Join(o)
}

// Span returns the minimal nonzero taint among the bits covered by mask,
// or the zero Set if none of those bits are tainted. Used by span_taint
// (spec.md §4.6) to propagate the "minimal taint of the involved operand"
// onto an assigned cell.
func (s Set) Span() Set {
	if s.mask == 0 {
		return Set{bits: s.bits}
	}
	lowest := uint64(1) << uint(bits.TrailingZeros64(s.mask))
	return Set{mask: lowest, bits: s.bits}
}

// Extract returns the taint bits in [lo, hi], re-based to bit 0.
func (s Set) Extract(lo, hi int) Set {
	width := hi - lo + 1
	if width <= 0 {
		return Set{}
	}
	shifted := s.mask >> uint(lo)
	return FromMask(shifted, width)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
