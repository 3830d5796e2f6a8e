// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dimension implements Env (spec.md §4.1): the ordered,
// dimension-keyed associative container that backs the domain's Concrete
// state, plus the Dimension key type itself (spec.md §3).
//
// The key space mixes point keys (registers, single memory bytes) and
// range keys (compressed byte-broadcast memory intervals), so lookups need
// a ternary-predicate range-find rather than plain map indexing. This is
// the same problem core/mapping.go solves for a process's virtual memory
// mappings, but at a much smaller and sparser scale (a handful of
// registers and scattered byte/interval keys, not a multi-gigabyte address
// space): a sorted slice searched with sort.Search gives the required
// O(log n) find while staying far simpler than the teacher's four-level
// radix-4096 page table, which is sized for 48-bit virtual addresses.
package dimension

import (
	"sort"

	"github.com/taintcore/undom/internal/mach"
)

// Kind tags which variant of Dimension a key is.
type Kind int

const (
	KindReg Kind = iota
	KindMem
	KindMemItv
)

// Dimension is a key into Env: a register, a single memory byte, or a
// compressed run of equal-valued bytes (spec.md §3).
type Dimension struct {
	Kind Kind
	Reg  mach.Register
	Lo   mach.Address // Mem: the address. MemItv: the low bound.
	Hi   mach.Address // MemItv only: the high bound (inclusive).
}

// Reg builds a register dimension.
func Reg(r mach.Register) Dimension { return Dimension{Kind: KindReg, Reg: r} }

// Mem builds a single-byte memory dimension.
func Mem(a mach.Address) Dimension { return Dimension{Kind: KindMem, Lo: a} }

// MemItv builds a compressed byte-range memory dimension covering
// [lo, hi] inclusive.
func MemItv(lo, hi mach.Address) Dimension { return Dimension{Kind: KindMemItv, Lo: lo, Hi: hi} }

// Contains reports whether address a falls within a memory dimension
// (always true for Mem at a itself, or within [Lo,Hi] for MemItv).
func (d Dimension) Contains(a mach.Address) bool {
	switch d.Kind {
	case KindMem:
		return d.Lo == a
	case KindMemItv:
		return d.Lo <= a && a <= d.Hi
	default:
		return false
	}
}

// Less implements the Dimension strict total order (spec.md §3): every
// Reg precedes every memory key; memory keys compare by address, with a
// MemItv ordered by its low bound and treated as overlapping any address
// it contains.
func (d Dimension) Less(o Dimension) bool {
	if d.Kind == KindReg && o.Kind != KindReg {
		return true
	}
	if d.Kind != KindReg && o.Kind == KindReg {
		return false
	}
	if d.Kind == KindReg && o.Kind == KindReg {
		return d.Reg.Name < o.Reg.Name
	}
	return d.memLo() < o.memLo()
}

func (d Dimension) memLo() mach.Address {
	return d.Lo
}

// Equal reports whether two dimensions are the identical key (not whether
// one's range contains the other's address).
func (d Dimension) Equal(o Dimension) bool {
	return d.Kind == o.Kind && d.Reg.Equal(o.Reg) && d.Lo == o.Lo && d.Hi == o.Hi
}

func (d Dimension) String() string {
	switch d.Kind {
	case KindReg:
		return d.Reg.Name
	case KindMem:
		return "mem[" + d.Lo.String() + "]"
	case KindMemItv:
		return "mem[" + d.Lo.String() + ".." + d.Hi.String() + "]"
	default:
		return "dim?"
	}
}

// CmpAddr is a ternary comparison predicate over a query address and a
// key: negative if the query is before the key, zero if it matches
// (falls within a Mem/MemItv key), positive if it is after. find_by uses
// this to locate either a Mem with the matching address or an enclosing
// MemItv (spec.md §4.1).
func CmpAddr(a mach.Address) func(Dimension) int {
	return func(d Dimension) int {
		switch d.Kind {
		case KindReg:
			// Registers sort before all memory keys; any address query
			// is "after" every register key.
			return 1
		case KindMem:
			switch {
			case a < d.Lo:
				return -1
			case a > d.Lo:
				return 1
			default:
				return 0
			}
		case KindMemItv:
			switch {
			case a < d.Lo:
				return -1
			case a > d.Hi:
				return 1
			default:
				return 0
			}
		default:
			panic("dimension: unknown kind")
		}
	}
}

// CmpReg is a comparison predicate that matches only the named register.
func CmpReg(r mach.Register) func(Dimension) int {
	return func(d Dimension) int {
		if d.Kind != KindReg {
			// Memory keys sort after all registers; a register query is
			// "before" every memory key.
			return -1
		}
		return sortCompareStrings(r.Name, d.Reg.Name)
	}
}

func sortCompareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortIndex binary-searches indices [0, n) for the first index whose
// predicate sign is non-negative, and reports whether that index is an
// exact (zero) match.
func sortIndex(n int, cmp func(int) int) (int, bool) {
	i := sort.Search(n, func(i int) bool { return cmp(i) >= 0 })
	if i < n && cmp(i) == 0 {
		return i, true
	}
	return i, false
}
