// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cellval defines V, the cell-value abstraction the unrelational
// domain is a functor over (spec.md §3). V itself is an external parameter
// — the interval, bitwise-reduced-product or other abstraction that a
// caller plugs in at build time is out of scope here — but the domain
// needs a contract to program against and at least one working instance to
// be testable, so this package defines the Value/Factory interfaces and
// ships a concrete-with-taint reference implementation in concrete.go.
package cellval

import (
	"math/big"

	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/taint"
)

// BinOp is the supported set of assembly binary operators.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	UDiv
	SDiv
	UMod
	SMod
	And
	Or
	Xor
	Shl
	Shr
	Sar
)

// UnOp is the supported set of assembly unary operators.
type UnOp int

const (
	Neg UnOp = iota
	Not
)

// Cmp is the supported set of comparison operators.
type Cmp int

const (
	EQ Cmp = iota
	NEQ
	LTU
	LEU
	GTU
	GEU
	LTS
	LES
	GTS
	GES
)

// Negate returns the comparison with the opposite truth value, used when
// eval_bexp inverts a comparison under a false polarity (spec.md §4.5).
func (c Cmp) Negate() Cmp {
	switch c {
	case EQ:
		return NEQ
	case NEQ:
		return EQ
	case LTU:
		return GEU
	case LEU:
		return GTU
	case GTU:
		return LEU
	case GEU:
		return LTU
	case LTS:
		return GES
	case LES:
		return GTS
	case GTS:
		return LES
	case GES:
		return LTS
	}
	panic("cellval: unknown comparator")
}

// Value is a single cell's contents: a set of possible bit patterns
// together with a taint mask. Every method is pure; none mutate the
// receiver or argument.
type Value interface {
	// Bits returns the cell's bit width.
	Bits() int

	IsBot() bool
	IsSubset(other Value) bool

	Join(other Value) Value
	Meet(other Value) Value
	Widen(other Value) Value

	// ToZ materialises the value as an integer singleton.
	ToZ() (*big.Int, error)
	// ToChar materialises the value as a single byte.
	ToChar() (byte, error)
	// ToString materialises a NUL-free byte singleton plus its taint.
	ToString() (string, taint.Set, error)
	// ToStrings enumerates every string the value could concretize to,
	// plus a combined taint. Used when address-set enumeration forces a
	// caller to consider more than one concrete reading.
	ToStrings() ([]string, taint.Set, error)
	// ToAddresses enumerates the finite set of concrete addresses the
	// value could represent.
	ToAddresses() ([]mach.Address, error)

	Binary(op BinOp, other Value) Value
	Unary(op UnOp) Value
	Compare(cmp Cmp, other Value) bool

	// Extract returns bits [lo, hi] (inclusive), re-based to bit 0.
	Extract(lo, hi int) Value
	// Combine splices other into bits [lo, hi] of the receiver, keeping
	// the receiver's bits elsewhere.
	Combine(other Value, lo, hi int) Value

	Forget() Value
	Untaint() Value
	Taint() Value
	// SpanTaint attaches t as additional taint on top of the value's own.
	SpanTaint(t taint.Set) Value
	IsTainted() bool
	// MinimalTaint returns the least nonzero taint bit among the value's
	// tainted bits, used by span_taint (spec.md §4.6).
	MinimalTaint() taint.Set
}

// Factory builds Values that are not derived from an existing Value: the
// static/module-level part of the V functor (bot, top, of_word, ...).
type Factory interface {
	Bot(bits int) Value
	Top(bits int) Value
	OfWord(w mach.Word) Value
	OfConfig(region config.Region, content config.Content, bits int) (Value, error)
	TaintOfConfig(t config.Taint, bits int, v Value) Value
	FromPosition(v Value, pos, length int) Value
	Concat(parts []Value) Value
	OfRepeatVal(pattern Value, patternBits, n int) Value
}
