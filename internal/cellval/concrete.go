// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cellval

import (
	"fmt"
	"math/big"

	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/taint"
)

// Val is the "concrete-with-taint" reference instance of the cell value
// abstraction: a flat lattice (Bottom below every singleton integer,
// singletons incomparable to each other, Top above all of them) carrying a
// per-bit taint set. It is not a precise abstraction — joining two
// distinct concrete values collapses straight to Top rather than to an
// interval or set — but it is sound, and it is the instance spec.md §8's
// testable scenarios are phrased against.
//
// The singleton payload is capped at 64 bits (uint64); this reference
// instance is for driving and testing the domain logic, not for modelling
// architectures with wider-than-64-bit registers.
type Val struct {
	bits int

	isBot bool
	isTop bool
	v     uint64 // meaningful only when !isBot && !isTop

	region    config.Region
	hasRegion bool

	tnt taint.Set
}

var _ Value = Val{}

func (v Val) Bits() int { return v.bits }

func (v Val) IsBot() bool { return v.isBot }

func (v Val) IsSubset(other Value) bool {
	o, ok := other.(Val)
	if !ok {
		panic("cellval: IsSubset across mismatched Value implementations")
	}
	switch {
	case v.isBot:
		return true
	case o.isBot:
		return false
	case o.isTop:
		return true
	case v.isTop:
		return false
	default:
		return v.v == o.v
	}
}

func (v Val) Join(other Value) Value {
	o := other.(Val)
	switch {
	case v.isBot:
		return o
	case o.isBot:
		return v
	case v.isTop || o.isTop:
		return Val{bits: v.bits, isTop: true, tnt: v.tnt.Join(o.tnt)}
	case v.v == o.v:
		return Val{bits: v.bits, v: v.v, tnt: v.tnt.Join(o.tnt), region: v.region, hasRegion: v.hasRegion && o.hasRegion && v.region == o.region}
	default:
		return Val{bits: v.bits, isTop: true, tnt: v.tnt.Join(o.tnt)}
	}
}

func (v Val) Meet(other Value) Value {
	o := other.(Val)
	switch {
	case v.isBot || o.isBot:
		return Val{bits: v.bits, isBot: true}
	case v.isTop:
		return o
	case o.isTop:
		return v
	case v.v == o.v:
		return Val{bits: v.bits, v: v.v, tnt: v.tnt.Meet(o.tnt), region: v.region, hasRegion: v.hasRegion}
	default:
		return Val{bits: v.bits, isBot: true}
	}
}

// Widen is join on this flat lattice: every ascending chain has height at
// most 2 (singleton -> Top), so widening needs no extra approximation to
// guarantee stabilisation.
func (v Val) Widen(other Value) Value {
	return v.Join(other)
}

func (v Val) ToZ() (*big.Int, error) {
	if v.isBot || v.isTop {
		return nil, fmt.Errorf("%w: value is not a singleton", domainerr.Concretization)
	}
	return new(big.Int).SetUint64(v.v), nil
}

func (v Val) ToChar() (byte, error) {
	z, err := v.ToZ()
	if err != nil {
		return 0, err
	}
	return byte(z.Uint64()), nil
}

func (v Val) ToString() (string, taint.Set, error) {
	z, err := v.ToZ()
	if err != nil {
		return "", taint.Set{}, err
	}
	return z.String(), v.tnt, nil
}

func (v Val) ToStrings() ([]string, taint.Set, error) {
	s, t, err := v.ToString()
	if err != nil {
		return nil, taint.Set{}, err
	}
	return []string{s}, t, nil
}

func (v Val) ToAddresses() ([]mach.Address, error) {
	if v.isBot {
		return nil, nil
	}
	if v.isTop {
		return nil, fmt.Errorf("%w: address set is unbounded", domainerr.EnumFailure)
	}
	return []mach.Address{mach.Address(v.v)}, nil
}

func (v Val) mask() uint64 {
	if v.bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(v.bits)) - 1
}

func (v Val) signExtend(x uint64) int64 {
	if v.bits >= 64 {
		return int64(x)
	}
	signBit := uint64(1) << uint(v.bits-1)
	if x&signBit != 0 {
		return int64(x | ^v.mask())
	}
	return int64(x)
}

func (v Val) Binary(op BinOp, other Value) Value {
	o := other.(Val)
	bits := v.bits
	t := v.tnt.Join(o.tnt)
	if v.isBot || o.isBot {
		return Val{bits: bits, isBot: true}
	}
	if v.isTop || o.isTop {
		return Val{bits: bits, isTop: true, tnt: t}
	}

	a, b := v.v, o.v
	var r uint64
	switch op {
	case Add:
		r = a + b
	case Sub:
		r = a - b
	case Mul:
		r = a * b
	case UDiv:
		if b == 0 {
			return Val{bits: bits, isBot: true}
		}
		r = a / b
	case SDiv:
		if b == 0 {
			return Val{bits: bits, isBot: true}
		}
		r = uint64(v.signExtend(a) / v.signExtend(b))
	case UMod:
		if b == 0 {
			return Val{bits: bits, isBot: true}
		}
		r = a % b
	case SMod:
		if b == 0 {
			return Val{bits: bits, isBot: true}
		}
		r = uint64(v.signExtend(a) % v.signExtend(b))
	case And:
		r = a & b
	case Or:
		r = a | b
	case Xor:
		r = a ^ b
	case Shl:
		r = a << (b % uint64(bits))
	case Shr:
		r = a >> (b % uint64(bits))
	case Sar:
		r = uint64(v.signExtend(a) >> (b % uint64(bits)))
	default:
		panic("cellval: unknown binary operator")
	}
	return Val{bits: bits, v: r & v.mask(), tnt: t}
}

func (v Val) Unary(op UnOp) Value {
	if v.isBot {
		return v
	}
	if v.isTop {
		return v
	}
	var r uint64
	switch op {
	case Neg:
		r = (^v.v + 1) & v.mask()
	case Not:
		r = (^v.v) & v.mask()
	default:
		panic("cellval: unknown unary operator")
	}
	return Val{bits: v.bits, v: r, tnt: v.tnt}
}

func (v Val) Compare(cmp Cmp, other Value) bool {
	o := other.(Val)
	if v.isBot || o.isBot {
		return false
	}
	if v.isTop || o.isTop {
		// Neither side is known precisely: conservatively report the
		// comparison as possibly true so callers don't discard a
		// feasible branch.
		return true
	}
	switch cmp {
	case EQ:
		return v.v == o.v
	case NEQ:
		return v.v != o.v
	case LTU:
		return v.v < o.v
	case LEU:
		return v.v <= o.v
	case GTU:
		return v.v > o.v
	case GEU:
		return v.v >= o.v
	case LTS:
		return v.signExtend(v.v) < v.signExtend(o.v)
	case LES:
		return v.signExtend(v.v) <= v.signExtend(o.v)
	case GTS:
		return v.signExtend(v.v) > v.signExtend(o.v)
	case GES:
		return v.signExtend(v.v) >= v.signExtend(o.v)
	default:
		panic("cellval: unknown comparator")
	}
}

func (v Val) Extract(lo, hi int) Value {
	width := hi - lo + 1
	if v.isBot {
		return Val{bits: width, isBot: true}
	}
	if v.isTop {
		return Val{bits: width, isTop: true, tnt: v.tnt.Extract(lo, hi)}
	}
	shifted := v.v >> uint(lo)
	out := Val{bits: width, tnt: v.tnt.Extract(lo, hi)}
	out.v = shifted & out.mask()
	return out
}

func (v Val) Combine(other Value, lo, hi int) Value {
	o := other.(Val)
	if v.isBot || o.isBot {
		return Val{bits: v.bits, isBot: true}
	}
	if v.isTop || o.isTop {
		// A precise splice of a known slice into a partially-unknown
		// register isn't representable on this flat lattice; fall back
		// to Top rather than fabricate precision.
		return Val{bits: v.bits, isTop: true, tnt: v.tnt.Join(o.tnt)}
	}
	width := hi - lo + 1
	sliceMask := ((uint64(1) << uint(width)) - 1) << uint(lo)
	r := (v.v &^ sliceMask) | ((o.v << uint(lo)) & sliceMask)
	return Val{bits: v.bits, v: r & v.mask(), tnt: v.tnt, region: v.region, hasRegion: v.hasRegion}
}

// Forget drops the value but keeps the taint, per spec.md §4.3's forget
// rule for the general case: every cell becomes Top, and only
// forget(v)-on-a-specific-cell preserves its taint through this call.
func (v Val) Forget() Value {
	return Val{bits: v.bits, isTop: true, tnt: v.tnt}
}

func (v Val) Untaint() Value {
	v.tnt = taint.None(v.bits)
	return v
}

func (v Val) Taint() Value {
	v.tnt = taint.All(v.bits)
	return v
}

func (v Val) SpanTaint(t taint.Set) Value {
	v.tnt = v.tnt.Join(t)
	return v
}

func (v Val) IsTainted() bool {
	return v.tnt.IsTainted()
}

func (v Val) MinimalTaint() taint.Set {
	return v.tnt.Span()
}

// Region returns the configured memory-region tag of v, if any was
// attached by of_config. Most Value instances won't expose region
// information at all (it's a concrete-with-taint specific affordance), so
// the second return reports whether the tag is meaningful.
func (v Val) Region() (config.Region, bool) {
	return v.region, v.hasRegion
}

// TaintSet returns the value's raw per-bit taint set. Like Region, this is
// a concrete-instance-specific affordance beyond the Value interface's
// IsTainted/MinimalTaint summary, needed by callers that round-trip a Val
// exactly (e.g. the CLI's session snapshot format).
func (v Val) TaintSet() taint.Set {
	return v.tnt
}

// IsTop reports whether v is the unconstrained top element. Exposed for
// the same reason as TaintSet: callers outside this package that hold a
// cellval.Value can't otherwise tell Top apart from a singleton without
// a failing ToZ call.
func (v Val) IsTop() bool {
	return v.isTop
}
