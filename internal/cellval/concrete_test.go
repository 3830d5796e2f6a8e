// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cellval

import (
	"math/big"
	"testing"

	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/taint"
)

var f = ConcreteFactory{}

func w(v uint64, bits int) Value { return f.OfWord(mach.NewWord(v, bits)) }

func TestIsSubsetReflexive(t *testing.T) {
	vals := []Value{f.Bot(8), f.Top(8), w(5, 8)}
	for _, v := range vals {
		if !v.IsSubset(v) {
			t.Fatalf("%v is not a subset of itself", v)
		}
	}
}

func TestIsSubsetBottomAbsorbing(t *testing.T) {
	bot := f.Bot(8)
	if !bot.IsSubset(w(5, 8)) {
		t.Fatalf("Bot must be a subset of every value")
	}
	if !bot.IsSubset(f.Top(8)) {
		t.Fatalf("Bot must be a subset of Top")
	}
	if w(5, 8).IsSubset(bot) {
		t.Fatalf("a singleton must not be a subset of Bot")
	}
}

func TestJoinBounds(t *testing.T) {
	a, b := w(3, 8), w(5, 8)
	j := a.Join(b)
	if !a.IsSubset(j) || !b.IsSubset(j) {
		t.Fatalf("join %v must be a superset of both operands", j)
	}
	if same := a.Join(a); !same.IsSubset(a) || !a.IsSubset(same) {
		t.Fatalf("join of equal values must equal the value")
	}
}

func TestMeetBounds(t *testing.T) {
	a, b := w(3, 8), w(3, 8)
	m := a.Meet(b)
	if !m.IsSubset(a) {
		t.Fatalf("meet must be a subset of its operands")
	}
	distinct := a.Meet(w(4, 8))
	if !distinct.IsBot() {
		t.Fatalf("meet of distinct singletons must be Bot, got %v", distinct)
	}
}

func TestWidenStabilizesImmediately(t *testing.T) {
	a, b := w(3, 8), w(5, 8)
	w1 := a.Widen(b)
	w2 := w1.Widen(b)
	if !w1.IsSubset(w2) || !w2.IsSubset(w1) {
		t.Fatalf("a second widen with the same operand must be a no-op once stabilized")
	}
}

func TestBinaryArithmetic(t *testing.T) {
	cases := []struct {
		op   BinOp
		a, b uint64
		want uint64
	}{
		{Add, 1, 2, 3},
		{Sub, 5, 2, 3},
		{Mul, 3, 4, 12},
		{UDiv, 7, 2, 3},
		{And, 0xf0, 0x0f, 0},
		{Or, 0xf0, 0x0f, 0xff},
		{Xor, 0xff, 0x0f, 0xf0},
		{Shl, 1, 4, 0x10},
		{Shr, 0x80, 4, 0x08},
	}
	for _, c := range cases {
		got := w(c.a, 8).Binary(c.op, w(c.b, 8))
		z, err := got.ToZ()
		if err != nil {
			t.Fatalf("op %v: ToZ: %v", c.op, err)
		}
		if z.Uint64() != c.want {
			t.Fatalf("op %v(%d,%d) = %d, want %d", c.op, c.a, c.b, z.Uint64(), c.want)
		}
	}
}

func TestDivisionByZeroIsBot(t *testing.T) {
	got := w(7, 8).Binary(UDiv, w(0, 8))
	if !got.IsBot() {
		t.Fatalf("division by zero must yield Bot")
	}
}

func TestCompareSigned(t *testing.T) {
	negOne := w(0xff, 8) // -1 as an 8-bit two's complement value
	zero := w(0, 8)
	if !negOne.Compare(LTS, zero) {
		t.Fatalf("0xff (as signed -1) must compare LTS 0")
	}
	if negOne.Compare(LTU, zero) {
		t.Fatalf("0xff must not compare LTU 0 (it is the largest unsigned 8-bit value)")
	}
}

func TestCompareTopIsConservativelyTrue(t *testing.T) {
	if !f.Top(8).Compare(EQ, w(1, 8)) {
		t.Fatalf("comparisons touching Top must not be discarded as infeasible")
	}
}

func TestExtractAndCombine(t *testing.T) {
	v := w(0x1234, 16)
	lo := v.Extract(0, 7)
	z, _ := lo.ToZ()
	if z.Uint64() != 0x34 {
		t.Fatalf("Extract(0,7) = %#x, want 0x34", z.Uint64())
	}
	combined := v.Combine(w(0xab, 8), 0, 7)
	z2, _ := combined.ToZ()
	if z2.Uint64() != 0x12ab {
		t.Fatalf("Combine = %#x, want 0x12ab", z2.Uint64())
	}
}

func TestForgetKeepsTaintDropsValue(t *testing.T) {
	v := w(5, 8).Taint()
	forgotten := v.Forget()
	if !forgotten.IsTainted() {
		t.Fatalf("Forget must preserve taint")
	}
	if _, err := forgotten.ToZ(); err == nil {
		t.Fatalf("Forget must drop the concrete value to Top")
	}
}

func TestSpanTaintAndMinimalTaint(t *testing.T) {
	v := w(5, 8)
	if v.IsTainted() {
		t.Fatalf("fresh OfWord value must be untainted")
	}
	tainted := v.SpanTaint(taint.FromMask(0b0110, 8))
	if !tainted.IsTainted() {
		t.Fatalf("SpanTaint must mark the value tainted")
	}
	if tainted.MinimalTaint().Mask() != 0b0010 {
		t.Fatalf("MinimalTaint = %#b, want the lowest tainted bit 0b0010", tainted.MinimalTaint().Mask())
	}
}

func TestRegionRoundTrip(t *testing.T) {
	v, err := f.OfConfig(config.Stack, config.ConcreteContent(big.NewInt(4)), 32)
	if err != nil {
		t.Fatalf("OfConfig: %v", err)
	}
	cv := v.(Val)
	region, ok := cv.Region()
	if !ok || region != config.Stack {
		t.Fatalf("Region() = (%v, %v), want (Stack, true)", region, ok)
	}
}

func TestOfConfigBytesLittleEndianPacking(t *testing.T) {
	v, err := f.OfConfig(config.Global, config.BytesContent("\x01\x02"), 16)
	if err != nil {
		t.Fatalf("OfConfig: %v", err)
	}
	z, err := v.ToZ()
	if err != nil {
		t.Fatalf("ToZ: %v", err)
	}
	if z.Uint64() != 0x0201 {
		t.Fatalf("packed bytes = %#x, want 0x0201", z.Uint64())
	}
}

func TestConcatAndFromPosition(t *testing.T) {
	lo := w(0x12, 8)
	hi := w(0x34, 8)
	whole := f.Concat([]Value{lo, hi})
	z, _ := whole.ToZ()
	if z.Uint64() != 0x3412 {
		t.Fatalf("Concat([lo,hi]) = %#x, want 0x3412 (lo at bit 0)", z.Uint64())
	}
	back := f.FromPosition(whole, 0, 8)
	z2, _ := back.ToZ()
	if z2.Uint64() != 0x12 {
		t.Fatalf("FromPosition(0,8) = %#x, want 0x12", z2.Uint64())
	}
}

func TestOfRepeatVal(t *testing.T) {
	pattern := w(0xab, 8)
	rep := f.OfRepeatVal(pattern, 8, 4)
	z, err := rep.ToZ()
	if err != nil {
		t.Fatalf("ToZ: %v", err)
	}
	if z.Uint64() != 0xabababab {
		t.Fatalf("OfRepeatVal = %#x, want 0xabababab", z.Uint64())
	}
}
