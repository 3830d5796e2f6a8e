// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package taint

import "testing"

func TestNoneAndAll(t *testing.T) {
	n := None(8)
	if n.IsTainted() {
		t.Fatalf("None(8).IsTainted() = true, want false")
	}
	a := All(8)
	if !a.IsTainted() {
		t.Fatalf("All(8).IsTainted() = false, want true")
	}
	if a.Mask() != 0xff {
		t.Fatalf("All(8).Mask() = %#x, want 0xff", a.Mask())
	}
}

func TestJoinMeet(t *testing.T) {
	a := FromMask(0x0f, 8)
	b := FromMask(0xf0, 8)
	if got := a.Join(b).Mask(); got != 0xff {
		t.Fatalf("Join = %#x, want 0xff", got)
	}
	if got := a.Meet(b).Mask(); got != 0 {
		t.Fatalf("Meet = %#x, want 0", got)
	}
	c := FromMask(0x0c, 8)
	if got := a.Meet(c).Mask(); got != 0x0c {
		t.Fatalf("Meet = %#x, want 0x0c", got)
	}
}

func TestWidenIsJoin(t *testing.T) {
	a := FromMask(0x01, 8)
	b := FromMask(0x80, 8)
	if a.Widen(b) != a.Join(b) {
		t.Fatalf("Widen must equal Join on this lattice")
	}
}

func TestSpan(t *testing.T) {
	s := FromMask(0b0110, 8)
	got := s.Span()
	if got.Mask() != 0b0010 {
		t.Fatalf("Span() = %#b, want the lowest set bit 0b0010", got.Mask())
	}
	empty := None(8).Span()
	if empty.IsTainted() {
		t.Fatalf("Span() of an untainted set must stay untainted")
	}
}

func TestExtract(t *testing.T) {
	s := FromMask(0b1010_0000, 8)
	got := s.Extract(4, 7)
	if got.Mask() != 0b1010 {
		t.Fatalf("Extract(4,7) = %#b, want 0b1010", got.Mask())
	}
	if got.Width() != 4 {
		t.Fatalf("Extract(4,7).Width() = %d, want 4", got.Width())
	}
}

func TestFromMaskTruncatesToWidth(t *testing.T) {
	s := FromMask(0xffff, 4)
	if s.Mask() != 0x0f {
		t.Fatalf("FromMask truncation = %#x, want 0x0f", s.Mask())
	}
}
