// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"testing"

	"github.com/taintcore/undom/internal/mach"
)

func TestWriteThenReadSingleByte(t *testing.T) {
	eng := testEngine()
	s := Init()
	s, err := eng.WriteInMemory(s, mach.Address(0x100), word(0xab, 8), 8, true, false)
	if err != nil {
		t.Fatalf("WriteInMemory: %v", err)
	}
	v, err := eng.GetMemValue(s.Env(), mach.Address(0x100), 8, false)
	if err != nil {
		t.Fatalf("GetMemValue: %v", err)
	}
	z, _ := v.ToZ()
	if z.Uint64() != 0xab {
		t.Fatalf("read back = %#x, want 0xab", z.Uint64())
	}
}

func TestWriteThenReadLittleEndianMultiByte(t *testing.T) {
	eng := testEngine()
	s := Init()
	s, err := eng.WriteInMemory(s, mach.Address(0x200), word(0x1234, 16), 16, true, false)
	if err != nil {
		t.Fatalf("WriteInMemory: %v", err)
	}
	lo, _ := eng.GetMemValue(s.Env(), mach.Address(0x200), 8, false)
	hi, _ := eng.GetMemValue(s.Env(), mach.Address(0x201), 8, false)
	zl, _ := lo.ToZ()
	zh, _ := hi.ToZ()
	if zl.Uint64() != 0x34 || zh.Uint64() != 0x12 {
		t.Fatalf("little-endian bytes = %#x, %#x, want 0x34, 0x12", zl.Uint64(), zh.Uint64())
	}
	whole, err := eng.GetMemValue(s.Env(), mach.Address(0x200), 16, false)
	if err != nil {
		t.Fatalf("GetMemValue: %v", err)
	}
	zw, _ := whole.ToZ()
	if zw.Uint64() != 0x1234 {
		t.Fatalf("round-trip 16-bit read = %#x, want 0x1234", zw.Uint64())
	}
}

func TestWriteThenReadBigEndian(t *testing.T) {
	eng := testEngine()
	s := Init()
	s, err := eng.WriteInMemory(s, mach.Address(0x300), word(0x1234, 16), 16, true, true)
	if err != nil {
		t.Fatalf("WriteInMemory: %v", err)
	}
	hi, _ := eng.GetMemValue(s.Env(), mach.Address(0x300), 8, false)
	lo, _ := eng.GetMemValue(s.Env(), mach.Address(0x301), 8, false)
	zh, _ := hi.ToZ()
	zl, _ := lo.ToZ()
	if zh.Uint64() != 0x12 || zl.Uint64() != 0x34 {
		t.Fatalf("big-endian bytes = %#x, %#x, want 0x12, 0x34", zh.Uint64(), zl.Uint64())
	}
}

func TestWeakWriteJoinsExisting(t *testing.T) {
	eng := testEngine()
	s := Init()
	s, err := eng.WriteInMemory(s, mach.Address(0x10), word(1, 8), 8, true, false)
	if err != nil {
		t.Fatalf("strong write: %v", err)
	}
	s, err = eng.WriteInMemory(s, mach.Address(0x10), word(2, 8), 8, false, false)
	if err != nil {
		t.Fatalf("weak write: %v", err)
	}
	v, _ := eng.GetMemValue(s.Env(), mach.Address(0x10), 8, false)
	if _, err := v.ToZ(); err == nil {
		t.Fatalf("weak write joining two distinct concrete bytes must yield Top, not a singleton")
	}
}

func TestWeakWriteToUnsetAddressFails(t *testing.T) {
	eng := testEngine()
	s := Init()
	_, err := eng.WriteInMemory(s, mach.Address(0x10), word(1, 8), 8, false, false)
	if err == nil {
		t.Fatalf("a weak write to a never-written address must fail")
	}
}

func TestReadOfUnsetAddressIsBot(t *testing.T) {
	eng := testEngine()
	s := Init()
	v, err := eng.GetMemValue(s.Env(), mach.Address(0xdead), 8, false)
	if err != nil {
		t.Fatalf("GetMemValue: %v", err)
	}
	if !v.IsBot() {
		t.Fatalf("reading memory with no section backing and no prior write must be Bot")
	}
}

func TestWriteRepeatByteInMem(t *testing.T) {
	eng := testEngine()
	s := Init()
	s, err := eng.WriteRepeatByteInMem(s, mach.Address(0x1000), word(0, 8), 16)
	if err != nil {
		t.Fatalf("WriteRepeatByteInMem: %v", err)
	}
	for i := 0; i < 16; i++ {
		v, _ := eng.GetMemValue(s.Env(), mach.Address(0x1000).Add(int64(i)), 8, false)
		z, _ := v.ToZ()
		if z.Uint64() != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, z.Uint64())
		}
	}
}

// TestWriteSplitsEnclosingInterval exercises the interval-compression
// split-on-write path: writing into the middle of an existing MemItv must
// leave the untouched flanks behind as their own intervals.
func TestWriteSplitsEnclosingInterval(t *testing.T) {
	eng := testEngine()
	s := Init()
	s, err := eng.WriteRepeatByteInMem(s, mach.Address(0x1000), word(0xff, 8), 8)
	if err != nil {
		t.Fatalf("WriteRepeatByteInMem: %v", err)
	}
	s, err = eng.WriteInMemory(s, mach.Address(0x1004), word(0x11, 8), 8, true, false)
	if err != nil {
		t.Fatalf("WriteInMemory: %v", err)
	}
	before, _ := eng.GetMemValue(s.Env(), mach.Address(0x1000), 8, false)
	mid, _ := eng.GetMemValue(s.Env(), mach.Address(0x1004), 8, false)
	after, _ := eng.GetMemValue(s.Env(), mach.Address(0x1007), 8, false)
	zb, _ := before.ToZ()
	zm, _ := mid.ToZ()
	za, _ := after.ToZ()
	if zb.Uint64() != 0xff {
		t.Fatalf("byte before the split = %#x, want 0xff", zb.Uint64())
	}
	if zm.Uint64() != 0x11 {
		t.Fatalf("byte at the split = %#x, want 0x11", zm.Uint64())
	}
	if za.Uint64() != 0xff {
		t.Fatalf("byte after the split = %#x, want 0xff", za.Uint64())
	}
}
