// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"errors"
	"os"
	"testing"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
)

var factory = cellval.ConcreteFactory{}

func writeTempImage(t *testing.T, data []byte) *Image {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "image")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	img, err := OpenImage(f.Name())
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	t.Cleanup(func() { img.Close() })
	return img
}

func TestReadFromSectionsRawByte(t *testing.T) {
	img := writeTempImage(t, []byte{0xde, 0xad, 0xbe, 0xef})
	m := NewMap([]Section{
		{Name: ".text", VirtAddr: mach.Address(0x1000), VirtSize: 4, RawAddr: 0, RawSize: 4},
	})
	v, err := ReadFromSections(m, img, factory, mach.Address(0x1001))
	if err != nil {
		t.Fatalf("ReadFromSections: %v", err)
	}
	z, err := v.ToZ()
	if err != nil {
		t.Fatalf("ToZ: %v", err)
	}
	if z.Uint64() != 0xad {
		t.Fatalf("byte at 0x1001 = %#x, want 0xad", z.Uint64())
	}
}

func TestReadFromSectionsBssIsTop(t *testing.T) {
	img := writeTempImage(t, []byte{0x01, 0x02})
	m := NewMap([]Section{
		// VirtSize extends well past RawSize: a bss-style section whose
		// tail is zero-filled at load time rather than stored in the file.
		{Name: ".bss", VirtAddr: mach.Address(0x2000), VirtSize: 16, RawAddr: 0, RawSize: 2},
	})
	v, err := ReadFromSections(m, img, factory, mach.Address(0x2000).Add(10))
	if err != nil {
		t.Fatalf("ReadFromSections: %v", err)
	}
	if _, err := v.ToZ(); err == nil {
		t.Fatalf("a read past RawSize must yield Top, not a concrete byte")
	}
}

func TestReadFromSectionsNoSectionIsNotFound(t *testing.T) {
	img := writeTempImage(t, []byte{0x01})
	m := NewMap([]Section{
		{Name: ".text", VirtAddr: mach.Address(0x1000), VirtSize: 1, RawAddr: 0, RawSize: 1},
	})
	_, err := ReadFromSections(m, img, factory, mach.Address(0x9999))
	if !errors.Is(err, domainerr.NotFound) {
		t.Fatalf("ReadFromSections outside every section: err = %v, want domainerr.NotFound", err)
	}
}

func TestReadFromSectionsOverlappingIsNotFound(t *testing.T) {
	img := writeTempImage(t, []byte{0x01, 0x02})
	m := NewMap([]Section{
		{Name: ".a", VirtAddr: mach.Address(0x1000), VirtSize: 4, RawAddr: 0, RawSize: 2},
		{Name: ".b", VirtAddr: mach.Address(0x1002), VirtSize: 4, RawAddr: 0, RawSize: 2},
	})
	// 0x1002 falls within both .a's [0x1000,0x1004) and .b's [0x1002,0x1006).
	_, err := ReadFromSections(m, img, factory, mach.Address(0x1002))
	if !errors.Is(err, domainerr.NotFound) {
		t.Fatalf("ambiguous overlap: err = %v, want domainerr.NotFound", err)
	}
}

func TestImageByteAtOutOfRangePanics(t *testing.T) {
	img := writeTempImage(t, []byte{0x01})
	defer func() {
		if recover() == nil {
			t.Fatalf("ByteAt out of range should have panicked")
		}
	}()
	img.ByteAt(5)
}

func TestImageCloseThenByteAtPanics(t *testing.T) {
	img := writeTempImage(t, []byte{0x01})
	if err := img.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("ByteAt after Close should have panicked")
		}
	}()
	img.ByteAt(0)
}

func TestOpenImageEmptyFile(t *testing.T) {
	img := writeTempImage(t, nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("ByteAt on an empty image should have panicked")
		}
	}()
	img.ByteAt(0)
}

func TestMapSections(t *testing.T) {
	secs := []Section{
		{Name: ".text", VirtAddr: mach.Address(0x1000), VirtSize: 4, RawAddr: 0, RawSize: 4},
	}
	m := NewMap(secs)
	got := m.Sections()
	if len(got) != 1 || got[0].Name != ".text" {
		t.Fatalf("Sections() = %v, want a single .text entry", got)
	}
	// Sections() must return a defensive copy.
	got[0].Name = "mutated"
	if m.Sections()[0].Name != ".text" {
		t.Fatalf("mutating the slice returned by Sections() must not affect the Map")
	}
}
