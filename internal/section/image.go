// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Image is the mmap'd raw bytes of the analyzed binary. It is read-only
// and, per spec.md §5, may be safely shared across domain states; only
// init() installs it, and the mmap handle is released at teardown.
//
// Grounded on internal/core/process.go's mapFile/mmap-and-trim sequence,
// ported from a raw syscall.Mmap call to golang.org/x/sys/unix.Mmap (the
// modern equivalent the teacher tree already imports, in
// internal/gocore's test files, for other purposes).
type Image struct {
	data []byte
}

// OpenImage mmaps path read-only for the lifetime of the returned Image.
func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("section: open image: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("section: stat image: %w", err)
	}
	size := fi.Size()
	if size == 0 {
		return &Image{data: nil}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("section: mmap image: %w", err)
	}
	return &Image{data: data}, nil
}

// Close releases the mmap handle. Callers must not use the Image, or any
// Value derived from a read through it, afterwards.
func (img *Image) Close() error {
	if img == nil || img.data == nil {
		return nil
	}
	data := img.data
	img.data = nil
	return unix.Munmap(data)
}

// ByteAt returns the raw image byte at file offset off.
//
// An out-of-range offset here is a programmer error (it means the section
// table itself is internally inconsistent, since ReadFromSections already
// checked offset < RawSize), so it's a fatal abort, not a returned error,
// matching spec.md §7's treatment of programmer-only invariants.
func (img *Image) ByteAt(off int64) (byte, error) {
	if img == nil || img.data == nil {
		panic("section: read from an unmapped image")
	}
	if off < 0 || off >= int64(len(img.data)) {
		panic(fmt.Sprintf("section: offset %d out of range for image of size %d", off, len(img.data)))
	}
	return img.data[off], nil
}
