// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/taintcore/undom/internal/mach"
)

// registers is the fixed table of machine registers domcli knows how to
// name from the command line and the REPL. The decoder that would derive
// this table from an actual instruction set is out of scope for the
// domain core (mach.Register doc comment); this is the minimal concrete
// instance needed to drive the CLI end to end.
var registers = buildRegisters()

func buildRegisters() map[string]mach.Register {
	m := map[string]mach.Register{}
	add := func(name string, bits int, sp bool) {
		m[name] = mach.Register{Name: name, Bits: bits, StackPointer: sp}
	}
	for _, r := range []struct {
		name string
		bits int
		sp   bool
	}{
		{"eax", 32, false}, {"ebx", 32, false}, {"ecx", 32, false}, {"edx", 32, false},
		{"esi", 32, false}, {"edi", 32, false}, {"ebp", 32, false}, {"esp", 32, true},
		{"ax", 16, false}, {"bx", 16, false}, {"cx", 16, false}, {"dx", 16, false},
		{"al", 8, false}, {"bl", 8, false}, {"cl", 8, false}, {"dl", 8, false},
		{"rax", 64, false}, {"rbx", 64, false}, {"rcx", 64, false}, {"rdx", 64, false},
		{"rsp", 64, true}, {"rbp", 64, false},
	} {
		add(r.name, r.bits, r.sp)
	}
	return m
}

func lookupRegister(name string) (mach.Register, error) {
	r, ok := registers[name]
	if !ok {
		return mach.Register{}, fmt.Errorf("unknown register %q", name)
	}
	return r, nil
}
