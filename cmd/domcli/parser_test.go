// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/domain"
)

func TestParseConstDefaultWidth(t *testing.T) {
	e, err := parseExprString("5", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	c, ok := e.(domain.Const)
	if !ok {
		t.Fatalf("parseExprString(%q) = %T, want domain.Const", "5", e)
	}
	if c.W.Value != 5 || c.W.Bits != 32 {
		t.Fatalf("const = %+v, want value 5, width 32", c.W)
	}
}

func TestParseConstExplicitWidth(t *testing.T) {
	e, err := parseExprString("0x10@16", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	c := e.(domain.Const)
	if c.W.Value != 0x10 || c.W.Bits != 16 {
		t.Fatalf("const = %+v, want value 0x10, width 16", c.W)
	}
}

func TestParseRegisterReference(t *testing.T) {
	e, err := parseExprString("%eax", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	reg, ok := e.(domain.LvalReg)
	if !ok || reg.Reg.Name != "eax" {
		t.Fatalf("parseExprString(%q) = %+v, want LvalReg eax", "%eax", e)
	}
}

func TestParseRegisterSlice(t *testing.T) {
	e, err := parseExprString("%eax[0:7]", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	slice, ok := e.(domain.LvalRegSlice)
	if !ok {
		t.Fatalf("parseExprString(%q) = %T, want LvalRegSlice", "%eax[0:7]", e)
	}
	if slice.Reg.Name != "eax" || slice.Lo != 0 || slice.Hi != 7 {
		t.Fatalf("slice = %+v, want eax[0:7]", slice)
	}
}

func TestParseMemDereference(t *testing.T) {
	e, err := parseExprString("[0x1000:32]", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	mem, ok := e.(domain.LvalMem)
	if !ok || mem.Bits != 32 {
		t.Fatalf("parseExprString(%q) = %+v, want LvalMem of 32 bits", "[0x1000:32]", e)
	}
	c, ok := mem.Addr.(domain.Const)
	if !ok || c.W.Value != 0x1000 {
		t.Fatalf("mem.Addr = %+v, want const 0x1000", mem.Addr)
	}
}

func TestParseBinExprModuloWords(t *testing.T) {
	e, err := parseExprString("(%eax umod %ebx)", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	bin, ok := e.(domain.BinExpr)
	if !ok || bin.Op != cellval.UMod {
		t.Fatalf("parseExprString(%q) = %+v, want BinExpr(UMod)", "(%eax umod %ebx)", e)
	}
}

func TestParseTernaryVsBinExprDisambiguation(t *testing.T) {
	e, err := parseExprString("((%eax == 1) ? 2 : 3)", 32)
	if err != nil {
		t.Fatalf("parseExprString: %v", err)
	}
	tern, ok := e.(domain.TernExpr)
	if !ok {
		t.Fatalf("parseExprString(%q) = %T, want TernExpr", "((%eax == 1) ? 2 : 3)", e)
	}
	cmp, ok := tern.C.(domain.CmpExpr)
	if !ok || cmp.Cmp != cellval.EQ {
		t.Fatalf("ternary condition = %+v, want CmpExpr(EQ)", tern.C)
	}
}

func TestParseSignedUnsignedComparisons(t *testing.T) {
	cases := []struct {
		expr string
		want cellval.Cmp
	}{
		{"(%eax <u %ebx)", cellval.LTU},
		{"(%eax <=u %ebx)", cellval.LEU},
		{"(%eax >u %ebx)", cellval.GTU},
		{"(%eax >=u %ebx)", cellval.GEU},
		{"(%eax <s %ebx)", cellval.LTS},
		{"(%eax <=s %ebx)", cellval.LES},
		{"(%eax >s %ebx)", cellval.GTS},
		{"(%eax >=s %ebx)", cellval.GES},
		{"(%eax == %ebx)", cellval.EQ},
		{"(%eax != %ebx)", cellval.NEQ},
	}
	for _, c := range cases {
		b, err := parseBoolString(c.expr, 32)
		if err != nil {
			t.Fatalf("parseBoolString(%q): %v", c.expr, err)
		}
		cmp, ok := b.(domain.CmpExpr)
		if !ok || cmp.Cmp != c.want {
			t.Fatalf("parseBoolString(%q) = %+v, want CmpExpr(%v)", c.expr, b, c.want)
		}
	}
}

func TestParseLogicalConnectives(t *testing.T) {
	b, err := parseBoolString("((%eax == 1) && (%ebx == 2))", 32)
	if err != nil {
		t.Fatalf("parseBoolString: %v", err)
	}
	bin, ok := b.(domain.BBin)
	if !ok || bin.Op != domain.LogAnd {
		t.Fatalf("parseBoolString = %+v, want BBin(LogAnd)", b)
	}
}

func TestParseUnknownRegisterFails(t *testing.T) {
	if _, err := parseExprString("%notareg", 32); err == nil {
		t.Fatalf("parsing an unknown register name must fail")
	}
}

func TestParseTrailingInputFails(t *testing.T) {
	if _, err := parseExprString("5 5", 32); err == nil {
		t.Fatalf("trailing input after a complete expression must fail")
	}
}
