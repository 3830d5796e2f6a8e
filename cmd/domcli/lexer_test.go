// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "testing"

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.kind
	}
	return out
}

func TestLexNumberWithWidthSuffix(t *testing.T) {
	toks, err := lex("0x10@32")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(toks) != 2 || toks[0].kind != tokNum || toks[0].text != "0x10@32" {
		t.Fatalf("lex(%q) = %+v, want a single tokNum \"0x10@32\"", "0x10@32", toks)
	}
}

func TestLexMemoryBracketsDoNotCollideWithWidthSuffix(t *testing.T) {
	toks, err := lex("[0x1000:32]")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []string{"[", "0x1000", ":", "32", "]", ""}
	if len(toks) != len(want) {
		t.Fatalf("lex(%q) produced %d tokens, want %d: %+v", "[0x1000:32]", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].text != w {
			t.Fatalf("token %d = %q, want %q", i, toks[i].text, w)
		}
	}
}

func TestLexRegisterSliceBrackets(t *testing.T) {
	toks, err := lex("%eax[0:7]")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []struct {
		kind tokenKind
		text string
	}{
		{tokReg, "eax"}, {tokPunct, "["}, {tokNum, "0"}, {tokPunct, ":"}, {tokNum, "7"}, {tokPunct, "]"}, {tokEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("lex(%q) produced %d tokens, want %d: %+v", "%eax[0:7]", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].kind != w.kind || toks[i].text != w.text {
			t.Fatalf("token %d = %+v, want {%v %q}", i, toks[i], w.kind, w.text)
		}
	}
}

func TestLexModuloIsAWordNotAPercentOperator(t *testing.T) {
	toks, err := lex("(%eax umod %ebx)")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []struct {
		kind tokenKind
		text string
	}{
		{tokPunct, "("}, {tokReg, "eax"}, {tokIdent, "umod"}, {tokReg, "ebx"}, {tokPunct, ")"}, {tokEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("lex(%q) produced %d tokens, want %d: %+v", "(%eax umod %ebx)", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].kind != w.kind || toks[i].text != w.text {
			t.Fatalf("token %d = %+v, want {%v %q}", i, toks[i], w.kind, w.text)
		}
	}
}

func TestLexSignedComparisonSuffix(t *testing.T) {
	toks, err := lex("<=u")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	want := []string{"<=", "u", ""}
	if len(toks) != len(want) {
		t.Fatalf("lex(%q) produced %d tokens, want %d: %+v", "<=u", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].text != w {
			t.Fatalf("token %d = %q, want %q", i, toks[i].text, w)
		}
	}
}

func TestLexEmptyRegisterNameFails(t *testing.T) {
	if _, err := lex("%"); err == nil {
		t.Fatalf("lexing a bare '%%' with no register name must fail")
	}
}

func TestLexUnknownCharacterFails(t *testing.T) {
	if _, err := lex("$"); err == nil {
		t.Fatalf("lexing an unsupported character must fail")
	}
}
