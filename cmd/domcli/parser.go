// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/domain"
	"github.com/taintcore/undom/internal/mach"
)

// parser turns the small textual expression language domcli accepts into
// domain.Expr/domain.BoolExpr trees. There is no decoder in this module
// (spec.md §1 puts it out of scope), so this is the only source of Expr
// values a CLI user actually drives.
type parser struct {
	toks []token
	pos  int

	defaultBits int
}

func parseExprString(s string, defaultBits int) (domain.Expr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, defaultBits: defaultBits}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("parser: unexpected trailing input at token %q", p.peek().text)
	}
	return e, nil
}

func parseBoolString(s string, defaultBits int) (domain.BoolExpr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, defaultBits: defaultBits}
	b, err := p.parseBool()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("parser: unexpected trailing input at token %q", p.peek().text)
	}
	return b, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(s string) error {
	t := p.peek()
	if t.kind != tokPunct || t.text != s {
		return fmt.Errorf("parser: expected %q, got %q", s, t.text)
	}
	p.pos++
	return nil
}

// binOps maps operator tokens to their cellval.BinOp. Division and modulo
// carry an explicit u/s signedness suffix; modulo spells it as a word
// ("umod"/"smod") rather than gluing it to '%', since '%' is already the
// register sigil and the lexer can't tell the two apart by one character
// of lookahead.
var binOps = map[string]cellval.BinOp{
	"+": cellval.Add, "-": cellval.Sub, "*": cellval.Mul,
	"/u": cellval.UDiv, "/s": cellval.SDiv, "umod": cellval.UMod, "smod": cellval.SMod,
	"&": cellval.And, "|": cellval.Or, "^": cellval.Xor,
	"<<": cellval.Shl, ">>": cellval.Shr, ">>a": cellval.Sar,
}

func (p *parser) parseExpr() (domain.Expr, error) {
	t := p.peek()
	switch {
	case t.kind == tokNum:
		return p.parseConst()
	case t.kind == tokReg:
		return p.parseRegRef()
	case t.kind == tokPunct && t.text == "~":
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return domain.UnExpr{Op: cellval.Not, X: x}, nil
	case t.kind == tokPunct && t.text == "-":
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return domain.UnExpr{Op: cellval.Neg, X: x}, nil
	case t.kind == tokPunct && t.text == "[":
		return p.parseMem()
	case t.kind == tokPunct && t.text == "(":
		return p.parseParenExpr()
	default:
		return nil, fmt.Errorf("parser: unexpected token %q", t.text)
	}
}

func (p *parser) parseConst() (domain.Expr, error) {
	t := p.next()
	lit, bits, hasBits := strings.Cut(t.text, "@")
	v, err := strconv.ParseUint(lit, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("parser: bad numeric literal %q: %v", t.text, err)
	}
	width := p.defaultBits
	if hasBits {
		n, err := strconv.Atoi(bits)
		if err != nil {
			return nil, fmt.Errorf("parser: bad width in %q: %v", t.text, err)
		}
		width = n
	}
	return domain.Const{W: mach.NewWord(v, width)}, nil
}

func (p *parser) parseRegRef() (domain.Expr, error) {
	t := p.next()
	r, err := lookupRegister(t.text)
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokPunct && p.peek().text == "[" {
		p.next()
		lo, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		hi, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return domain.LvalRegSlice{Reg: r, Lo: lo, Hi: hi}, nil
	}
	return domain.LvalReg{Reg: r}, nil
}

func (p *parser) parseInt() (int, error) {
	t := p.next()
	if t.kind != tokNum {
		return 0, fmt.Errorf("parser: expected an integer, got %q", t.text)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, fmt.Errorf("parser: bad integer %q: %v", t.text, err)
	}
	return n, nil
}

// parseMem parses "[ expr : bits ]".
func (p *parser) parseMem() (domain.Expr, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	addr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	bits, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return domain.LvalMem{Addr: addr, Bits: bits}, nil
}

// parseParenExpr disambiguates "(bexpr ? expr : expr)" from
// "(expr BINOP expr)" by trying the ternary reading first and
// backtracking on failure: both start with the same '(' token, and there
// is no single lookahead token that tells them apart in general (the
// condition of a ternary can itself start with '(').
func (p *parser) parseParenExpr() (domain.Expr, error) {
	start := p.pos
	if e, err := p.tryParseTernary(); err == nil {
		return e, nil
	}
	p.pos = start
	return p.parseBinExpr()
}

func (p *parser) tryParseTernary() (domain.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	c, err := p.parseBool()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("?"); err != nil {
		return nil, err
	}
	tExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	fExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return domain.TernExpr{C: c, T: tExpr, F: fExpr}, nil
}

func (p *parser) parseBinExpr() (domain.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	opTok := p.next()
	op, ok := binOps[opTok.text]
	if !ok {
		return nil, fmt.Errorf("parser: unknown binary operator %q", opTok.text)
	}
	y, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return domain.BinExpr{Op: op, X: x, Y: y}, nil
}

var cmpOps = map[string]cellval.Cmp{
	"==": cellval.EQ, "!=": cellval.NEQ,
}

// parseBool parses the boolean sub-grammar: constants, negation, logical
// connectives over parenthesized sub-bexprs, and comparisons over
// parenthesized sub-exprs.
func (p *parser) parseBool() (domain.BoolExpr, error) {
	t := p.peek()
	switch {
	case t.kind == tokIdent && t.text == "true":
		p.next()
		return domain.BConst{B: true}, nil
	case t.kind == tokIdent && t.text == "false":
		p.next()
		return domain.BConst{B: false}, nil
	case t.kind == tokPunct && t.text == "!":
		p.next()
		x, err := p.parseBool()
		if err != nil {
			return nil, err
		}
		return domain.BNot{X: x}, nil
	case t.kind == tokPunct && t.text == "(":
		return p.parseParenBool()
	default:
		return nil, fmt.Errorf("parser: expected a boolean expression, got %q", t.text)
	}
}

func (p *parser) parseParenBool() (domain.BoolExpr, error) {
	start := p.pos
	if b, err := p.tryParseLogBin(); err == nil {
		return b, nil
	}
	p.pos = start
	return p.parseCmpExpr()
}

func (p *parser) tryParseLogBin() (domain.BoolExpr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	x, err := p.parseBool()
	if err != nil {
		return nil, err
	}
	opTok := p.next()
	var op domain.LogOp
	switch opTok.text {
	case "&&":
		op = domain.LogAnd
	case "||":
		op = domain.LogOr
	default:
		return nil, fmt.Errorf("parser: expected && or ||, got %q", opTok.text)
	}
	y, err := p.parseBool()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return domain.BBin{Op: op, X: x, Y: y}, nil
}

func (p *parser) parseCmpExpr() (domain.BoolExpr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	cmp, err := p.parseCmpOp()
	if err != nil {
		return nil, err
	}
	y, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return domain.CmpExpr{Cmp: cmp, X: x, Y: y}, nil
}

func (p *parser) parseCmpOp() (cellval.Cmp, error) {
	t := p.next()
	if c, ok := cmpOps[t.text]; ok {
		return c, nil
	}
	if t.text != "<" && t.text != "<=" && t.text != ">" && t.text != ">=" {
		return 0, fmt.Errorf("parser: unknown comparison operator %q", t.text)
	}
	sign := p.next()
	switch t.text + sign.text {
	case "<u":
		return cellval.LTU, nil
	case "<=u":
		return cellval.LEU, nil
	case ">u":
		return cellval.GTU, nil
	case ">=u":
		return cellval.GEU, nil
	case "<s":
		return cellval.LTS, nil
	case "<=s":
		return cellval.LES, nil
	case ">s":
		return cellval.GTS, nil
	case ">=s":
		return cellval.GES, nil
	default:
		return 0, fmt.Errorf("parser: comparison operator %q must be suffixed with u or s", t.text)
	}
}
