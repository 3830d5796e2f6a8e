// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/mach"
)

// Expr is the assembly expression grammar the evaluator walks (spec.md
// §4.5). The decoder that produces these trees from machine code is out
// of scope for this module; Expr only carries the shape the evaluator and
// its callers need.
type Expr interface {
	isExpr()
}

// Const is a literal machine word.
type Const struct{ W mach.Word }

// Lval is an lvalue expression: something that both Expr (for a read) and
// the assignment destination (for a write) can name.
type Lval interface {
	Expr
	isLval()
}

// LvalReg reads or writes a whole register: Lval(V(T r)).
type LvalReg struct{ Reg mach.Register }

// LvalRegSlice reads or writes a bit-slice of a register, inclusive of
// both ends: Lval(V(P(r, lo, hi))).
type LvalRegSlice struct {
	Reg    mach.Register
	Lo, Hi int
}

// LvalMem dereferences an address expression for n bits: Lval(M(e, n)).
type LvalMem struct {
	Addr Expr
	Bits int
}

// BinExpr applies a binary operator to two sub-expressions.
type BinExpr struct {
	Op   cellval.BinOp
	X, Y Expr
}

// UnExpr applies a unary operator to a sub-expression.
type UnExpr struct {
	Op cellval.UnOp
	X  Expr
}

// TernExpr is C ? T : F, evaluated under both truth settings of C and
// joined when both are feasible (spec.md §4.5).
type TernExpr struct {
	C    BoolExpr
	T, F Expr
}

func (Const) isExpr()        {}
func (LvalReg) isExpr()      {}
func (LvalReg) isLval()      {}
func (LvalRegSlice) isExpr() {}
func (LvalRegSlice) isLval() {}
func (LvalMem) isExpr()      {}
func (LvalMem) isLval()      {}
func (BinExpr) isExpr()      {}
func (UnExpr) isExpr()       {}
func (TernExpr) isExpr()     {}

// BoolExpr is the Boolean sub-grammar used by branch conditions and
// ternary selectors.
type BoolExpr interface {
	isBoolExpr()
}

// LogOp is a Boolean binary connective.
type LogOp int

const (
	LogAnd LogOp = iota
	LogOr
)

// BConst is a literal Boolean.
type BConst struct{ B bool }

// BNot is logical negation.
type BNot struct{ X BoolExpr }

// BBin applies a Boolean connective to two sub-expressions.
type BBin struct {
	Op   LogOp
	X, Y BoolExpr
}

// CmpExpr compares two machine expressions.
type CmpExpr struct {
	Cmp  cellval.Cmp
	X, Y Expr
}

func (BConst) isBoolExpr()  {}
func (BNot) isBoolExpr()    {}
func (BBin) isBoolExpr()    {}
func (CmpExpr) isBoolExpr() {}
