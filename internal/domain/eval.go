// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"fmt"
	"math/big"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/dimension"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
)

var big0 = big.NewInt(0)

// evaluator walks an Expr/BoolExpr tree against one State. Each recursive
// call returns its (value, tainted, error) result directly; the struct
// only carries the engine, the state and the endianness shared by every
// sub-evaluation. The evaluator-struct shape follows
// ogle/program/server/eval.go's evaluator for Go expression ASTs, applied
// here to the spec's small assembly expression grammar.
type evaluator struct {
	eng *Engine
	s   *State

	// bigEndian controls memory dereferences performed while evaluating,
	// per DESIGN.md's resolution of the read/write endianness open
	// question.
	bigEndian bool
}

// EvalExpr evaluates e against s, returning its cell value and whether
// any read contributing to it was tainted (spec.md §4.5).
func (eng *Engine) EvalExpr(s *State, e Expr, bigEndian bool) (cellval.Value, bool, error) {
	ev := &evaluator{eng: eng, s: s, bigEndian: bigEndian}
	return ev.eval(e)
}

func (ev *evaluator) eval(e Expr) (cellval.Value, bool, error) {
	switch n := e.(type) {
	case Const:
		return ev.eng.Factory.OfWord(n.W), false, nil

	case LvalReg:
		v, ok := ev.s.Env().Find(dimension.Reg(n.Reg))
		if !ok {
			return ev.eng.Factory.Bot(n.Reg.Size()), false, nil
		}
		return v, v.IsTainted(), nil

	case LvalRegSlice:
		v, ok := ev.s.Env().Find(dimension.Reg(n.Reg))
		if !ok {
			return ev.eng.Factory.Bot(n.Hi - n.Lo + 1), false, nil
		}
		sliced := v.Extract(n.Lo, n.Hi)
		return sliced, sliced.IsTainted(), nil

	case LvalMem:
		return ev.evalMem(n)

	case BinExpr:
		if xorSelf, ok := isXorSelf(n); ok {
			return ev.evalXorSelf(xorSelf)
		}
		xv, xt, err := ev.eval(n.X)
		if err != nil {
			return nil, false, err
		}
		yv, yt, err := ev.eval(n.Y)
		if err != nil {
			return nil, false, err
		}
		r := xv.Binary(n.Op, yv)
		return r, xt || yt || r.IsTainted(), nil

	case UnExpr:
		xv, xt, err := ev.eval(n.X)
		if err != nil {
			return nil, false, err
		}
		r := xv.Unary(n.Op)
		return r, xt || r.IsTainted(), nil

	case TernExpr:
		return ev.evalTern(n)

	default:
		panic(fmt.Sprintf("domain: unknown expression type %T", e))
	}
}

func (ev *evaluator) evalMem(n LvalMem) (cellval.Value, bool, error) {
	addrVal, addrTaint, err := ev.eval(n.Addr)
	if err != nil {
		return nil, false, err
	}
	addrs, err := addrVal.ToAddresses()
	if err != nil {
		if domainerr.Is(err, domainerr.EnumFailure) {
			return ev.eng.Factory.Top(n.Bits), true, nil
		}
		return nil, false, fmt.Errorf("%w: %v", domainerr.BotDeref, err)
	}
	if len(addrs) == 0 {
		return nil, false, fmt.Errorf("%w: dereference of an empty address set", domainerr.BotDeref)
	}

	var acc cellval.Value
	tainted := addrTaint
	for _, a := range addrs {
		v, err := ev.eng.GetMemValue(ev.s.Env(), a, n.Bits, ev.bigEndian)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", domainerr.BotDeref, err)
		}
		if v.IsTainted() {
			tainted = true
		}
		if acc == nil {
			acc = v
		} else {
			acc = acc.Join(v)
		}
	}
	return acc, tainted, nil
}

// isXorSelf recognises Xor(Lval(V(T r)), Lval(V(T r))) for the same
// register r, the common "zero a register" idiom spec.md §4.5 special
// cases to preserve the stack-pointer region tag.
func isXorSelf(n BinExpr) (mach.Register, bool) {
	if n.Op != cellval.Xor {
		return mach.Register{}, false
	}
	x, ok := n.X.(LvalReg)
	if !ok {
		return mach.Register{}, false
	}
	y, ok := n.Y.(LvalReg)
	if !ok {
		return mach.Register{}, false
	}
	if !x.Reg.Equal(y.Reg) {
		return mach.Register{}, false
	}
	return x.Reg, true
}

func (ev *evaluator) evalXorSelf(r mach.Register) (cellval.Value, bool, error) {
	if r.StackPointer {
		v, err := ev.eng.Factory.OfConfig(config.Stack, config.ConcreteContent(big0), r.Size())
		if err != nil {
			return nil, false, err
		}
		return v, false, nil
	}
	zero := ev.eng.Factory.OfWord(mach.NewWord(0, r.Size()))
	return zero.Untaint(), false, nil
}

func (ev *evaluator) evalTern(n TernExpr) (cellval.Value, bool, error) {
	trueFeasible, trueTainted, err := ev.evalBool(n.C, true)
	if err != nil {
		return nil, false, err
	}
	falseFeasible, falseTainted, err := ev.evalBool(n.C, false)
	if err != nil {
		return nil, false, err
	}

	var (
		v       cellval.Value
		tainted bool
	)
	switch {
	case trueFeasible && falseFeasible:
		tv, tt, err := ev.eval(n.T)
		if err != nil {
			return nil, false, err
		}
		fv, ft, err := ev.eval(n.F)
		if err != nil {
			return nil, false, err
		}
		v = tv.Join(fv)
		tainted = tt || ft || trueTainted || falseTainted
	case trueFeasible:
		tv, tt, err := ev.eval(n.T)
		if err != nil {
			return nil, false, err
		}
		v, tainted = tv, tt || trueTainted
	case falseFeasible:
		fv, ft, err := ev.eval(n.F)
		if err != nil {
			return nil, false, err
		}
		v, tainted = fv, ft || falseTainted
	default:
		return ev.eng.Factory.Bot(0), false, nil
	}
	if tainted {
		v = v.Taint()
	}
	return v, tainted, nil
}

// evalBool evaluates a BoolExpr under polarity b (spec.md §4.5:
// eval_bexp(c, b)), returning whether c (or its negation, if b is false)
// is feasible and whether that evaluation touched tainted data.
func (ev *evaluator) evalBool(c BoolExpr, b bool) (bool, bool, error) {
	switch n := c.(type) {
	case BConst:
		return n.B == b, false, nil

	case BNot:
		return ev.evalBool(n.X, !b)

	case BBin:
		op := n.Op
		if !b {
			// De Morgan duals flip under negated polarity.
			if op == LogAnd {
				op = LogOr
			} else {
				op = LogAnd
			}
		}
		xf, xt, err := ev.evalBool(n.X, b)
		if err != nil {
			return false, false, err
		}
		yf, yt, err := ev.evalBool(n.Y, b)
		if err != nil {
			return false, false, err
		}
		var feasible bool
		if op == LogAnd {
			feasible = xf && yf
		} else {
			feasible = xf || yf
		}
		return feasible, xt || yt, nil

	case CmpExpr:
		cmp := n.Cmp
		if !b {
			cmp = cmp.Negate()
		}
		xv, xt, err := ev.eval(n.X)
		if err != nil {
			return false, false, err
		}
		yv, yt, err := ev.eval(n.Y)
		if err != nil {
			return false, false, err
		}
		return xv.Compare(cmp, yv), xt || yt, nil

	default:
		panic(fmt.Sprintf("domain: unknown bool expression type %T", c))
	}
}
