// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/dimension"
)

// Set implements spec.md §4.6's set(dst, src, state): evaluate src,
// propagate its minimal taint onto the assigned cell via span_taint, then
// write it to dst with strong/weak semantics appropriate to its shape.
func (eng *Engine) Set(s *State, dst Lval, src Expr, bigEndian bool) (*State, bool, error) {
	if s.IsBot() {
		return s, false, nil
	}

	v, tainted, err := eng.EvalExpr(s, src, bigEndian)
	if err != nil {
		return nil, false, err
	}
	v = eng.spanTaint(s, src, v)

	if v.IsBot() {
		return Bot(), tainted, nil
	}

	switch d := dst.(type) {
	case LvalReg:
		env := s.Env().Replace(dimension.Reg(d.Reg), v)
		return withEnv(env), tainted, nil

	case LvalRegSlice:
		prev, ok := s.Env().Find(dimension.Reg(d.Reg))
		if !ok {
			return Bot(), tainted, nil
		}
		env := s.Env().Replace(dimension.Reg(d.Reg), prev.Combine(v, d.Lo, d.Hi))
		return withEnv(env), tainted, nil

	case LvalMem:
		addrVal, _, err := eng.EvalExpr(s, d.Addr, bigEndian)
		if err != nil {
			return nil, false, err
		}
		addrs, err := addrVal.ToAddresses()
		if err != nil {
			return Bot(), false, nil
		}
		if len(addrs) == 0 {
			return Bot(), false, nil
		}
		strong := len(addrs) == 1
		cur := s
		for _, a := range addrs {
			var err error
			cur, err = eng.WriteInMemory(cur, a, v, d.Bits, strong, bigEndian)
			if err != nil {
				return Bot(), tainted, nil
			}
		}
		return cur, tainted, nil

	default:
		panic("domain: unknown lvalue shape")
	}
}

// spanTaint inspects src and, if it is a memory read or a unary/binary
// expression, attaches the minimal taint of its operands onto v — the
// rvalue's taint must not be lost when V treats taint per-bit rather than
// per-cell (spec.md §4.6).
func (eng *Engine) spanTaint(s *State, src Expr, v cellval.Value) cellval.Value {
	var operands []Expr
	switch n := src.(type) {
	case LvalMem:
		operands = []Expr{n.Addr}
	case BinExpr:
		operands = []Expr{n.X, n.Y}
	case UnExpr:
		operands = []Expr{n.X}
	default:
		return v
	}

	minimal := v.MinimalTaint()
	for _, op := range operands {
		ov, _, err := eng.EvalExpr(s, op, false)
		if err != nil || ov == nil {
			continue
		}
		minimal = minimal.Join(ov.MinimalTaint())
	}
	return v.SpanTaint(minimal)
}

// Compare implements spec.md §4.6's compare(state, e1, op, e2).
func (eng *Engine) Compare(s *State, e1 Expr, cmp cellval.Cmp, e2 Expr, bigEndian bool) (*State, bool, error) {
	if s.IsBot() {
		return s, false, nil
	}

	v1, t1, err := eng.EvalExpr(s, e1, bigEndian)
	if err != nil {
		return nil, false, err
	}
	v2, t2, err := eng.EvalExpr(s, e2, bigEndian)
	if err != nil {
		return nil, false, err
	}
	if v1.IsBot() || v2.IsBot() {
		return Bot(), false, nil
	}

	if !v1.Compare(cmp, v2) {
		return Bot(), false, nil
	}

	restricted, err := eng.valRestrict(s, e1, cmp, v2)
	if err != nil {
		return Bot(), false, nil
	}
	return restricted, t1 || t2, nil
}

// valRestrict narrows the state when a comparison's left side is a whole
// register and the operator is EQ: the register is met with the right
// side's value, the branch-refinement the driver relies on for
// conditional information propagation (spec.md §4.6).
func (eng *Engine) valRestrict(s *State, e1 Expr, cmp cellval.Cmp, v2 cellval.Value) (*State, error) {
	reg, ok := e1.(LvalReg)
	if !ok || cmp != cellval.EQ {
		return s, nil
	}
	prev, found := s.Env().Find(dimension.Reg(reg.Reg))
	if !found {
		return s, nil
	}
	met := prev.Meet(v2)
	if met.IsBot() {
		return Bot(), nil
	}
	env := s.Env().Replace(dimension.Reg(reg.Reg), met)
	return withEnv(env), nil
}
