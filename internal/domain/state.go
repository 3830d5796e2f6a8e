// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package domain implements the unrelational abstract domain core: the
// two-point lifted state (spec.md §4.3), the memory access engine (§4.4),
// the expression evaluator (§4.5), assignment and comparison (§4.6), the
// intrinsic string/hex operations (§4.7) and configuration injection
// (§4.8).
//
// It is grounded on golang.org/x/debug's internal/core.Process (the
// mapping-splitting logic in particular) for the memory engine, and on
// golang.org/x/debug's ogle/program/server/eval.go (the evaluator struct
// and its recursive evaluation) for the expression evaluator.
package domain

import (
	"io"
	"os"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/dimension"
	"github.com/taintcore/undom/internal/section"
)

// State is the two-point lifted domain state: Bottom, or a Concrete
// environment mapping dimensions to cell values (spec.md §4.3). The zero
// value is not meaningful; use Init or Bot.
type State struct {
	bottom bool
	env    *dimension.Env
}

// Init returns a fresh, empty Concrete state, as produced after loading
// sections and mapping the binary image (spec.md §3 Lifecycles).
func Init() *State {
	return &State{env: dimension.Empty()}
}

// Bot returns the Bottom state (the empty concretization).
func Bot() *State {
	return &State{bottom: true}
}

// IsBot reports whether s is Bottom.
func (s *State) IsBot() bool {
	return s == nil || s.bottom
}

// Env returns the backing environment. Panics if s is Bottom: callers
// must check IsBot first, matching spec.md §4.3's treatment of Bottom as
// having no environment to inspect.
func (s *State) Env() *dimension.Env {
	if s.IsBot() {
		panic("domain: Env of a Bottom state")
	}
	return s.env
}

func withEnv(e *dimension.Env) *State {
	return &State{env: e}
}

// NewState builds a Concrete state directly from an environment, for
// callers (such as a CLI's session snapshot loader) that assemble an Env
// outside of the usual Init-then-mutate sequence.
func NewState(e *dimension.Env) *State {
	return withEnv(e)
}

// Engine ties together the cell-value Factory, the section table and the
// mmap'd image backing, and the accumulated non-fatal warnings: the
// process-wide, read-mostly collaborators spec.md §5 says the caller must
// not concurrently re-initialize.
type Engine struct {
	Factory  cellval.Factory
	Sections *section.Map
	Image    *section.Image

	// Out is the sink print_chars/print_until/print_bytes/print_hex write
	// to (spec.md §4.7, §6). Defaults to os.Stdout.
	Out io.Writer

	warnings []string
}

// NewEngine builds an Engine over an already-installed section table and
// image. Sections and Image may be nil if the caller has no binary image
// to back reads with (every memory read then either hits the environment
// or returns Bot).
func NewEngine(f cellval.Factory, sections *section.Map, img *section.Image) *Engine {
	return &Engine{Factory: f, Sections: sections, Image: img, Out: os.Stdout}
}

// Warn records a non-fatal diagnostic, in the same spirit as
// internal/core.Process's warnings slice: this module doesn't pull in a
// logging library the teacher doesn't use either.
func (e *Engine) warn(msg string) {
	e.warnings = append(e.warnings, msg)
}

// Warnings returns every non-fatal diagnostic recorded so far.
func (e *Engine) Warnings() []string {
	return e.warnings
}

// IsSubset implements spec.md §4.3's subset relation.
func (e *Engine) IsSubset(a, b *State) bool {
	if a.IsBot() {
		return true
	}
	if b.IsBot() {
		return false
	}
	return dimension.ForAll2(a.Env(), b.Env(), func(_ dimension.Dimension, av, bv cellval.Value) bool {
		if av == nil {
			av = e.Factory.Top(bv.Bits())
		}
		if bv == nil {
			bv = e.Factory.Top(av.Bits())
		}
		return av.IsSubset(bv)
	})
}

// Join is pointwise V.join on shared keys; a key present on only one side
// is preserved as-is (spec.md §4.3: "public = more concretizations").
func (e *Engine) Join(a, b *State) *State {
	if a.IsBot() {
		return b
	}
	if b.IsBot() {
		return a
	}
	env := dimension.Map2(a.Env(), b.Env(), func(_ dimension.Dimension, av, bv cellval.Value) (cellval.Value, bool) {
		switch {
		case av == nil:
			return bv, true
		case bv == nil:
			return av, true
		default:
			return av.Join(bv), true
		}
	})
	return withEnv(env)
}

// Meet is pointwise V.meet restricted to keys present in both; a key
// present only on one side contributes nothing (spec.md §4.3), and an
// empty environment on either side acts as the identity.
func (e *Engine) Meet(a, b *State) *State {
	if a.IsBot() || b.IsBot() {
		return Bot()
	}
	if a.Env().Len() == 0 {
		return b
	}
	if b.Env().Len() == 0 {
		return a
	}
	env := dimension.Map2(a.Env(), b.Env(), func(_ dimension.Dimension, av, bv cellval.Value) (cellval.Value, bool) {
		if av == nil || bv == nil {
			return nil, false
		}
		return av.Meet(bv), true
	})
	return withEnv(env)
}

// Widen is pointwise V.widen; a key missing on either side falls back to
// V.top for the widened cell, per spec.md §4.3.
func (e *Engine) Widen(a, b *State) *State {
	if a.IsBot() {
		return b
	}
	if b.IsBot() {
		return a
	}
	env := dimension.Map2(a.Env(), b.Env(), func(k dimension.Dimension, av, bv cellval.Value) (cellval.Value, bool) {
		bits := 0
		switch {
		case av != nil:
			bits = av.Bits()
		case bv != nil:
			bits = bv.Bits()
		}
		if av == nil {
			av = e.Factory.Top(bits)
		}
		if bv == nil {
			bv = e.Factory.Top(bits)
		}
		return av.Widen(bv), true
	})
	return withEnv(env)
}

// Forget maps every cell to V.top. If forgetLval names a specific
// register, that one cell instead keeps its taint via V.forget rather
// than losing it outright (spec.md §4.3).
func (e *Engine) Forget(s *State, forgetLval *dimension.Dimension) *State {
	if s.IsBot() {
		return s
	}
	env := s.Env().Map(func(k dimension.Dimension, v cellval.Value) cellval.Value {
		if forgetLval != nil && k.Equal(*forgetLval) {
			return v.Forget()
		}
		return e.Factory.Top(v.Bits())
	})
	return withEnv(env)
}
