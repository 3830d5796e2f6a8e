// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/dimension"
	"github.com/taintcore/undom/internal/domain"
	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/taint"
)

// session is domcli's on-disk state format: a JSON snapshot of a
// domain.State built over cellval.ConcreteFactory, so a sequence of
// one-shot domcli invocations can thread a state through a shell
// pipeline (each subcommand loads --state, mutates it, and saves it back)
// without the whole engine living in one long-running process.
//
// Loading and parsing this file is explicitly outside the abstract
// domain's own scope (spec.md §1); it exists only to make domcli usable
// without requiring the interactive repl command.
type session struct {
	Bottom bool       `json:"bottom"`
	Regs   []regSnap  `json:"regs,omitempty"`
	Mem    []memSnap  `json:"mem,omitempty"`
}

type valueSnap struct {
	Bits      int    `json:"bits"`
	Bot       bool   `json:"bot,omitempty"`
	Top       bool   `json:"top,omitempty"`
	Value     uint64 `json:"value,omitempty"`
	TaintMask uint64 `json:"taint_mask,omitempty"`
	HasRegion bool   `json:"has_region,omitempty"`
	Region    string `json:"region,omitempty"`
}

type regSnap struct {
	Name         string `json:"name"`
	Bits         int    `json:"bits"`
	StackPointer bool   `json:"stack_pointer,omitempty"`
	V            valueSnap `json:"value"`
}

type memSnap struct {
	Kind string    `json:"kind"` // "byte" or "interval"
	Lo   uint64    `json:"lo"`
	Hi   uint64    `json:"hi,omitempty"`
	V    valueSnap `json:"value"`
}

func valueToSnap(v cellval.Value) (valueSnap, error) {
	out := valueSnap{Bits: v.Bits()}
	if v.IsBot() {
		out.Bot = true
		return out, nil
	}
	cv, ok := v.(cellval.Val)
	if !ok {
		return valueSnap{}, fmt.Errorf("session: value of type %T is not serializable", v)
	}
	if cv.IsTop() {
		out.Top = true
	} else {
		z, err := cv.ToZ()
		if err != nil {
			return valueSnap{}, err
		}
		out.Value = z.Uint64()
	}
	out.TaintMask = cv.TaintSet().Mask()
	if r, ok := cv.Region(); ok {
		out.HasRegion = true
		out.Region = r.String()
	}
	return out, nil
}

func snapToValue(s valueSnap, f cellval.Factory) cellval.Value {
	var v cellval.Value
	switch {
	case s.Bot:
		v = f.Bot(s.Bits)
	case s.Top:
		v = f.Top(s.Bits)
	default:
		v = f.OfWord(mach.NewWord(s.Value, s.Bits))
	}
	if s.TaintMask != 0 {
		v = v.SpanTaint(taint.FromMask(s.TaintMask, s.Bits))
	}
	return v
}

func regionFromString(s string) config.Region {
	switch s {
	case "stack":
		return config.Stack
	case "heap":
		return config.Heap
	default:
		return config.Global
	}
}

func newSession() *session {
	return &session{}
}

func loadSession(path string) (*session, error) {
	if path == "" {
		return newSession(), nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	var s session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	return &s, nil
}

func saveSession(path string, s *session) error {
	if path == "" {
		return nil
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// toState rebuilds a *domain.State from the snapshot.
func (s *session) toState() *domain.State {
	if s.Bottom {
		return domain.Bot()
	}
	env := dimension.Empty()
	f := cellval.ConcreteFactory{}
	for _, r := range s.Regs {
		reg := mach.Register{Name: r.Name, Bits: r.Bits, StackPointer: r.StackPointer}
		env = env.Replace(dimension.Reg(reg), snapToValue(r.V, f))
	}
	for _, m := range s.Mem {
		v := snapToValue(m.V, f)
		switch m.Kind {
		case "interval":
			env = env.Replace(dimension.MemItv(mach.Address(m.Lo), mach.Address(m.Hi)), v)
		default:
			env = env.Replace(dimension.Mem(mach.Address(m.Lo)), v)
		}
	}
	return domain.NewState(env)
}

// fromState flattens a *domain.State back into the snapshot format.
func fromState(st *domain.State) (*session, error) {
	out := newSession()
	if st.IsBot() {
		out.Bottom = true
		return out, nil
	}
	var err error
	dimension.Fold(st.Env(), struct{}{}, func(_ struct{}, k dimension.Dimension, v cellval.Value) struct{} {
		if err != nil {
			return struct{}{}
		}
		vs, verr := valueToSnap(v)
		if verr != nil {
			err = verr
			return struct{}{}
		}
		switch k.Kind {
		case dimension.KindReg:
			out.Regs = append(out.Regs, regSnap{Name: k.Reg.Name, Bits: k.Reg.Bits, StackPointer: k.Reg.StackPointer, V: vs})
		case dimension.KindMem:
			out.Mem = append(out.Mem, memSnap{Kind: "byte", Lo: uint64(k.Lo), V: vs})
		case dimension.KindMemItv:
			out.Mem = append(out.Mem, memSnap{Kind: "interval", Lo: uint64(k.Lo), Hi: uint64(k.Hi), V: vs})
		}
		return struct{}{}
	})
	return out, err
}
