// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"fmt"

	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/dimension"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
)

// SetRegisterFromConfig implements spec.md §4.8's
// set_register_from_config: build a cell value from the configured
// content and taint pattern, and install it at the register.
func (eng *Engine) SetRegisterFromConfig(s *State, r mach.Register, region config.Region, content config.Content, t config.Taint) (*State, error) {
	if s.IsBot() {
		return s, nil
	}
	v, err := eng.Factory.OfConfig(region, content, r.Size())
	if err != nil {
		return nil, err
	}
	v = eng.Factory.TaintOfConfig(t, r.Size(), v)
	env := s.Env().Replace(dimension.Reg(r), v)
	return withEnv(env), nil
}

// SetMemoryFromConfig implements spec.md §4.8's set_memory_from_config.
func (eng *Engine) SetMemoryFromConfig(s *State, addr mach.Address, region config.Region, content config.Content, t config.Taint, nb, operandBits int) (*State, error) {
	if s.IsBot() {
		return s, nil
	}
	sz := config.SizeOfContent(content, operandBits)

	if nb > 1 {
		if sz != 8 {
			panic("domain: repeated memory init only works with bytes")
		}
		v, err := eng.Factory.OfConfig(region, content, sz)
		if err != nil {
			return nil, err
		}
		v = eng.Factory.TaintOfConfig(t, sz, v)
		return eng.WriteRepeatByteInMem(s, addr, v, nb)
	}

	bigEndian := content.Kind == config.ContentBytes || content.Kind == config.ContentBytesMasked
	v, err := eng.Factory.OfConfig(region, content, sz)
	if err != nil {
		return nil, err
	}
	v = eng.Factory.TaintOfConfig(t, sz, v)
	return eng.WriteInMemory(s, addr, v, sz, true, bigEndian)
}

// TaintRegisterMask implements spec.md §4.8's taint_register_mask: apply
// a configured taint pattern to an already-installed register cell.
func (eng *Engine) TaintRegisterMask(s *State, r mach.Register, t config.Taint) (*State, error) {
	if s.IsBot() {
		return s, nil
	}
	prev, ok := s.Env().Find(dimension.Reg(r))
	if !ok {
		return nil, fmt.Errorf("%w: register %s has no installed value", domainerr.NotFound, r)
	}
	v := eng.Factory.TaintOfConfig(t, r.Size(), prev)
	env := s.Env().Replace(dimension.Reg(r), v)
	return withEnv(env), nil
}

// TaintAddressMask implements spec.md §4.8's taint_address_mask.
func (eng *Engine) TaintAddressMask(s *State, a mach.Address, t config.Taint) (*State, error) {
	if s.IsBot() {
		return s, nil
	}
	k, prev, ok := s.Env().FindBy(dimension.CmpAddr(a))
	if !ok {
		return nil, fmt.Errorf("%w: address %s has no installed value", domainerr.NotFound, a)
	}
	v := eng.Factory.TaintOfConfig(t, prev.Bits(), prev)
	env := s.Env().Replace(k, v)
	return withEnv(env), nil
}
