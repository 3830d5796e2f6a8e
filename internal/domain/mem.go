// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"fmt"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/dimension"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/section"
)

// byteAddrs expands addr+size_bits/8 into its constituent byte addresses,
// ordered most-significant byte first: reversed from address order for
// little-endian, kept in address order for big-endian (the explicit
// big_endian parameter follows DESIGN.md's resolution of the read/write
// endianness open question).
func byteAddrs(addr mach.Address, sizeBits int, bigEndian bool) []mach.Address {
	n := sizeBits / 8
	out := make([]mach.Address, n)
	for i := 0; i < n; i++ {
		out[i] = addr.Add(int64(i))
	}
	if !bigEndian {
		// Little-endian: byte 0 (lowest address) is least significant, so
		// reverse so index 0 of the returned slice is the most significant
		// byte.
		for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
			out[l], out[r] = out[r], out[l]
		}
	}
	return out
}

// GetMemValue reads size_bits (a multiple of 8) starting at addr, per
// spec.md §4.4.
func (e *Engine) GetMemValue(env *dimension.Env, addr mach.Address, sizeBits int, bigEndian bool) (cellval.Value, error) {
	addrs := byteAddrs(addr, sizeBits, bigEndian)
	vals, ok := e.readBytes(env, addrs)
	if !ok {
		// Retry from sections; if still unresolved, the read is Bottom.
		vals, ok = e.readBytesFromSections(addrs)
		if !ok {
			return e.Factory.Bot(sizeBits), nil
		}
	}
	// vals is most-significant first; Concat places parts[0] at bit 0.
	for l, r := 0, len(vals)-1; l < r; l, r = l+1, r-1 {
		vals[l], vals[r] = vals[r], vals[l]
	}
	return e.Factory.Concat(vals), nil
}

func (e *Engine) readBytes(env *dimension.Env, addrs []mach.Address) ([]cellval.Value, bool) {
	out := make([]cellval.Value, len(addrs))
	for i, a := range addrs {
		_, v, ok := env.FindBy(dimension.CmpAddr(a))
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (e *Engine) readBytesFromSections(addrs []mach.Address) ([]cellval.Value, bool) {
	if e.Sections == nil {
		return nil, false
	}
	out := make([]cellval.Value, len(addrs))
	for i, a := range addrs {
		v, err := section.ReadFromSections(e.Sections, e.Image, e.Factory, a)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// WriteInMemory writes v (size_bits wide) to addr, strong or weak, per
// spec.md §4.4.
func (e *Engine) WriteInMemory(s *State, addr mach.Address, v cellval.Value, sizeBits int, strong, bigEndian bool) (*State, error) {
	if s.IsBot() {
		return s, nil
	}
	addrs := byteAddrs(addr, sizeBits, bigEndian)
	n := sizeBits / 8
	env := s.Env()
	for i, ba := range addrs {
		// addrs[i] is ordered most-significant-byte-first (see
		// byteAddrs); slot i of v corresponds to byte (n-1-i) counting
		// from the low address, i.e. bit range [(n-1-i)*8, (n-1-i)*8+7].
		byteIdx := n - 1 - i
		lo := byteIdx * 8
		bv := v.Extract(lo, lo+7)

		var err error
		env, err = e.writeByte(env, ba, bv, strong)
		if err != nil {
			return nil, err
		}
	}
	return withEnv(env), nil
}

func (e *Engine) writeByte(env *dimension.Env, a mach.Address, b cellval.Value, strong bool) (*dimension.Env, error) {
	k, prev, ok := env.FindBy(dimension.CmpAddr(a))
	if !ok {
		if !strong {
			return nil, fmt.Errorf("%w: weak write to unset address %s", domainerr.Empty, a)
		}
		return env.Add(dimension.Mem(a), b), nil
	}
	switch k.Kind {
	case dimension.KindReg:
		panic("domain: found a register key while writing memory")
	case dimension.KindMem:
		nv := b
		if !strong {
			nv = b.Join(prev)
		}
		return env.Replace(k, nv), nil
	case dimension.KindMemItv:
		env = env.Remove(k)
		if a.Sub(k.Lo) > 0 {
			env = env.Add(dimension.MemItv(k.Lo, a.Add(-1)), prev)
		}
		if k.Hi.Sub(a) > 0 {
			env = env.Add(dimension.MemItv(a.Add(1), k.Hi), prev)
		}
		nv := b
		if !strong {
			nv = b.Join(prev)
		}
		return env.Add(dimension.Mem(a), nv), nil
	default:
		panic("domain: unknown dimension kind")
	}
}

// WriteRepeatByteInMem installs a single MemItv(addr, addr+n), each byte
// holding byteVal, discarding any keys it covers. MemItv bounds are
// inclusive, so the interval covers the n+1 bytes addr..addr+n.
// This is a strong update, intended for zero-fill/constant-fill
// initialization from configuration (spec.md §4.4).
func (e *Engine) WriteRepeatByteInMem(s *State, addr mach.Address, byteVal cellval.Value, n int) (*State, error) {
	if s.IsBot() {
		return s, nil
	}
	if n <= 0 {
		return s, nil
	}
	env := s.Env()
	lastIncl := addr.Add(int64(n))
	for i := 0; i <= n; i++ {
		a := addr.Add(int64(i))
		k, prev, ok := env.FindBy(dimension.CmpAddr(a))
		if !ok {
			continue
		}
		switch k.Kind {
		case dimension.KindReg:
			panic("domain: found a register key while writing memory")
		case dimension.KindMem:
			env = env.Remove(k)
		case dimension.KindMemItv:
			env = env.Remove(k)
			if k.Lo.Sub(addr) < 0 {
				env = env.Add(dimension.MemItv(k.Lo, addr.Add(-1)), prev)
			}
			if k.Hi.Sub(lastIncl) > 0 {
				env = env.Add(dimension.MemItv(lastIncl.Add(1), k.Hi), prev)
			}
		}
	}
	env = env.Add(dimension.MemItv(addr, lastIncl), byteVal)
	return withEnv(env), nil
}
