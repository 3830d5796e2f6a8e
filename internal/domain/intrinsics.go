// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package domain

import (
	"fmt"
	"strings"

	"github.com/taintcore/undom/internal/cellval"
	"github.com/taintcore/undom/internal/domainerr"
	"github.com/taintcore/undom/internal/mach"
)

// Pad configures the bounded-scan padding behavior of i_get_bytes/get_bytes
// (spec.md §4.7). PadLeft is explicitly unsupported (a fatal abort), per
// spec.md §9's "Left padding... must abort" design note.
type Pad struct {
	Char    cellval.Value
	PadLeft bool
}

// ScanResult is the outcome of a bounded terminator scan.
type ScanResult struct {
	Length int
	Bytes  []cellval.Value
}

// IGetBytes implements spec.md §4.7's i_get_bytes: a bounded scan for a
// terminator, returning the longest match across every candidate start
// address.
func (eng *Engine) IGetBytes(s *State, addr, terminator Expr, cmp cellval.Cmp, upperBound, sz int, withException bool, pad *Pad, bigEndian bool) (ScanResult, error) {
	if pad != nil && pad.PadLeft {
		panic("domain: left padding is not supported")
	}

	addrVal, _, err := eng.EvalExpr(s, addr, bigEndian)
	if err != nil {
		return ScanResult{}, err
	}
	addrs, err := addrVal.ToAddresses()
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: %v", domainerr.NotFound, err)
	}
	if len(addrs) == 0 {
		return ScanResult{}, fmt.Errorf("%w: empty start address set", domainerr.NotFound)
	}

	term, _, err := eng.EvalExpr(s, terminator, bigEndian)
	if err != nil {
		return ScanResult{}, err
	}

	var best ScanResult
	haveBest := false
	for _, a := range addrs {
		r, err := eng.scanOne(s, a, term, cmp, upperBound, sz, withException, pad, bigEndian)
		if err != nil {
			if len(addrs) == 1 {
				return ScanResult{}, err
			}
			continue
		}
		if !haveBest || r.Length > best.Length {
			best, haveBest = r, true
		}
	}
	if !haveBest {
		return ScanResult{}, fmt.Errorf("%w: terminator not found from any candidate address", domainerr.NotFound)
	}
	return best, nil
}

func (eng *Engine) scanOne(s *State, a mach.Address, term cellval.Value, cmp cellval.Cmp, upperBound, sz int, withException bool, pad *Pad, bigEndian bool) (ScanResult, error) {
	off := sz / 8
	var bytes []cellval.Value
	o := 0
	for o < upperBound {
		v, err := eng.GetMemValue(s.Env(), a.Add(int64(o)), sz, bigEndian)
		if err != nil {
			return ScanResult{}, err
		}
		if v.Compare(cmp, term) {
			if pad != nil {
				padded := append([]cellval.Value{}, bytes...)
				for len(padded) < upperBound {
					padded = append(padded, pad.Char)
				}
				return ScanResult{Length: upperBound, Bytes: padded}, nil
			}
			return ScanResult{Length: o, Bytes: bytes}, nil
		}
		bytes = append(bytes, v)
		o += off
	}
	if withException {
		return ScanResult{}, fmt.Errorf("%w: terminator not found within %d bytes", domainerr.NotFound, upperBound)
	}
	return ScanResult{Length: upperBound}, nil
}

// GetBytes implements spec.md §4.7's get_bytes: a bounded scan whose
// result is materialised into a Go string, re-raising any failure as
// Concretization.
func (eng *Engine) GetBytes(s *State, addr, terminator Expr, cmp cellval.Cmp, upperBound, sz int, bigEndian bool) (int, string, error) {
	r, err := eng.IGetBytes(s, addr, terminator, cmp, upperBound, sz, true, nil, bigEndian)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", domainerr.Concretization, err)
	}
	var b strings.Builder
	for _, v := range r.Bytes {
		c, err := v.ToChar()
		if err != nil {
			return 0, "", fmt.Errorf("%w: %v", domainerr.Concretization, err)
		}
		b.WriteByte(c)
	}
	return r.Length, b.String(), nil
}

// CopyUntil implements spec.md §4.7's copy_until: scan src for terminator,
// then write the scanned bytes to dst, strong if dst is a singleton
// address, weak (replicated to every candidate) otherwise.
func (eng *Engine) CopyUntil(s *State, dst, src, terminator Expr, cmp cellval.Cmp, upperBound, sz int, withException bool, pad *Pad, bigEndian bool) (*State, error) {
	r, err := eng.IGetBytes(s, src, terminator, cmp, upperBound, sz, withException, pad, bigEndian)
	if err != nil {
		return Bot(), nil
	}

	dstVal, _, err := eng.EvalExpr(s, dst, bigEndian)
	if err != nil {
		return nil, err
	}
	dstAddrs, err := dstVal.ToAddresses()
	if err != nil || len(dstAddrs) == 0 {
		return Bot(), nil
	}
	strong := len(dstAddrs) == 1

	cur := s
	for _, base := range dstAddrs {
		for i, v := range r.Bytes {
			cur, err = eng.WriteInMemory(cur, base.Add(int64(i)), v, 8, strong, bigEndian)
			if err != nil {
				return Bot(), nil
			}
		}
	}
	return cur, nil
}

// CopyChars implements spec.md §4.7's copy_chars: copy_until with a
// zero-byte, 8-bit terminator.
func (eng *Engine) CopyChars(s *State, dst, src Expr, nb int, pad *Pad, bigEndian bool) (*State, error) {
	zero := Const{W: mach.NewWord(0, 8)}
	return eng.CopyUntil(s, dst, src, zero, cellval.EQ, nb, 8, false, pad, bigEndian)
}

// PrintChars, PrintUntil and PrintBytes dump materialised bytes to the
// engine's output sink (spec.md §4.7).
func (eng *Engine) PrintChars(s *State, src Expr, nb int, bigEndian bool) error {
	zero := Const{W: mach.NewWord(0, 8)}
	return eng.PrintUntil(s, src, zero, cellval.EQ, nb, 8, bigEndian)
}

func (eng *Engine) PrintUntil(s *State, src, terminator Expr, cmp cellval.Cmp, upperBound, sz int, bigEndian bool) error {
	_, str, err := eng.GetBytes(s, src, terminator, cmp, upperBound, sz, bigEndian)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(eng.Out, str)
	return err
}

func (eng *Engine) PrintBytes(vals []cellval.Value) error {
	for _, v := range vals {
		c, err := v.ToChar()
		if err != nil {
			return fmt.Errorf("%w: %v", domainerr.Concretization, err)
		}
		if _, err := eng.Out.Write([]byte{c}); err != nil {
			return err
		}
	}
	return nil
}

// ToHex is the pure hex formatter shared by CopyHex and PrintHex (spec.md
// §4.7). When fullPrint is requested and the value is tainted, the
// format is "value!taint" instead of bare "value", where taint is the
// value's full per-bit taint mask in hex.
func ToHex(v cellval.Value, wordBits int, capitalise, fullPrint bool) (string, error) {
	z, err := v.ToZ()
	if err != nil {
		return "", err
	}
	digits := wordBits / 4
	if digits == 0 {
		digits = 1
	}
	format := "0x%0*x"
	if capitalise {
		format = "0x%0*X"
	}
	s := fmt.Sprintf(format, digits, z)
	if fullPrint && v.IsTainted() {
		_, t, err := v.ToString()
		if err != nil {
			return "", err
		}
		s = fmt.Sprintf("%s!%x", s, t.Mask())
	}
	return s, nil
}

// PrintHex formats src as hex and writes it to the engine's output sink.
func (eng *Engine) PrintHex(s *State, src Expr, capitalise, fullPrint bool, bigEndian bool) error {
	v, _, err := eng.EvalExpr(s, src, bigEndian)
	if err != nil {
		return err
	}
	str, err := ToHex(v, v.Bits(), capitalise, fullPrint)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerr.Concretization, err)
	}
	_, err = fmt.Fprint(eng.Out, str)
	return err
}

// CopyHex implements spec.md §4.7's copy_hex: format src as hex, strip
// its "0x" prefix, pad to exactly nb characters, then write each
// character as an 8-bit cell. A multi-address destination degrades
// precision to Top everywhere (spec.md §9), rather than enumerating.
func (eng *Engine) CopyHex(s *State, dst, src Expr, nb int, capitalise bool, pad *Pad, wordBits int, bigEndian bool) (*State, error) {
	v, srcTainted, err := eng.EvalExpr(s, src, bigEndian)
	if err != nil {
		return nil, err
	}
	hex, err := ToHex(v, wordBits, capitalise, false)
	if err != nil {
		return Bot(), nil
	}
	hex = strings.TrimPrefix(hex, "0x")

	if pad != nil {
		if pad.PadLeft {
			panic("domain: left padding is not supported")
		}
		for len(hex) < nb {
			c, cerr := pad.Char.ToChar()
			if cerr != nil {
				return Bot(), nil
			}
			hex += string(c)
		}
	}
	if len(hex) > nb {
		hex = hex[:nb]
	} else if len(hex) < nb {
		for len(hex) < nb {
			hex += "0"
		}
	}

	dstVal, _, err := eng.EvalExpr(s, dst, bigEndian)
	if err != nil {
		return nil, err
	}
	dstAddrs, err := dstVal.ToAddresses()
	if err != nil {
		return Bot(), nil
	}
	if len(dstAddrs) != 1 {
		return eng.Forget(s, nil), nil
	}

	cellTainted := srcTainted
	cur := s
	for i := 0; i < len(hex); i++ {
		cell := eng.Factory.OfWord(mach.NewWord(uint64(hex[i]), 8))
		if cellTainted {
			cell = cell.Taint()
		}
		cur, err = eng.WriteInMemory(cur, dstAddrs[0].Add(int64(i)), cell, 8, true, bigEndian)
		if err != nil {
			return Bot(), nil
		}
	}
	return cur, nil
}
