// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cellval

import (
	"math/big"

	"github.com/taintcore/undom/internal/config"
	"github.com/taintcore/undom/internal/mach"
	"github.com/taintcore/undom/internal/taint"
)

// ConcreteFactory builds Val instances: the static half of the
// concrete-with-taint V instantiation.
type ConcreteFactory struct{}

var _ Factory = ConcreteFactory{}

func (ConcreteFactory) Bot(bits int) Value {
	return Val{bits: bits, isBot: true}
}

func (ConcreteFactory) Top(bits int) Value {
	return Val{bits: bits, isTop: true, tnt: taint.None(bits)}
}

func (ConcreteFactory) OfWord(w mach.Word) Value {
	return Val{bits: w.Bits, v: w.Value, tnt: taint.None(w.Bits)}
}

func (ConcreteFactory) OfConfig(region config.Region, content config.Content, bits int) (Value, error) {
	out := Val{bits: bits, region: region, hasRegion: true, tnt: taint.None(bits)}
	mask := uint64(1)<<uint(bits) - 1
	if bits >= 64 {
		mask = ^uint64(0)
	}

	switch content.Kind {
	case config.ContentConcrete:
		out.v = content.Z.Uint64() & mask
	case config.ContentConcreteMasked:
		out.v = content.Z.Uint64() & content.Mask.Uint64() & mask
	case config.ContentBytes:
		out.v = bytesToWord(content.Bytes, bits)
	case config.ContentBytesMasked:
		out.v = bytesToWord(content.Bytes, bits) & content.Mask.Uint64() & mask
	default:
		panic("cellval: unknown content kind")
	}
	return out, nil
}

// bytesToWord packs b little-endian into a uint64, truncated to bits.
func bytesToWord(b string, bits int) uint64 {
	z := new(big.Int)
	for i := len(b) - 1; i >= 0; i-- {
		z.Lsh(z, 8)
		z.Or(z, big.NewInt(int64(b[i])))
	}
	if bits < 64 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		z.Mod(z, mod)
	}
	return z.Uint64()
}

func (ConcreteFactory) TaintOfConfig(t config.Taint, bits int, v Value) Value {
	switch {
	case t.All:
		return v.Taint()
	case t.None:
		return v.Untaint()
	case t.Mask != nil:
		return v.SpanTaint(taint.FromMask(t.Mask.Uint64(), bits))
	default:
		return v.Untaint()
	}
}

func (ConcreteFactory) FromPosition(v Value, pos, length int) Value {
	return v.Extract(pos, pos+length-1)
}

func (ConcreteFactory) Concat(parts []Value) Value {
	if len(parts) == 0 {
		return Val{}
	}
	totalBits := 0
	for _, p := range parts {
		totalBits += p.Bits()
	}
	out := Val{bits: totalBits, tnt: taint.None(totalBits)}
	shift := 0
	for _, p := range parts {
		pv := p.(Val)
		if pv.isBot {
			return Val{bits: totalBits, isBot: true}
		}
		if pv.isTop {
			out.isTop = true
		} else if !out.isTop {
			out.v |= pv.v << uint(shift)
		}
		out.tnt = out.tnt.Join(taint.FromMask(pv.tnt.Mask()<<uint(shift), totalBits))
		shift += pv.Bits()
	}
	if out.isTop {
		out.v = 0
	} else {
		out.v &= out.mask()
	}
	return out
}

func (ConcreteFactory) OfRepeatVal(pattern Value, patternBits, n int) Value {
	pv := pattern.(Val)
	totalBits := patternBits * n
	if pv.isBot {
		return Val{bits: totalBits, isBot: true}
	}
	if pv.isTop {
		return Val{bits: totalBits, isTop: true, tnt: taint.All(totalBits)}
	}
	z := new(big.Int)
	unit := new(big.Int).SetUint64(pv.v)
	for i := 0; i < n; i++ {
		z.Lsh(z, uint(patternBits))
		z.Or(z, unit)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(totalBits))
	z.Mod(z, mod)

	tmask := uint64(0)
	if pv.tnt.IsTainted() {
		for i := 0; i < n && i < 64/patternBits+1; i++ {
			tmask |= pv.tnt.Mask() << uint(i*patternBits)
		}
	}
	return Val{bits: totalBits, v: z.Uint64(), tnt: taint.FromMask(tmask, totalBits)}
}
