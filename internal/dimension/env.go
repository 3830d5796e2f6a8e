// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dimension

import (
	"sort"

	"github.com/taintcore/undom/internal/cellval"
)

// entry is one (Dimension, Value) pair in an Env.
type entry struct {
	key Dimension
	val cellval.Value
}

// Env is the ordered, dimension-keyed map backing a Concrete domain state
// (spec.md §4.1). The zero value is an empty Env.
//
// Env values are immutable from the caller's point of view: every mutating
// method returns a new Env and leaves the receiver untouched, matching
// spec.md §5's requirement that join/meet/widen build a fresh environment
// rather than mutate their inputs.
type Env struct {
	entries []entry // kept sorted by Dimension.Less
}

// Empty returns an empty Env.
func Empty() *Env { return &Env{} }

// Len returns the number of keys in env.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.entries)
}

func (e *Env) clone() *Env {
	out := &Env{entries: make([]entry, len(e.entries))}
	copy(out.entries, e.entries)
	return out
}

func (e *Env) searchIndex(k Dimension) (int, bool) {
	n := e.Len()
	i := sort.Search(n, func(i int) bool { return !e.entries[i].key.Less(k) })
	if i < n && e.entries[i].key.Equal(k) {
		return i, true
	}
	return i, false
}

// Find returns the value stored at exactly key k.
func (e *Env) Find(k Dimension) (cellval.Value, bool) {
	i, ok := e.searchIndex(k)
	if !ok {
		return nil, false
	}
	return e.entries[i].val, true
}

// FindBy locates an entry using a ternary comparison predicate (see
// CmpAddr/CmpReg), as required to find a Mem key or an enclosing MemItv by
// query address in O(log n).
func (e *Env) FindBy(cmp func(Dimension) int) (Dimension, cellval.Value, bool) {
	n := e.Len()
	i := sort.Search(n, func(i int) bool { return cmp(e.entries[i].key) <= 0 })
	if i < n && cmp(e.entries[i].key) == 0 {
		return e.entries[i].key, e.entries[i].val, true
	}
	return Dimension{}, nil, false
}

// Add inserts k -> v, which must not already be present (use Replace to
// overwrite an existing key).
func (e *Env) Add(k Dimension, v cellval.Value) *Env {
	out := e.clone()
	i, ok := out.searchIndex(k)
	if ok {
		panic("dimension: Add called on a key that already exists; use Replace")
	}
	out.entries = append(out.entries, entry{})
	copy(out.entries[i+1:], out.entries[i:])
	out.entries[i] = entry{key: k, val: v}
	return out
}

// Replace overwrites the value at k, inserting it if absent.
func (e *Env) Replace(k Dimension, v cellval.Value) *Env {
	out := e.clone()
	i, ok := out.searchIndex(k)
	if ok {
		out.entries[i].val = v
		return out
	}
	out.entries = append(out.entries, entry{})
	copy(out.entries[i+1:], out.entries[i:])
	out.entries[i] = entry{key: k, val: v}
	return out
}

// Remove deletes key k, if present.
func (e *Env) Remove(k Dimension) *Env {
	out := e.clone()
	i, ok := out.searchIndex(k)
	if !ok {
		return out
	}
	out.entries = append(out.entries[:i], out.entries[i+1:]...)
	return out
}

// RemoveAt deletes the entry found at the index located by cmp, if any,
// and returns the new Env (unchanged in content if nothing matched).
func (e *Env) RemoveAt(cmp func(Dimension) int) *Env {
	out := e.clone()
	n := len(out.entries)
	i := sort.Search(n, func(i int) bool { return cmp(out.entries[i].key) <= 0 })
	if i < n && cmp(out.entries[i].key) == 0 {
		out.entries = append(out.entries[:i], out.entries[i+1:]...)
	}
	return out
}

// Keys returns every key currently in env, in sorted order.
func (e *Env) Keys() []Dimension {
	out := make([]Dimension, e.Len())
	for i, ent := range e.entries {
		out[i] = ent.key
	}
	return out
}

// Map returns a new Env with f applied to every value.
func (e *Env) Map(f func(Dimension, cellval.Value) cellval.Value) *Env {
	out := &Env{entries: make([]entry, e.Len())}
	for i, ent := range e.entries {
		out.entries[i] = entry{key: ent.key, val: f(ent.key, ent.val)}
	}
	return out
}

// Fold reduces env's entries in sorted-key order.
func Fold[T any](e *Env, acc T, f func(T, Dimension, cellval.Value) T) T {
	for _, ent := range e.entries {
		acc = f(acc, ent.key, ent.val)
	}
	return acc
}

// ForAll2 reports whether pred holds for every key present in either a or
// b, treating a missing key on one side as nil.
func ForAll2(a, b *Env, pred func(k Dimension, av, bv cellval.Value) bool) bool {
	seen := map[Dimension]bool{}
	ok := true
	walk := func(e *Env) {
		for _, ent := range e.entries {
			if seen[ent.key] {
				continue
			}
			seen[ent.key] = true
			av, _ := a.Find(ent.key)
			bv, _ := b.Find(ent.key)
			if !pred(ent.key, av, bv) {
				ok = false
			}
		}
	}
	walk(a)
	walk(b)
	return ok
}

// Map2 builds a new Env over the union of a's and b's keys, combining
// values with f. A missing side is passed as nil; f decides how to treat
// it (this is how join/meet/widen implement their differing
// missing-key policies, spec.md §4.3).
func Map2(a, b *Env, f func(k Dimension, av, bv cellval.Value) (cellval.Value, bool)) *Env {
	out := &Env{}
	seen := map[Dimension]bool{}
	add := func(e *Env) {
		for _, ent := range e.entries {
			if seen[ent.key] {
				continue
			}
			seen[ent.key] = true
			av, _ := a.Find(ent.key)
			bv, _ := b.Find(ent.key)
			if v, ok := f(ent.key, av, bv); ok {
				out = out.Replace(ent.key, v)
			}
		}
	}
	add(a)
	add(b)
	return out
}
