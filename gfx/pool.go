// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

// pooled is an object tracked by a pool. T is always a pointer type so
// the zero value means no object.
type pooled interface {
	comparable
	Releasable
	Marked() bool
}

// pool tracks objects of one kind by identity and remembers which one is
// current.
type pool[T pooled, K comparable] struct {
	entries  []T
	identity func(T) K
	cur      T
}

func newPool[T pooled, K comparable](identity func(T) K) *pool[T, K] {
	return &pool[T, K]{identity: identity}
}

// submit tracks obj unless an object with the same identity is tracked
// already, and makes the tracked one current.
func (p *pool[T, K]) submit(obj T) T {
	if found, ok := p.find(p.identity(obj)); ok {
		p.cur = found
		return found
	}
	p.entries = append(p.entries, obj)
	p.cur = obj
	return obj
}

// set moves the selector to obj. The zero value clears it. An untracked
// obj is submitted.
func (p *pool[T, K]) set(obj T) {
	var zero T
	if obj == zero {
		p.cur = zero
		return
	}
	p.submit(obj)
}

func (p *pool[T, K]) current() T {
	return p.cur
}

func (p *pool[T, K]) find(key K) (T, bool) {
	for _, e := range p.entries {
		if p.identity(e) == key {
			return e, true
		}
	}
	var zero T
	return zero, false
}

func (p *pool[T, K]) contains(obj T) bool {
	for _, e := range p.entries {
		if e == obj {
			return true
		}
	}
	return false
}

func (p *pool[T, K]) len() int {
	return len(p.entries)
}

func (p *pool[T, K]) each(fn func(T)) {
	for _, e := range p.entries {
		fn(e)
	}
}

// collect releases and forgets every marked object. The selector is
// cleared when it pointed at one. before runs ahead of each Release.
func (p *pool[T, K]) collect(before func(T)) int {
	var zero T
	kept := p.entries[:0]
	collected := 0
	for _, e := range p.entries {
		if !e.Marked() {
			kept = append(kept, e)
			continue
		}
		if before != nil {
			before(e)
		}
		e.Release()
		if p.cur == e {
			p.cur = zero
		}
		collected++
	}
	clear(p.entries[len(kept):])
	p.entries = kept
	return collected
}

// releaseAll releases every object regardless of marks.
func (p *pool[T, K]) releaseAll() {
	for _, e := range p.entries {
		e.Release()
	}
	var zero T
	p.entries = nil
	p.cur = zero
}
