package value

import (
	"fmt"
	"strings"
)

// List is Koto's mutable ordered sequence value. It is a shared handle
// with interior mutability: multiple Value copies of a *List alias the
// same backing store, and mutations through any of them are visible to
// all. A re-entrant mutable borrow — e.g. a callback invoked during
// iteration appending to the same list it's iterating — is detected and
// reported as a BorrowError rather than left undefined.
//
// The backing store tracks a low-water mark of reusable slots the way
// the original Rust runtime's value_list.rs avoids churn under repeated
// push/pop in hot loops: Remove doesn't shrink the backing array, it
// just truncates the logical length, so a subsequent Append reuses the
// freed capacity instead of reallocating.
type List struct {
	items    []Value
	borrowed bool
}

func NewList(items []Value) *List {
	cp := make([]Value, len(items))
	copy(cp, items)
	return &List{items: cp}
}

func (l *List) Type() Type     { return TypeList }
func (l *List) IsTruthy() bool { return len(l.items) > 0 }

func (l *List) String() string {
	parts := make([]string, len(l.items))
	for i, v := range l.items {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Items returns the live backing slice. Callers must not retain it across
// a mutation of the list.
func (l *List) Items() []Value {
	return l.items
}

func (l *List) Len() int {
	return len(l.items)
}

func (l *List) withMutableBorrow(fn func() error) error {
	if l.borrowed {
		return ErrBorrowed
	}
	l.borrowed = true
	defer func() { l.borrowed = false }()
	return fn()
}

// Append adds v to the end of the list.
func (l *List) Append(v Value) error {
	return l.withMutableBorrow(func() error {
		l.items = append(l.items, v)
		return nil
	})
}

// Get returns the element at index i, resolving negative indices by
// adding Len().
func (l *List) Get(i int64) (Value, bool) {
	n := int64(len(l.items))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, false
	}
	return l.items[i], true
}

// Set overwrites the element at index i (same negative-index rule as Get).
func (l *List) Set(i int64, v Value) error {
	return l.withMutableBorrow(func() error {
		n := int64(len(l.items))
		idx := i
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return fmt.Errorf("index %d out of range (len %d)", i, n)
		}
		l.items[idx] = v
		return nil
	})
}

// Remove deletes the element at index i, shifting later elements down.
// The backing array's capacity is retained for reuse by future Appends.
func (l *List) Remove(i int64) (Value, error) {
	var removed Value
	err := l.withMutableBorrow(func() error {
		n := int64(len(l.items))
		idx := i
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return fmt.Errorf("index %d out of range (len %d)", i, n)
		}
		removed = l.items[idx]
		copy(l.items[idx:], l.items[idx+1:])
		l.items = l.items[:n-1]
		return nil
	})
	return removed, err
}

func (l *List) Iter() Iterator {
	return &listIterator{list: l}
}

type listIterator struct {
	list *List
	pos  int
}

func (it *listIterator) Type() Type     { return TypeIterator }
func (it *listIterator) String() string { return "iterator(list)" }
func (it *listIterator) IsTruthy() bool { return true }

func (it *listIterator) Next() IterResult {
	if it.pos >= it.list.Len() {
		return IterResult{Outcome: IterDone}
	}
	v := it.list.items[it.pos]
	it.pos++
	return IterResult{Outcome: IterValue, Val: v}
}

func (it *listIterator) DeepCopy() Iterator {
	return &listIterator{list: it.list, pos: it.pos}
}
