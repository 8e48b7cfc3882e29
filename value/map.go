package value

import (
	"fmt"
	"strings"
)

// Well-known meta-map keys.
const (
	MetaType     = "Type"
	MetaCall     = "Call"
	MetaIndex    = "Index"
	MetaAdd      = "Add"
	MetaSubtract = "Subtract"
	MetaMultiply = "Multiply"
	MetaDivide   = "Divide"
	MetaModulo   = "Modulo"
	MetaEqual    = "Equal"
	MetaLess     = "Less"
	MetaDisplay  = "Display"
	MetaIterator = "Iterator"
	MetaNext     = "Next"
	MetaPreTest  = "PreTest"
	MetaPostTest = "PostTest"
	MetaMain     = "@main"
	MetaTests    = "@tests"
)

// Map is Koto's insertion-ordered key-value container with an optional
// meta-map holding operator overloads and protocol hooks.
// It is a shared handle with interior mutability, guarded against
// re-entrant mutable borrows the same way *List is.
type Map struct {
	items    map[HashKey]Value
	keys     map[HashKey]Value // original key Value, for iteration/display
	order    []HashKey
	meta     *Map
	borrowed bool
}

func NewMap() *Map {
	return &Map{items: map[HashKey]Value{}, keys: map[HashKey]Value{}}
}

func (m *Map) Type() Type { return TypeMap }

func (m *Map) IsTruthy() bool { return len(m.order) > 0 }

func (m *Map) String() string {
	parts := make([]string, 0, len(m.order))
	for _, k := range m.order {
		parts = append(parts, fmt.Sprintf("%s: %s", m.keys[k].String(), m.items[k].String()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *Map) Len() int {
	return len(m.order)
}

func (m *Map) withMutableBorrow(fn func() error) error {
	if m.borrowed {
		return ErrBorrowed
	}
	m.borrowed = true
	defer func() { m.borrowed = false }()
	return fn()
}

// KeyOf produces the HashKey for a Value, returning ok=false if the value
// is not Hashable.
func KeyOf(v Value) (HashKey, bool) {
	if t, ok := v.(*Tuple); ok {
		return t.HashKey()
	}
	if h, ok := v.(Hashable); ok {
		return h.HashKey(), true
	}
	return HashKey{}, false
}

// Insert sets key to val, preserving insertion order for new keys.
func (m *Map) Insert(key, val Value) error {
	hk, ok := KeyOf(key)
	if !ok {
		return fmt.Errorf("unhashable type used as map key: %s", key.Type())
	}
	return m.withMutableBorrow(func() error {
		if _, exists := m.items[hk]; !exists {
			m.order = append(m.order, hk)
		}
		m.items[hk] = val
		m.keys[hk] = key
		return nil
	})
}

// Get looks up a value by key.
func (m *Map) Get(key Value) (Value, bool) {
	hk, ok := KeyOf(key)
	if !ok {
		return nil, false
	}
	return m.getByKey(hk)
}

func (m *Map) getByKey(hk HashKey) (Value, bool) {
	v, ok := m.items[hk]
	return v, ok
}

// Delete removes key from the map, reporting whether it was present.
func (m *Map) Delete(key Value) (bool, error) {
	hk, ok := KeyOf(key)
	if !ok {
		return false, fmt.Errorf("unhashable type used as map key: %s", key.Type())
	}
	found := false
	err := m.withMutableBorrow(func() error {
		if _, exists := m.items[hk]; exists {
			found = true
			delete(m.items, hk)
			delete(m.keys, hk)
			for i, k := range m.order {
				if k == hk {
					m.order = append(m.order[:i], m.order[i+1:]...)
					break
				}
			}
		}
		return nil
	})
	return found, err
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	out := make([]Value, len(m.order))
	for i, k := range m.order {
		out[i] = m.keys[k]
	}
	return out
}

// SetMetaMap installs a meta-map for operator overloads and protocol hooks.
func (m *Map) SetMetaMap(meta *Map) {
	m.meta = meta
}

func (m *Map) MetaMap() *Map {
	return m.meta
}

// GetMeta reads a well-known meta-key from the meta-map, if any.
func (m *Map) GetMeta(key string) (Value, bool) {
	if m.meta == nil {
		return nil, false
	}
	return m.meta.Get(NewString(key))
}

func (m *Map) Iter() Iterator {
	return &mapIterator{m: m}
}

func (m *Map) deepCopy() *Map {
	cp := NewMap()
	for _, hk := range m.order {
		cp.order = append(cp.order, hk)
		cp.items[hk] = DeepCopy(m.items[hk])
		cp.keys[hk] = m.keys[hk]
	}
	if m.meta != nil {
		cp.meta = m.meta.deepCopy()
	}
	return cp
}

type mapIterator struct {
	m   *Map
	pos int
}

func (it *mapIterator) Type() Type     { return TypeIterator }
func (it *mapIterator) String() string { return "iterator(map)" }
func (it *mapIterator) IsTruthy() bool { return true }

func (it *mapIterator) Next() IterResult {
	if it.pos >= len(it.m.order) {
		return IterResult{Outcome: IterDone}
	}
	hk := it.m.order[it.pos]
	it.pos++
	return IterResult{Outcome: IterPair, Key: it.m.keys[hk], Val: it.m.items[hk]}
}

func (it *mapIterator) DeepCopy() Iterator {
	return &mapIterator{m: it.m, pos: it.pos}
}
