package value

import "strings"

// Tuple is Koto's immutable ordered sequence value. Like String, its
// handle is shared and cheap to clone.
type Tuple struct {
	items []Value
}

func NewTuple(items []Value) *Tuple {
	cp := make([]Value, len(items))
	copy(cp, items)
	return &Tuple{items: cp}
}

func (t *Tuple) Type() Type     { return TypeTuple }
func (t *Tuple) IsTruthy() bool { return len(t.items) > 0 }

func (t *Tuple) String() string {
	parts := make([]string, len(t.items))
	for i, v := range t.items {
		parts[i] = v.String()
	}
	suffix := ""
	if len(t.items) == 1 {
		suffix = ","
	}
	return "(" + strings.Join(parts, ", ") + suffix + ")"
}

func (t *Tuple) Len() int {
	return len(t.items)
}

func (t *Tuple) Items() []Value {
	return t.items
}

func (t *Tuple) Get(i int64) (Value, bool) {
	n := int64(len(t.items))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, false
	}
	return t.items[i], true
}

// IsHashable reports whether every element is Hashable, which in turn
// determines whether the Tuple itself is Hashable.
func (t *Tuple) IsHashable() bool {
	for _, item := range t.items {
		if _, ok := item.(Hashable); !ok {
			return false
		}
	}
	return true
}

// HashKey returns the Tuple's key, with ok=false when IsHashable reports
// false. Tuple does not implement Hashable (whose HashKey has no ok
// result) because hashability depends on runtime content, not just the
// type; KeyOf handles Tuples through this method instead.
func (t *Tuple) HashKey() (HashKey, bool) {
	if !t.IsHashable() {
		return HashKey{}, false
	}
	var sb strings.Builder
	for _, item := range t.items {
		h := item.(Hashable)
		k := h.HashKey()
		sb.WriteString(string(k.Type))
		sb.WriteByte(0)
		sb.WriteString(k.Key)
		sb.WriteByte(0)
	}
	return HashKey{Type: TypeTuple, Key: sb.String()}, true
}

func (t *Tuple) Iter() Iterator {
	return &tupleIterator{tuple: t}
}

type tupleIterator struct {
	tuple *Tuple
	pos   int
}

func (it *tupleIterator) Type() Type     { return TypeIterator }
func (it *tupleIterator) String() string { return "iterator(tuple)" }
func (it *tupleIterator) IsTruthy() bool { return true }

func (it *tupleIterator) Next() IterResult {
	if it.pos >= len(it.tuple.items) {
		return IterResult{Outcome: IterDone}
	}
	v := it.tuple.items[it.pos]
	it.pos++
	return IterResult{Outcome: IterValue, Val: v}
}

func (it *tupleIterator) DeepCopy() Iterator {
	return &tupleIterator{tuple: it.tuple, pos: it.pos}
}
