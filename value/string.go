package value

// String is Koto's immutable UTF-8 text value. Its handle is shared and
// cheap to clone: cloning a *String just copies the pointer since the
// underlying bytes never change.
type String struct {
	value string
}

func NewString(s string) *String {
	return &String{value: s}
}

func (s *String) Type() Type     { return TypeString }
func (s *String) String() string { return s.value }
func (s *String) IsTruthy() bool { return len(s.value) > 0 }
func (s *String) Value() string  { return s.value }
func (s *String) HashKey() HashKey {
	return HashKey{Type: TypeString, Key: s.value}
}

// Len returns the number of runes (characters), not bytes.
func (s *String) Len() int {
	return len([]rune(s.value))
}

// Index returns the character at position i, resolving negative indices
// by adding Len() first.
func (s *String) Index(i int64) (*String, bool) {
	runes := []rune(s.value)
	n := int64(len(runes))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, false
	}
	return NewString(string(runes[i])), true
}

func (s *String) Iter() Iterator {
	return &stringIterator{runes: []rune(s.value)}
}

type stringIterator struct {
	runes []rune
	pos   int
}

func (it *stringIterator) Type() Type     { return TypeIterator }
func (it *stringIterator) String() string { return "iterator(string)" }
func (it *stringIterator) IsTruthy() bool { return true }

func (it *stringIterator) Next() IterResult {
	if it.pos >= len(it.runes) {
		return IterResult{Outcome: IterDone}
	}
	r := it.runes[it.pos]
	it.pos++
	return IterResult{Outcome: IterValue, Val: NewString(string(r))}
}

func (it *stringIterator) DeepCopy() Iterator {
	cp := make([]rune, len(it.runes))
	copy(cp, it.runes)
	return &stringIterator{runes: cp, pos: it.pos}
}
