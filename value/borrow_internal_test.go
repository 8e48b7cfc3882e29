package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMapWithMutableBorrowDetectsReentrancy exercises the guard directly
// (white-box, since borrowed is unexported): a mutation attempted while
// another mutation on the same Map is already in flight must fail with
// ErrBorrowed rather than corrupt shared state.
func TestMapWithMutableBorrowDetectsReentrancy(t *testing.T) {
	m := NewMap()
	outer := m.withMutableBorrow(func() error {
		return m.withMutableBorrow(func() error { return nil })
	})
	assert.True(t, errors.Is(outer, ErrBorrowed))
	assert.False(t, m.borrowed, "borrow flag must be released even though the inner call failed")
}

func TestListWithMutableBorrowDetectsReentrancy(t *testing.T) {
	l := NewList(nil)
	outer := l.withMutableBorrow(func() error {
		return l.withMutableBorrow(func() error { return nil })
	})
	assert.True(t, errors.Is(outer, ErrBorrowed))
	assert.False(t, l.borrowed, "borrow flag must be released even though the inner call failed")
}
