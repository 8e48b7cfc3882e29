package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/value"
)

// TestWrapContainerErrClassifiesBorrow checks that a re-entrant mutable
// borrow is always reported as a BorrowError, regardless of which
// opcode's fallback error kind it's passed, while any other container
// error keeps that fallback kind.
func TestWrapContainerErrClassifiesBorrow(t *testing.T) {
	v := New()
	f := &frame{chunk: nil}

	borrowErr := v.wrapContainerErr(f, value.ErrBorrowed, errz.UnhashableKeyErrorf)
	assert.Equal(t, errz.ErrBorrow, borrowErr.Kind)

	otherErr := v.wrapContainerErr(f, errz.TypeErrorf(errz.SourceLocation{}, "boom"), errz.UnhashableKeyErrorf)
	assert.Equal(t, errz.ErrUnhashableKey, otherErr.Kind)
}
