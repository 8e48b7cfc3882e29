package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/op"
)

func TestBuilderRoundTrip(t *testing.T) {
	b := bytecode.NewBuilder("main")
	k := b.Constant("hello")
	b.Emit(op.LoadConst, 0, k)
	b.Emit(op.Return, 0)
	chunk := b.Build()

	require.NotEmpty(t, chunk.ID(), "every chunk gets a unique id")
	assert.Equal(t, op.LoadConst, chunk.Opcode(0))
	assert.Equal(t, uint16(0), chunk.Operand(0, 1))
	assert.Equal(t, k, chunk.Operand(0, 2))

	c, err := chunk.Constant(int(k))
	require.NoError(t, err)
	assert.Equal(t, "hello", c)
}

func TestTwoChunksHaveDistinctIDs(t *testing.T) {
	a := bytecode.NewBuilder("a").Build()
	b := bytecode.NewBuilder("b").Build()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestValidateCatchesOutOfRangeConstant(t *testing.T) {
	b := bytecode.NewBuilder("bad")
	b.Emit(op.LoadConst, 0, 99)
	b.Emit(op.Return, 0)
	chunk := b.Build()

	err := bytecode.Validate(chunk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-of-range constant")
}

func TestValidateCatchesUnknownOpcode(t *testing.T) {
	b := bytecode.NewBuilder("bad")
	b.Emit(op.Code(9999))
	chunk := b.Build()

	err := bytecode.Validate(chunk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown opcode")
}

func TestValidateRecursesIntoChildren(t *testing.T) {
	child := bytecode.NewBuilder("child")
	child.Emit(op.LoadConst, 0, 42)
	badChild := child.Build()

	parent := bytecode.NewBuilder("parent")
	ci := parent.Child(badChild)
	parent.Emit(op.MakeFunction, 0, ci, 0, 0, 0)
	chunk := parent.Build()

	err := bytecode.Validate(chunk)
	require.Error(t, err, "an invalid nested chunk must surface through its parent's validation")
}

func TestValidatePassesOnWellFormedChunk(t *testing.T) {
	b := bytecode.NewBuilder("ok")
	k := b.Constant("x")
	b.Emit(op.LoadConst, 0, k)
	b.Emit(op.Return, 0)
	chunk := b.Build()
	assert.NoError(t, bytecode.Validate(chunk))
}
