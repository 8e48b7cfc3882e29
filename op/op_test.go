package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(Index)
	assert.Equal(t, "INDEX", info.Name)
	assert.Equal(t, 3, info.OperandCount)
	assert.Equal(t, Index, info.Code)
}

func TestGetInfoUnknownOpcode(t *testing.T) {
	info := GetInfo(Code(9999))
	assert.Equal(t, "", info.Name)
}

func TestBinaryOpTypeString(t *testing.T) {
	assert.Equal(t, "+", OpAdd.String())
	assert.Equal(t, "<=", OpLe.String())
	assert.Equal(t, "?", BinaryOpType(9999).String())
}
