// Package bytecode defines Chunk, the immutable unit of compiled code the
// VM executes. A Chunk is produced by
// a compiler — out of scope for this runtime core — and consumed by
// package vm. Builder exists so tests and host code can assemble Chunks
// directly, without a compiler front-end.
package bytecode

import (
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/op"
)

// FunctionTemplate is the static, shareable description of a function or
// generator body. Multiple Value closures at runtime may reference the
// same FunctionTemplate.
type FunctionTemplate struct {
	Name               string
	Chunk              *Chunk
	ArgCount           int
	Variadic           bool
	ArgIsUnpackedTuple bool
	Generator          bool
}

// Chunk is an immutable bytecode unit: an instruction stream, a constant
// pool, optional debug spans, and nested chunks for inner function
// bodies.
type Chunk struct {
	id            string
	Name          string
	Instructions  []uint16
	Constants     []any
	Locations     []errz.SourceLocation // one entry per instruction word (opcode and each operand)
	Children      []*Chunk
	RegisterCount int
	Source        string
	Filename      string
}

// NewChunk builds an immutable Chunk and assigns it a unique ID.
func NewChunk(name string, instructions []uint16, constants []any, locations []errz.SourceLocation, children []*Chunk, registerCount int) *Chunk {
	id, err := uuid.NewV4()
	idStr := ""
	if err == nil {
		idStr = id.String()
	}
	instrCopy := make([]uint16, len(instructions))
	copy(instrCopy, instructions)
	constCopy := make([]any, len(constants))
	copy(constCopy, constants)
	locCopy := make([]errz.SourceLocation, len(locations))
	copy(locCopy, locations)
	childCopy := make([]*Chunk, len(children))
	copy(childCopy, children)
	return &Chunk{
		id:            idStr,
		Name:          name,
		Instructions:  instrCopy,
		Constants:     constCopy,
		Locations:     locCopy,
		Children:      childCopy,
		RegisterCount: registerCount,
	}
}

// ID returns the Chunk's unique identifier.
func (c *Chunk) ID() string {
	return c.id
}

// LocationAt returns the source location recorded for the instruction
// starting at word index ip, or the zero SourceLocation if none was
// recorded.
func (c *Chunk) LocationAt(ip int) errz.SourceLocation {
	if ip < 0 || ip >= len(c.Locations) {
		return errz.SourceLocation{}
	}
	return c.Locations[ip]
}

// Opcode returns the opcode at instruction word index ip.
func (c *Chunk) Opcode(ip int) op.Code {
	return op.Code(c.Instructions[ip])
}

// Operand returns instruction word ip+offset as a plain uint16 operand.
func (c *Chunk) Operand(ip, offset int) uint16 {
	return c.Instructions[ip+offset]
}

// Child returns the nested chunk at the given index, used by MakeFunction.
func (c *Chunk) Child(index int) (*Chunk, error) {
	if index < 0 || index >= len(c.Children) {
		return nil, fmt.Errorf("bytecode: chunk index %d out of range (have %d children)", index, len(c.Children))
	}
	return c.Children[index], nil
}

// Constant returns the constant-pool entry at the given index.
func (c *Chunk) Constant(index int) (any, error) {
	if index < 0 || index >= len(c.Constants) {
		return nil, fmt.Errorf("bytecode: constant index %d out of range (have %d constants)", index, len(c.Constants))
	}
	return c.Constants[index], nil
}
