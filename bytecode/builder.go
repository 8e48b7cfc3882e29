package bytecode

import (
	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/op"
)

// Builder assembles a Chunk by hand. It stands in for the lexer/parser/
// compiler front end, an external collaborator of this runtime: tests
// and host code use it to construct bytecode directly without a
// parser/compiler front end.
type Builder struct {
	name          string
	instructions  []uint16
	constants     []any
	locations     []errz.SourceLocation
	children      []*Chunk
	registerCount int
	source        string
	filename      string
	loc           errz.SourceLocation
}

// NewBuilder creates an empty Builder for a chunk with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// SetLocation sets the source location attached to subsequently emitted
// instructions, until changed again.
func (b *Builder) SetLocation(loc errz.SourceLocation) {
	b.loc = loc
}

// UseRegisters ensures the chunk reports at least n registers required
// per frame.
func (b *Builder) UseRegisters(n int) {
	if n > b.registerCount {
		b.registerCount = n
	}
}

// Constant adds a value to the constant pool and returns its index.
func (b *Builder) Constant(v any) uint16 {
	b.constants = append(b.constants, v)
	return uint16(len(b.constants) - 1)
}

// Child registers a nested Chunk (an inner function body) and returns its
// index, for use as the chunk_index operand of MakeFunction.
func (b *Builder) Child(c *Chunk) uint16 {
	b.children = append(b.children, c)
	return uint16(len(b.children) - 1)
}

// Emit appends an instruction (opcode plus operand words) and returns the
// instruction's starting word index.
func (b *Builder) Emit(code op.Code, operands ...uint16) int {
	ip := len(b.instructions)
	b.instructions = append(b.instructions, uint16(code))
	b.instructions = append(b.instructions, operands...)
	for i := 0; i < len(operands)+1; i++ {
		b.locations = append(b.locations, b.loc)
	}
	return ip
}

// Int64Words splits v into the four big-endian 16-bit words LoadNumber
// takes as its int64 immediate operand.
func Int64Words(v int64) []uint16 {
	u := uint64(v)
	return []uint16{
		uint16(u >> 48),
		uint16(u >> 32),
		uint16(u >> 16),
		uint16(u),
	}
}

// Int64FromWords decodes four 16-bit words (big-endian) back into an int64.
func Int64FromWords(w []uint16) int64 {
	u := uint64(w[0])<<48 | uint64(w[1])<<32 | uint64(w[2])<<16 | uint64(w[3])
	return int64(u)
}

// Here returns the next instruction's word index, for jump target math.
func (b *Builder) Here() int {
	return len(b.instructions)
}

// PatchOperand overwrites the operand word at the given absolute word
// index (used to back-patch forward jump targets once known).
func (b *Builder) PatchOperand(wordIndex int, value uint16) {
	b.instructions[wordIndex] = value
}

// Build finalizes the Builder into an immutable Chunk.
func (b *Builder) Build() *Chunk {
	c := NewChunk(b.name, b.instructions, b.constants, b.locations, b.children, b.registerCount)
	c.Source = b.source
	c.Filename = b.filename
	return c
}

// SetSource attaches source text/filename metadata used for error display.
func (b *Builder) SetSource(source, filename string) {
	b.source = source
	b.filename = filename
}
