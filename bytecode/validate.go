package bytecode

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/kotolang/koto/op"
)

// Validate checks a Chunk's structural invariants before the VM loads it:
// operand counts match each opcode's declared arity, constant-pool and
// child-chunk indices stay in range, and jump targets land inside the
// instruction stream. Every problem found is collected into one
// aggregate error rather than stopping at the first.
func Validate(c *Chunk) error {
	var result *multierror.Error
	instrLen := len(c.Instructions)

	for ip := 0; ip < instrLen; {
		code := op.Code(c.Instructions[ip])
		info := op.GetInfo(code)
		if info.Name == "" {
			result = multierror.Append(result, fmt.Errorf("chunk %q: unknown opcode %d at word %d", c.Name, code, ip))
			ip++
			continue
		}
		end := ip + 1 + info.OperandCount
		if end > instrLen {
			result = multierror.Append(result, fmt.Errorf("chunk %q: opcode %s at word %d truncated (needs %d operand words, only %d remain)",
				c.Name, info.Name, ip, info.OperandCount, instrLen-ip-1))
			break
		}
		if err := validateOperands(c, code, ip); err != nil {
			result = multierror.Append(result, err)
		}
		ip = end
	}

	for i, child := range c.Children {
		if child == nil {
			result = multierror.Append(result, fmt.Errorf("chunk %q: nil child chunk at index %d", c.Name, i))
			continue
		}
		if err := Validate(child); err != nil {
			result = multierror.Append(result, fmt.Errorf("chunk %q: child %d: %w", c.Name, i, err))
		}
	}

	if c.RegisterCount < 0 {
		result = multierror.Append(result, fmt.Errorf("chunk %q: negative register count %d", c.Name, c.RegisterCount))
	}

	return result.ErrorOrNil()
}

func validateOperands(c *Chunk, code op.Code, ip int) error {
	switch code {
	case op.LoadConst:
		k := int(c.Instructions[ip+2])
		if k < 0 || k >= len(c.Constants) {
			return fmt.Errorf("chunk %q: LOAD_CONST at word %d references out-of-range constant %d", c.Name, ip, k)
		}
	case op.MakeFunction:
		chunkIndex := int(c.Instructions[ip+2])
		if chunkIndex < 0 || chunkIndex >= len(c.Children) {
			return fmt.Errorf("chunk %q: MAKE_FUNCTION at word %d references out-of-range chunk index %d", c.Name, ip, chunkIndex)
		}
	case op.Jump, op.JumpIfTrue, op.JumpIfFalse, op.IterNext, op.IterNextTemp:
		// The jump offset is the last operand word, signed and relative to
		// the word after the instruction.
		info := op.GetInfo(code)
		end := ip + 1 + info.OperandCount
		target := end + int(int16(c.Instructions[end-1]))
		if target < 0 || target >= len(c.Instructions) {
			return fmt.Errorf("chunk %q: %s at word %d jumps to out-of-range word %d", c.Name, info.Name, ip, target)
		}
	}
	return nil
}
