// Package dis disassembles a Chunk's instruction stream into a readable
// form: one Instruction per opcode, annotated with constant-pool values
// and operand meanings where useful.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/op"
)

// Instruction is one disassembled opcode and its operands.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   []uint16
	Annotation string
}

// Disassemble walks a Chunk's instruction stream into a flat list of
// Instructions. Nested chunks (inner function bodies) are not recursed
// into automatically; callers disassemble them explicitly via
// Chunk.Child.
func Disassemble(c *bytecode.Chunk) ([]Instruction, error) {
	var out []Instruction
	ip := 0
	for ip < len(c.Instructions) {
		code := c.Opcode(ip)
		info := op.GetInfo(code)
		if info.Name == "" {
			return nil, fmt.Errorf("dis: unknown opcode %d at word %d", code, ip)
		}
		operands := make([]uint16, info.OperandCount)
		for i := range operands {
			operands[i] = c.Operand(ip, 1+i)
		}
		out = append(out, Instruction{
			Offset:     ip,
			Name:       info.Name,
			Opcode:     code,
			Operands:   operands,
			Annotation: annotate(c, code, operands),
		})
		ip += 1 + info.OperandCount
	}
	return out, nil
}

func annotate(c *bytecode.Chunk, code op.Code, operands []uint16) string {
	switch code {
	case op.LoadConst:
		if v, err := c.Constant(int(operands[1])); err == nil {
			return fmt.Sprintf("%v", v)
		}
	case op.LoadGlobal, op.StoreGlobal:
		constIdx := operands[1]
		if code == op.StoreGlobal {
			constIdx = operands[0]
		}
		if v, err := c.Constant(int(constIdx)); err == nil {
			return fmt.Sprintf("%v", v)
		}
	case op.MakeFunction:
		if child, err := c.Child(int(operands[1])); err == nil {
			return child.Name
		}
	}
	return ""
}

// Print writes a disassembly listing to w, colorizing the opcode name
// when useColor is set.
func Print(instrs []Instruction, w io.Writer, useColor bool) {
	name := func(s string) string { return s }
	if useColor {
		bold := color.New(color.Bold).SprintFunc()
		name = bold
	}
	for _, ins := range instrs {
		operandStrs := make([]string, len(ins.Operands))
		for i, o := range ins.Operands {
			operandStrs[i] = fmt.Sprintf("%d", o)
		}
		line := fmt.Sprintf("%6d  %-18s %s", ins.Offset, name(ins.Name), strings.Join(operandStrs, ", "))
		if ins.Annotation != "" {
			line += "  ; " + ins.Annotation
		}
		fmt.Fprintln(w, line)
	}
}

// PrintAnnotated interleaves the same listing with source lines, using
// each instruction's chunk location.
func PrintAnnotated(c *bytecode.Chunk, instrs []Instruction, w io.Writer, useColor bool) {
	sourceLines := strings.Split(c.Source, "\n")
	dim := func(s string) string { return s }
	if useColor {
		dim = color.New(color.Faint).SprintFunc()
	}
	lastLine := -1
	for _, ins := range instrs {
		loc := c.LocationAt(ins.Offset)
		if loc.Line > 0 && loc.Line != lastLine {
			if loc.Line-1 < len(sourceLines) {
				fmt.Fprintln(w, dim(fmt.Sprintf("  %d | %s", loc.Line, sourceLines[loc.Line-1])))
			}
			lastLine = loc.Line
		}
		operandStrs := make([]string, len(ins.Operands))
		for i, o := range ins.Operands {
			operandStrs[i] = fmt.Sprintf("%d", o)
		}
		line := fmt.Sprintf("%6d  %-18s %s", ins.Offset, ins.Name, strings.Join(operandStrs, ", "))
		if ins.Annotation != "" {
			line += "  ; " + ins.Annotation
		}
		fmt.Fprintln(w, "      "+line)
	}
}
