package vm

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/dis"
)

// printBytecode prints chunk's disassembly to stdout before the VM starts
// dispatching it, when showBytecode or showAnnotated is set.
func (v *VirtualMachine) printBytecode(chunk *bytecode.Chunk) {
	if !v.showBytecode && !v.showAnnotated {
		return
	}
	instrs, err := dis.Disassemble(chunk)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	useColor := !color.NoColor
	if v.showAnnotated {
		dis.PrintAnnotated(chunk, instrs, os.Stdout, useColor)
	} else {
		dis.Print(instrs, os.Stdout, useColor)
	}
}
