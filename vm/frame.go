package vm

import (
	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/value"
)

// frame is a per-call activation record: the function's register window
// (a base offset into the VM's shared register file), the return
// address, and bookkeeping needed to resume the caller. A frame owns no
// private locals array of its own; it carves a window into one shared,
// growable register file.
type frame struct {
	chunk      *bytecode.Chunk
	ip         int
	opIP       int // word index of the instruction currently executing, for error locations
	base       int
	returnIP   int
	returnBase int
	resultReg  int // register in the caller's window to receive the return value
	fn         *value.Function
	captures   *value.List
}
