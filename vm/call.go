package vm

import (
	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/value"
)

// reg reads register r relative to cur's window.
func (v *VirtualMachine) reg(cur *frame, r uint16) value.Value {
	return v.registers[cur.base+int(r)]
}

// setReg writes register r relative to cur's window.
func (v *VirtualMachine) setReg(cur *frame, r uint16, val value.Value) {
	v.registers[cur.base+int(r)] = val
}

// setAbs writes an absolute register index, used to deliver a Return
// value into the caller's window once the callee's frame is popped.
func (v *VirtualMachine) setAbs(index int, val value.Value) {
	v.registers[index] = val
}

// regSlice copies count registers starting at start (relative to cur's
// window) into a fresh slice. A copy, not a view, because pushFrame may
// grow v.registers (reallocating its backing array) before the values are
// consumed.
func (v *VirtualMachine) regSlice(cur *frame, start uint16, count int) []value.Value {
	out := make([]value.Value, count)
	copy(out, v.registers[cur.base+int(start):cur.base+int(start)+count])
	return out
}

// growRegisters extends the register file so that window [base, base+n)
// is addressable, reporting a StackOverflow error if that would exceed
// the VM's configured limit.
func (v *VirtualMachine) growRegisters(base, n int, loc errz.SourceLocation) error {
	need := base + n
	if need > v.stackSizeLimit {
		return errz.StackOverflowErrorf(loc, "register file would grow to %d, exceeding limit %d", need, v.stackSizeLimit)
	}
	for len(v.registers) < need {
		v.registers = append(v.registers, value.Null)
	}
	return nil
}

// pushFrame allocates a new register window at the top of the register
// file and a new frame for it, populating the window with args (applying
// the callable's arity policy) and, for closures, with captures placed
// at the upper end of the window.
func (v *VirtualMachine) pushFrame(tmpl *bytecode.FunctionTemplate, fn *value.Function, args []value.Value, returnIP, returnBase, resultReg int) (*frame, error) {
	if len(v.frames) >= v.callDepthLimit {
		return nil, errz.StackOverflowErrorf(errz.SourceLocation{}, "call stack depth exceeded limit %d", v.callDepthLimit)
	}

	var captures *value.List
	if fn != nil {
		captures = fn.Captures
	}
	capCount := 0
	if captures != nil {
		capCount = captures.Len()
	}

	windowSize := tmpl.Chunk.RegisterCount
	if windowSize < tmpl.ArgCount {
		windowSize = tmpl.ArgCount
	}
	if windowSize < capCount {
		windowSize = capCount
	}

	base := len(v.registers)
	loc := tmpl.Chunk.LocationAt(0)
	if err := v.growRegisters(base, windowSize, loc); err != nil {
		return nil, err
	}

	params, err := bindArgs(tmpl, args)
	if err != nil {
		return nil, err
	}
	for i, p := range params {
		if i >= windowSize {
			break
		}
		v.registers[base+i] = p
	}
	if capCount > 0 {
		capStart := windowSize - capCount
		for i, item := range captures.Items() {
			v.registers[base+capStart+i] = item
		}
	}

	f := &frame{
		chunk:      tmpl.Chunk,
		ip:         0,
		base:       base,
		returnIP:   returnIP,
		returnBase: returnBase,
		resultReg:  resultReg,
		fn:         fn,
		captures:   captures,
	}
	v.frames = append(v.frames, f)
	return f, nil
}

// bindArgs applies the per-callable arity policy: strict arity for plain
// (non-variadic, non-unpacking) functions, Null-padding for variadic and
// arg_is_unpacked_tuple functions.
func bindArgs(tmpl *bytecode.FunctionTemplate, args []value.Value) ([]value.Value, error) {
	if tmpl.ArgIsUnpackedTuple && len(args) == 1 {
		if tup, ok := args[0].(*value.Tuple); ok {
			args = tup.Items()
		}
	}

	if tmpl.Variadic {
		out := make([]value.Value, tmpl.ArgCount)
		for i := 0; i < tmpl.ArgCount-1 && i < len(args); i++ {
			out[i] = args[i]
		}
		for i := len(args); i < tmpl.ArgCount-1; i++ {
			out[i] = value.Null
		}
		if tmpl.ArgCount > 0 {
			var extra []value.Value
			if len(args) >= tmpl.ArgCount {
				extra = append(extra, args[tmpl.ArgCount-1:]...)
			}
			out[tmpl.ArgCount-1] = value.NewTuple(extra)
		}
		return out, nil
	}

	if tmpl.ArgIsUnpackedTuple {
		out := make([]value.Value, tmpl.ArgCount)
		for i := 0; i < tmpl.ArgCount; i++ {
			if i < len(args) {
				out[i] = args[i]
			} else {
				out[i] = value.Null
			}
		}
		return out, nil
	}

	if len(args) != tmpl.ArgCount {
		return nil, errz.ArityErrorf(errz.SourceLocation{}, "expected %d argument(s), got %d", tmpl.ArgCount, len(args))
	}
	return args, nil
}

// popFrame pops and returns the top frame, truncating the register file
// back to that frame's base so the window it used is released.
func (v *VirtualMachine) popFrame() *frame {
	n := len(v.frames)
	f := v.frames[n-1]
	v.frames = v.frames[:n-1]
	v.registers = v.registers[:f.base]
	return f
}

// dispatchCall implements the Call-instruction's per-variant behavior. It
// returns either a completed result (pushed=false) or a newly pushed
// frame the caller's dispatch loop should continue executing
// (pushed=true).
func (v *VirtualMachine) dispatchCall(fn value.Value, args []value.Value, caller *frame, returnIP, returnBase, resultReg int) (result value.Value, pushed bool, newFrame *frame, err error) {
	loc := errz.SourceLocation{}
	if caller != nil {
		loc = location(caller)
	}

	switch callee := fn.(type) {
	case *value.Function:
		if callee.IsGenerator() {
			it, err := v.spawnGenerator(callee, args)
			if err != nil {
				return nil, false, nil, err
			}
			return it, false, nil, nil
		}
		f, err := v.pushFrame(callee.Template, callee, args, returnIP, returnBase, resultReg)
		if err != nil {
			return nil, false, nil, err
		}
		return nil, true, f, nil

	case *value.ExternalFunction:
		result, err := callee.Call(v, args)
		if err != nil {
			if _, ok := err.(*errz.Error); !ok {
				err = errz.ExternalErrorf(loc, "%s", err.Error())
			}
			return nil, false, nil, err
		}
		return result, false, nil, nil

	case *value.Map:
		if metaFn, ok := callee.GetMeta(value.MetaCall); ok {
			boundArgs := append([]value.Value{callee}, args...)
			return v.dispatchCall(metaFn, boundArgs, caller, returnIP, returnBase, resultReg)
		}
		return nil, false, nil, errz.TypeErrorf(loc, "value is not callable: %s", fn.Type())

	default:
		return nil, false, nil, errz.TypeErrorf(loc, "value is not callable: %s", fn.Type())
	}
}
