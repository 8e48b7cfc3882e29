// Package vm implements Koto's register-based bytecode virtual machine.
// Unlike a stack machine, frames don't own private locals: they carve a
// window into one shared, growable register file, and opcodes address
// registers relative to the current frame's base offset.
package vm

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/op"
	"github.com/kotolang/koto/value"
)

// VirtualMachine executes compiled Chunks. It owns the register file, the
// frame stack, and the module-global map.
type VirtualMachine struct {
	logger         zerolog.Logger
	stackSizeLimit int
	callDepthLimit int
	showBytecode   bool
	showAnnotated  bool
	scriptArgs     []string

	registers []value.Value
	frames    []*frame
	globals   *value.Map
}

// New constructs a VirtualMachine with the given options applied over its
// built-in defaults.
func New(opts ...Option) *VirtualMachine {
	v := &VirtualMachine{
		logger:         zerolog.Nop(),
		stackSizeLimit: DefaultStackSizeLimit,
		callDepthLimit: DefaultCallDepthLimit,
		globals:        value.NewMap(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Globals returns the module-global map, for host code to read or seed
// values into before and after execution.
func (v *VirtualMachine) Globals() *value.Map {
	return v.globals
}

// runOutcome distinguishes a completed call from one that suspended at a
// Yield instruction.
type runOutcome int

const (
	runReturned runOutcome = iota
	runYielded
)

// activeVM tracks whichever VirtualMachine is currently dispatching, so
// value.RunOperation's single package-level meta-caller hook (which can't
// carry a *VirtualMachine parameter without an import cycle) can reach the
// right instance. Safe because Koto execution is single-goroutine and
// cooperative.
var activeVM *VirtualMachine

func init() {
	value.RegisterMetaCaller(func(fn, a, b value.Value) (value.Value, error) {
		if activeVM == nil {
			return nil, fmt.Errorf("meta operation dispatch outside a running VM")
		}
		return activeVM.Call(fn, []value.Value{a, b})
	})
}

// Run executes chunk as the top-level script, with an optional args list
// exposed to the script as the "args" global.
func (v *VirtualMachine) Run(chunk *bytecode.Chunk) (value.Value, error) {
	args := make([]value.Value, len(v.scriptArgs))
	for i, s := range v.scriptArgs {
		args[i] = value.NewString(s)
	}
	if err := v.globals.Insert(value.NewString("args"), value.NewList(args)); err != nil {
		return nil, err
	}

	v.printBytecode(chunk)

	tmpl := &bytecode.FunctionTemplate{Name: chunkName(chunk), Chunk: chunk, ArgCount: 0}
	f, err := v.pushFrame(tmpl, nil, nil, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	outcome, result, err := v.run(f)
	if err != nil {
		return nil, err
	}
	if outcome == runYielded {
		return nil, errz.RuntimeErrorf(location(f), "yield used outside a generator")
	}
	return result, nil
}

// Call invokes fn with args and runs it to completion, implementing
// value.VMHandle so external functions and meta-map operators can call
// back into the script.
func (v *VirtualMachine) Call(fn value.Value, args []value.Value) (value.Value, error) {
	result, pushed, f, err := v.dispatchCall(fn, args, nil, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	if !pushed {
		return result, nil
	}
	outcome, result, err := v.run(f)
	if err != nil {
		return nil, err
	}
	if outcome == runYielded {
		return nil, errz.RuntimeErrorf(location(f), "yield used outside a generator")
	}
	return result, nil
}

// run dispatches instructions from the top of the frame stack until the
// frame identified by target returns (by pointer identity, so reentrant
// Calls made from within external functions each watch only their own
// frame) or a Yield instruction executes.
func (v *VirtualMachine) run(target *frame) (runOutcome, value.Value, error) {
	prev := activeVM
	activeVM = v
	defer func() { activeVM = prev }()

	for {
		cur := v.frames[len(v.frames)-1]
		code := cur.chunk.Opcode(cur.ip)
		info := op.GetInfo(code)
		opStart := cur.ip
		cur.opIP = opStart
		cur.ip = opStart + 1 + info.OperandCount
		operand := func(i int) uint16 { return cur.chunk.Operand(opStart, 1+i) }

		if e := v.logger.Trace(); e.Enabled() {
			e.Str("op", info.Name).Int("ip", opStart).Int("frame_depth", len(v.frames)).Msg("dispatch")
		}

		switch code {
		case op.LoadConst:
			val, err := constValue(cur.chunk, operand(1))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, err)
			}
			v.setReg(cur, operand(0), val)

		case op.Copy:
			v.setReg(cur, operand(0), v.reg(cur, operand(1)))

		case op.LoadNull:
			v.setReg(cur, operand(0), value.Null)

		case op.LoadBool:
			v.setReg(cur, operand(0), value.NewBool(operand(1) != 0))

		case op.LoadNumber:
			words := []uint16{operand(1), operand(2), operand(3), operand(4)}
			v.setReg(cur, operand(0), value.NewInt(bytecode.Int64FromWords(words)))

		case op.MakeList:
			items := v.regSlice(cur, operand(1), int(operand(2)))
			v.setReg(cur, operand(0), value.NewList(items))

		case op.MakeTuple:
			items := v.regSlice(cur, operand(1), int(operand(2)))
			v.setReg(cur, operand(0), value.NewTuple(items))

		case op.MakeMap:
			v.setReg(cur, operand(0), value.NewMap())

		case op.MapInsert:
			m, ok := v.reg(cur, operand(0)).(*value.Map)
			if !ok {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "expected map"))
			}
			key := v.reg(cur, operand(1))
			val := v.reg(cur, operand(2))
			if err := m.Insert(key, val); err != nil {
				return runReturned, nil, v.wrapContainerErr(cur, err, errz.UnhashableKeyErrorf)
			}

		case op.MakeRange:
			start, ok1 := v.reg(cur, operand(1)).(value.Int)
			end, ok2 := v.reg(cur, operand(2)).(value.Int)
			if !ok1 || !ok2 {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "range bounds must be integers"))
			}
			endN := int64(end)
			if operand(3) != 0 {
				endN++
			}
			v.setReg(cur, operand(0), value.NewRange(int64(start), endN))

		case op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.Eq, op.Ne, op.Lt, op.Le, op.Gt, op.Ge:
			a := v.reg(cur, operand(1))
			b := v.reg(cur, operand(2))
			result, err := value.RunOperation(binOpFor(code), a, b)
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, toOpErr(code, err, cur))
			}
			v.setReg(cur, operand(0), result)

		case op.Negate:
			switch n := v.reg(cur, operand(1)).(type) {
			case value.Int:
				v.setReg(cur, operand(0), value.NewInt(-int64(n)))
			case value.Float:
				v.setReg(cur, operand(0), value.NewFloat(-float64(n)))
			default:
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "cannot negate %s", n.Type()))
			}

		case op.And:
			a := v.reg(cur, operand(1))
			b := v.reg(cur, operand(2))
			v.setReg(cur, operand(0), value.NewBool(a.IsTruthy() && b.IsTruthy()))

		case op.Or:
			a := v.reg(cur, operand(1))
			b := v.reg(cur, operand(2))
			v.setReg(cur, operand(0), value.NewBool(a.IsTruthy() || b.IsTruthy()))

		case op.Not:
			v.setReg(cur, operand(0), value.NewBool(!v.reg(cur, operand(1)).IsTruthy()))

		case op.Jump:
			cur.ip += int(int16(operand(0)))

		case op.JumpIfTrue:
			if v.reg(cur, operand(0)).IsTruthy() {
				cur.ip += int(int16(operand(1)))
			}

		case op.JumpIfFalse:
			if !v.reg(cur, operand(0)).IsTruthy() {
				cur.ip += int(int16(operand(1)))
			}

		case op.Call:
			fn := v.reg(cur, operand(0))
			args := v.regSlice(cur, operand(1), int(operand(2)))
			result, pushed, newFrame, err := v.dispatchCall(fn, args, cur, cur.ip, cur.base, int(operand(3)))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, err)
			}
			if !pushed {
				v.setReg(cur, operand(3), result)
			} else {
				_ = newFrame // loop continues; top of stack is now newFrame
			}

		case op.Return:
			val := v.reg(cur, operand(0))
			popped := v.popFrame()
			if popped == target {
				return runReturned, val, nil
			}
			caller := v.frames[len(v.frames)-1]
			v.setAbs(popped.returnBase+popped.resultReg, val)
			caller.ip = popped.returnIP

		case op.Yield:
			val := v.reg(cur, operand(0))
			if cur.fn == nil || !cur.fn.Template.Generator {
				return runReturned, nil, v.wrapErr(cur, errz.RuntimeErrorf(location(cur), "yield used outside a generator"))
			}
			cur.ip = opStart + 1 + info.OperandCount // redundant but documents resume point
			return runYielded, val, nil

		case op.MakeIter:
			it, err := makeIterator(v.reg(cur, operand(1)), location(cur))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, err)
			}
			v.setReg(cur, operand(0), it)

		case op.IterNext:
			it, ok := v.reg(cur, operand(0)).(value.Iterator)
			if !ok {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "value is not an iterator"))
			}
			res := it.Next()
			switch res.Outcome {
			case value.IterDone:
				cur.ip += int(int16(operand(2)))
			case value.IterValue:
				v.setReg(cur, operand(1), res.Val)
			case value.IterPair:
				v.setReg(cur, operand(1), value.NewTuple([]value.Value{res.Key, res.Val}))
			case value.IterError:
				return runReturned, nil, v.wrapErr(cur, res.Err)
			}

		// IterNextTemp unpacks a loop's iteration result across count
		// consecutive destination registers directly — one per loop
		// variable — instead of allocating a real Tuple the way plain
		// IterNext does, since those loop variables are never addressed
		// as a single tuple value.
		case op.IterNextTemp:
			it, ok := v.reg(cur, operand(0)).(value.Iterator)
			if !ok {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "value is not an iterator"))
			}
			res := it.Next()
			count := int(operand(2))
			switch res.Outcome {
			case value.IterDone:
				cur.ip += int(int16(operand(3)))
			case value.IterValue:
				v.setReg(cur, operand(1), res.Val)
				for i := 1; i < count; i++ {
					v.setReg(cur, operand(1)+uint16(i), value.Null)
				}
			case value.IterPair:
				v.setReg(cur, operand(1), res.Key)
				if count > 1 {
					v.setReg(cur, operand(1)+1, res.Val)
				}
			case value.IterError:
				return runReturned, nil, v.wrapErr(cur, res.Err)
			}

		case op.Size:
			n, err := value.SizeOf(v.reg(cur, operand(1)))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "%s", err))
			}
			v.setReg(cur, operand(0), value.NewInt(int64(n)))

		case op.CheckSizeEqual:
			n, err := value.SizeOf(v.reg(cur, operand(0)))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "%s", err))
			}
			if n != int(operand(1)) {
				return runReturned, nil, v.wrapErr(cur, errz.RuntimeErrorf(location(cur), "expected %d values, found %d", operand(1), n))
			}

		case op.CheckSizeMin:
			n, err := value.SizeOf(v.reg(cur, operand(0)))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "%s", err))
			}
			if n < int(operand(1)) {
				return runReturned, nil, v.wrapErr(cur, errz.RuntimeErrorf(location(cur), "expected at least %d values, found %d", operand(1), n))
			}

		case op.Index:
			result, err := value.IndexValue(v.reg(cur, operand(1)), v.reg(cur, operand(2)))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, errz.IndexErrorf(location(cur), "%s", err))
			}
			v.setReg(cur, operand(0), result)

		case op.SetIndex:
			if err := value.SetIndexValue(v.reg(cur, operand(0)), v.reg(cur, operand(1)), v.reg(cur, operand(2))); err != nil {
				return runReturned, nil, v.wrapContainerErr(cur, err, errz.IndexErrorf)
			}

		case op.MakeFunction:
			child, err := cur.chunk.Child(int(operand(1)))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, errz.RuntimeErrorf(location(cur), "%s", err))
			}
			flags := operand(3)
			tmpl := &bytecode.FunctionTemplate{
				Name:               chunkName(child),
				Chunk:              child,
				ArgCount:           int(operand(2)),
				Variadic:           flags&op.FlagVariadic != 0,
				ArgIsUnpackedTuple: flags&op.FlagArgIsUnpackedTuple != 0,
				Generator:          flags&op.FlagGenerator != 0,
			}
			var captures *value.List
			if rc := operand(4); rc != 0 {
				c, ok := v.reg(cur, rc).(*value.List)
				if !ok {
					return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "captures register does not hold a list"))
				}
				captures = c
			}
			v.setReg(cur, operand(0), value.NewFunction(tmpl, captures))

		case op.Capture:
			lst, ok := v.reg(cur, operand(0)).(*value.List)
			if !ok {
				return runReturned, nil, v.wrapErr(cur, errz.TypeErrorf(location(cur), "capture target is not a list"))
			}
			if err := lst.Set(int64(operand(1)), v.reg(cur, operand(2))); err != nil {
				return runReturned, nil, v.wrapContainerErr(cur, err, errz.RuntimeErrorf)
			}

		case op.LoadGlobal:
			name, err := constValue(cur.chunk, operand(1))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, err)
			}
			val, ok := v.globals.Get(name)
			if !ok {
				return runReturned, nil, v.wrapErr(cur, errz.NameErrorf(location(cur), "global '%s' not found", name.String()))
			}
			v.setReg(cur, operand(0), val)

		case op.StoreGlobal:
			name, err := constValue(cur.chunk, operand(0))
			if err != nil {
				return runReturned, nil, v.wrapErr(cur, err)
			}
			if err := v.globals.Insert(name, v.reg(cur, operand(1))); err != nil {
				return runReturned, nil, v.wrapContainerErr(cur, err, errz.RuntimeErrorf)
			}

		default:
			return runReturned, nil, v.wrapErr(cur, errz.RuntimeErrorf(location(cur), "unknown opcode %d", code))
		}
	}
}

func binOpFor(code op.Code) op.BinaryOpType {
	switch code {
	case op.Add:
		return op.OpAdd
	case op.Sub:
		return op.OpSub
	case op.Mul:
		return op.OpMul
	case op.Div:
		return op.OpDiv
	case op.Mod:
		return op.OpMod
	case op.Eq:
		return op.OpEq
	case op.Ne:
		return op.OpNe
	case op.Lt:
		return op.OpLt
	case op.Le:
		return op.OpLe
	case op.Gt:
		return op.OpGt
	default:
		return op.OpGe
	}
}

func toOpErr(code op.Code, err error, f *frame) *errz.Error {
	if code == op.Div || code == op.Mod {
		if err.Error() == "division by zero" || err.Error() == "modulo by zero" {
			return errz.DivideByZeroErrorf(location(f), "%s", err)
		}
	}
	return errz.TypeErrorf(location(f), "%s", err)
}

func constValue(c *bytecode.Chunk, idx uint16) (value.Value, error) {
	raw, err := c.Constant(int(idx))
	if err != nil {
		return nil, err
	}
	val, ok := raw.(value.Value)
	if !ok {
		return nil, fmt.Errorf("constant %d is not a runtime value", idx)
	}
	return val, nil
}

func makeIterator(v value.Value, loc errz.SourceLocation) (value.Iterator, error) {
	if it, ok := v.(value.Iterator); ok {
		return it, nil
	}
	if iterable, ok := v.(value.Iterable); ok {
		return iterable.Iter(), nil
	}
	return nil, errz.TypeErrorf(loc, "value of type %s is not iterable", v.Type())
}
