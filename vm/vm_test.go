package vm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotolang/koto/bytecode"
	"github.com/kotolang/koto/errz"
	"github.com/kotolang/koto/op"
	"github.com/kotolang/koto/value"
	"github.com/kotolang/koto/vm"
)

// patchJump back-patches a forward jump's signed offset operand once its
// target is known, matching how a real compiler would resolve labels.
func patchJump(b *bytecode.Builder, jumpIP int, operandIndex int, code op.Code) {
	target := b.Here()
	after := jumpIP + 1 + op.GetInfo(code).OperandCount
	b.PatchOperand(jumpIP+1+operandIndex, uint16(int16(target-after)))
}

func TestArithmetic(t *testing.T) {
	b := bytecode.NewBuilder("main")
	b.UseRegisters(4)
	k2 := b.Constant(value.NewInt(2))
	k3 := b.Constant(value.NewInt(3))
	k4 := b.Constant(value.NewInt(4))
	b.Emit(op.LoadConst, 0, k2)
	b.Emit(op.LoadConst, 1, k3)
	b.Emit(op.Add, 2, 0, 1)
	b.Emit(op.LoadConst, 1, k4)
	b.Emit(op.Mul, 3, 2, 1)
	b.Emit(op.Return, 3)
	chunk := b.Build()

	require.NoError(t, bytecode.Validate(chunk))
	result, err := vm.New().Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(20), result)
}

func TestAndOfFalseAndTrue(t *testing.T) {
	b := bytecode.NewBuilder("main")
	b.UseRegisters(2)
	b.Emit(op.LoadBool, 0, 0) // false
	b.Emit(op.LoadBool, 1, 1) // true
	b.Emit(op.And, 0, 0, 1)
	b.Emit(op.Return, 0)
	chunk := b.Build()

	result, err := vm.New().Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, value.False, result)
}

func TestListSizeAndNegativeIndex(t *testing.T) {
	b := bytecode.NewBuilder("main")
	b.UseRegisters(7)
	k1 := b.Constant(value.NewInt(1))
	k2 := b.Constant(value.NewInt(2))
	k3 := b.Constant(value.NewInt(3))
	kNeg1 := b.Constant(value.NewInt(-1))
	b.Emit(op.LoadConst, 0, k1)
	b.Emit(op.LoadConst, 1, k2)
	b.Emit(op.LoadConst, 2, k3)
	b.Emit(op.MakeList, 3, 0, 3)
	b.Emit(op.Size, 4, 3)
	b.Emit(op.LoadConst, 5, kNeg1)
	b.Emit(op.Index, 6, 3, 5)
	b.Emit(op.MakeTuple, 0, 4, 3) // (size, -1, list[-1])
	b.Emit(op.Return, 0)
	chunk := b.Build()

	result, err := vm.New().Run(chunk)
	require.NoError(t, err)
	tup := result.(*value.Tuple)
	assert.Equal(t, value.NewInt(3), tup.Items()[0], "size of a 3-element list")
	assert.Equal(t, value.NewInt(3), tup.Items()[2], "list[-1] is the last element")
}

func TestMapAssignmentAndLookup(t *testing.T) {
	// m = {a: 1, b: 2}; m.b = 5; m.a + m.b
	b := bytecode.NewBuilder("main")
	b.UseRegisters(8)
	ka := b.Constant(value.NewString("a"))
	kb := b.Constant(value.NewString("b"))
	k1 := b.Constant(value.NewInt(1))
	k2 := b.Constant(value.NewInt(2))
	k5 := b.Constant(value.NewInt(5))

	b.Emit(op.MakeMap, 0, 0)
	b.Emit(op.LoadConst, 1, ka)
	b.Emit(op.LoadConst, 2, k1)
	b.Emit(op.MapInsert, 0, 1, 2)
	b.Emit(op.LoadConst, 3, kb)
	b.Emit(op.LoadConst, 4, k2)
	b.Emit(op.MapInsert, 0, 3, 4)

	b.Emit(op.LoadConst, 5, k5)
	b.Emit(op.SetIndex, 0, 3, 5) // m.b = 5 (reuses the "b" key register)

	b.Emit(op.Index, 6, 0, 1) // m.a
	b.Emit(op.Index, 7, 0, 3) // m.b
	b.Emit(op.Add, 6, 6, 7)
	b.Emit(op.Return, 6)
	chunk := b.Build()

	result, err := vm.New().Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(6), result)
}

// buildFibonacci assembles a self-recursive closure the way a compiler
// would lower `f = |n| if n < 2 then n else f(n-1) + f(n-2); f(10)`: the
// function's captures list holds one slot, pre-sized with Null, which is
// populated with the function's own value after MakeFunction so the
// callee can read its own closure back out of the upper end of its
// register window, the way a mutually recursive group of closures shares
// one captures list and observes later assignments into it.
func buildFibonacci(t *testing.T, n int64) *bytecode.Chunk {
	t.Helper()

	// Child chunk: fib(n), with capture (self) at the window's last
	// register (windowSize=12, capCount=1 => register 11).
	const windowSize = 12
	const selfReg = windowSize - 1

	fib := bytecode.NewBuilder("fib")
	fib.UseRegisters(windowSize)
	k2 := fib.Constant(value.NewInt(2))
	k1 := fib.Constant(value.NewInt(1))

	fib.Emit(op.LoadConst, 1, k2)
	fib.Emit(op.Lt, 2, 0, 1) // r2 = n < 2
	jmp := fib.Emit(op.JumpIfFalse, 2, 0)
	fib.Emit(op.Return, 0) // return n
	patchJump(fib, jmp, 1, op.JumpIfFalse)

	fib.Emit(op.LoadConst, 3, k1)
	fib.Emit(op.Sub, 4, 0, 3)                     // r4 = n-1
	fib.Emit(op.Call, selfReg, 4, 1, 5)            // r5 = fib(n-1)
	fib.Emit(op.LoadConst, 6, k1)
	fib.Emit(op.Sub, 7, 0, 6)                     // r7 = n-2
	fib.Emit(op.Call, selfReg, 7, 1, 8)            // r8 = fib(n-2)
	fib.Emit(op.Add, 9, 5, 8)
	fib.Emit(op.Return, 9)
	fibChunk := fib.Build()

	main := bytecode.NewBuilder("main")
	main.UseRegisters(4)
	kArg := main.Constant(value.NewInt(n))
	childIdx := main.Child(fibChunk)

	main.Emit(op.LoadNull, 0)
	main.Emit(op.MakeList, 1, 0, 1) // capture list: [Null]
	main.Emit(op.MakeFunction, 2, childIdx, 1, 0, 1)
	main.Emit(op.Capture, 1, 0, 2) // captures[0] = the function itself
	main.Emit(op.LoadConst, 3, kArg)
	main.Emit(op.Call, 2, 3, 1, 3)
	main.Emit(op.Return, 3)
	return main.Build()
}

func TestRecursiveClosureFibonacci(t *testing.T) {
	chunk := buildFibonacci(t, 10)
	require.NoError(t, bytecode.Validate(chunk))
	result, err := vm.New().Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(55), result)
}

// buildSquareGenerator assembles `|| for i in 0..3 yield i*i`.
func buildSquareGenerator(t *testing.T) *bytecode.Chunk {
	t.Helper()

	gen := bytecode.NewBuilder("gen")
	gen.UseRegisters(6)
	k0 := gen.Constant(value.NewInt(0))
	k3 := gen.Constant(value.NewInt(3))

	gen.Emit(op.LoadConst, 0, k0)
	gen.Emit(op.LoadConst, 1, k3)
	gen.Emit(op.MakeRange, 2, 0, 1, 0)
	gen.Emit(op.MakeIter, 3, 2)

	loopStart := gen.Here()
	next := gen.Emit(op.IterNext, 3, 4, 0)
	gen.Emit(op.Mul, 5, 4, 4)
	gen.Emit(op.Yield, 5)
	backJump := gen.Emit(op.Jump, 0)
	patchBackJump(gen, backJump, loopStart)

	patchJump(gen, next, 2, op.IterNext)
	gen.Emit(op.LoadNull, 0)
	gen.Emit(op.Return, 0)
	genChunk := gen.Build()

	main := bytecode.NewBuilder("main")
	main.UseRegisters(2)
	childIdx := main.Child(genChunk)
	main.Emit(op.MakeFunction, 0, childIdx, 0, uint16(op.FlagGenerator), 0)
	main.Emit(op.Call, 0, 0, 0, 1)
	main.Emit(op.Return, 1)
	return main.Build()
}

func patchBackJump(b *bytecode.Builder, jumpIP int, target int) {
	after := jumpIP + 1 + op.GetInfo(op.Jump).OperandCount
	b.PatchOperand(jumpIP+1, uint16(int16(target-after)))
}

func TestGeneratorYieldsSequenceThenDone(t *testing.T) {
	chunk := buildSquareGenerator(t)
	result, err := vm.New().Run(chunk)
	require.NoError(t, err)

	it, ok := result.(value.Iterator)
	require.True(t, ok, "calling a generator function must produce an Iterator")

	var got []int64
	for {
		res := it.Next()
		if res.Outcome == value.IterDone {
			break
		}
		require.Equal(t, value.IterValue, res.Outcome)
		got = append(got, int64(res.Val.(value.Int)))
	}
	assert.Equal(t, []int64{0, 1, 4}, got)

	// A generator that has already reached Done stays Done.
	assert.Equal(t, value.IterDone, it.Next().Outcome)
}

func TestArityErrorOnNonVariadicMismatch(t *testing.T) {
	fn := bytecode.NewBuilder("f")
	fn.UseRegisters(2)
	fn.Emit(op.Return, 0)
	fnChunk := fn.Build()

	main := bytecode.NewBuilder("main")
	main.UseRegisters(4)
	childIdx := main.Child(fnChunk)
	main.Emit(op.LoadNull, 0)
	main.Emit(op.LoadNull, 1)
	main.Emit(op.MakeFunction, 2, childIdx, 1, 0, 0) // declares arity 1
	main.Emit(op.Call, 2, 0, 2, 3)                   // called with 2 args
	main.Emit(op.Return, 3)
	chunk := main.Build()

	_, err := vm.New().Run(chunk)
	require.Error(t, err)
	kotoErr, ok := err.(*errz.Error)
	require.True(t, ok)
	assert.Equal(t, errz.ErrArity, kotoErr.Kind)
}

func TestDivideByZero(t *testing.T) {
	b := bytecode.NewBuilder("main")
	b.UseRegisters(3)
	k1 := b.Constant(value.NewInt(1))
	k0 := b.Constant(value.NewInt(0))
	b.Emit(op.LoadConst, 0, k1)
	b.Emit(op.LoadConst, 1, k0)
	b.Emit(op.Div, 2, 0, 1)
	b.Emit(op.Return, 2)
	chunk := b.Build()

	_, err := vm.New().Run(chunk)
	require.Error(t, err)
	kotoErr, ok := err.(*errz.Error)
	require.True(t, ok)
	assert.Equal(t, errz.ErrDivideByZero, kotoErr.Kind)
}

func TestFloatDivideByZeroIsInfNotError(t *testing.T) {
	b := bytecode.NewBuilder("main")
	b.UseRegisters(3)
	k1 := b.Constant(value.NewFloat(1.0))
	k0 := b.Constant(value.NewFloat(0.0))
	b.Emit(op.LoadConst, 0, k1)
	b.Emit(op.LoadConst, 1, k0)
	b.Emit(op.Div, 2, 0, 1)
	b.Emit(op.Return, 2)
	chunk := b.Build()

	result, err := vm.New().Run(chunk)
	require.NoError(t, err)
	f := result.(value.Float)
	assert.True(t, float64(f) > 0 && isInf(float64(f)))
}

func isInf(f float64) bool {
	return math.IsInf(f, 0)
}

// TestMapCallMetaKeyBoundMethod installs a meta-map "Call" handler on a
// Map from host (Go) code — there is no opcode for wiring a meta-map, so
// scripts rely on a host-exposed function for this, same as any other
// Map built up by a native extension — then invokes the map itself from
// bytecode and checks the handler receives the map as its first argument.
func TestMapCallMetaKeyBoundMethod(t *testing.T) {
	callBody := bytecode.NewBuilder("call")
	callBody.UseRegisters(2)
	callBody.Emit(op.Size, 1, 0) // r1 = size(self); self arrives as arg 0
	callBody.Emit(op.Return, 1)
	callChunk := callBody.Build()
	tmpl := &bytecode.FunctionTemplate{Name: "call", Chunk: callChunk, ArgCount: 1}
	handler := value.NewFunction(tmpl, nil)

	m := value.NewMap()
	require.NoError(t, m.Insert(value.NewString("x"), value.NewInt(1)))
	require.NoError(t, m.Insert(value.NewString("y"), value.NewInt(2)))

	meta := value.NewMap()
	require.NoError(t, meta.Insert(value.NewString(value.MetaCall), handler))
	m.SetMetaMap(meta)

	rt := vm.New()
	require.NoError(t, rt.Globals().Insert(value.NewString("m"), m))

	main := bytecode.NewBuilder("main")
	main.UseRegisters(2)
	kName := main.Constant(value.NewString("m"))
	main.Emit(op.LoadGlobal, 0, kName)
	main.Emit(op.Call, 0, 0, 0, 1)
	main.Emit(op.Return, 1)
	chunk := main.Build()

	result, err := rt.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(2), result, "size of a 2-key map, via its meta-map Call handler")
}

func TestRunOperationMetaAdd(t *testing.T) {
	addBody := bytecode.NewBuilder("add")
	addBody.UseRegisters(3)
	addBody.Emit(op.Size, 2, 0)
	addBody.Emit(op.Return, 2) // returns size(self), ignoring the other operand
	addChunk := addBody.Build()
	tmpl := &bytecode.FunctionTemplate{Name: "add", Chunk: addChunk, ArgCount: 2}
	handler := value.NewFunction(tmpl, nil)

	meta := value.NewMap()
	require.NoError(t, meta.Insert(value.NewString(value.MetaAdd), handler))

	a := value.NewMap()
	require.NoError(t, a.Insert(value.NewString("k"), value.NewInt(1)))
	a.SetMetaMap(meta)
	b := value.NewMap()

	rt := vm.New()
	require.NoError(t, rt.Globals().Insert(value.NewString("a"), a))
	require.NoError(t, rt.Globals().Insert(value.NewString("b"), b))

	main := bytecode.NewBuilder("main")
	main.UseRegisters(3)
	kA := main.Constant(value.NewString("a"))
	kB := main.Constant(value.NewString("b"))
	main.Emit(op.LoadGlobal, 0, kA)
	main.Emit(op.LoadGlobal, 1, kB)
	main.Emit(op.Add, 2, 0, 1)
	main.Emit(op.Return, 2)
	chunk := main.Build()

	out, err := rt.Run(chunk)
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(1), out, "Add dispatches to the meta-map's Add handler when present")
}

// TestRunOperationMetaEqualOverridesStructural installs a meta-map "Equal"
// handler that always reports true, then checks Eq and Ne both consult it
// instead of falling back to structural comparison.
func TestRunOperationMetaEqualOverridesStructural(t *testing.T) {
	eqBody := bytecode.NewBuilder("eq")
	eqBody.UseRegisters(2)
	eqBody.Emit(op.LoadBool, 1, 1) // always true, regardless of operands
	eqBody.Emit(op.Return, 1)
	eqChunk := eqBody.Build()
	tmpl := &bytecode.FunctionTemplate{Name: "eq", Chunk: eqChunk, ArgCount: 2}
	handler := value.NewFunction(tmpl, nil)

	meta := value.NewMap()
	require.NoError(t, meta.Insert(value.NewString(value.MetaEqual), handler))

	a := value.NewMap()
	require.NoError(t, a.Insert(value.NewString("k"), value.NewInt(1)))
	a.SetMetaMap(meta)
	b := value.NewMap() // structurally different content

	rt := vm.New()
	require.NoError(t, rt.Globals().Insert(value.NewString("a"), a))
	require.NoError(t, rt.Globals().Insert(value.NewString("b"), b))

	main := bytecode.NewBuilder("main")
	main.UseRegisters(4)
	kA := main.Constant(value.NewString("a"))
	kB := main.Constant(value.NewString("b"))
	main.Emit(op.LoadGlobal, 0, kA)
	main.Emit(op.LoadGlobal, 1, kB)
	main.Emit(op.Eq, 2, 0, 1)
	main.Emit(op.Ne, 3, 0, 1)
	main.Emit(op.MakeTuple, 0, 2, 2)
	main.Emit(op.Return, 0)
	chunk := main.Build()

	out, err := rt.Run(chunk)
	require.NoError(t, err)
	tup := out.(*value.Tuple)
	assert.Equal(t, value.True, tup.Items()[0], "Eq dispatches to the meta-map's Equal handler")
	assert.Equal(t, value.False, tup.Items()[1], "Ne negates the meta-map's Equal result when no separate meta-key exists")
}

// TestRunOperationMetaLessDerivesOrdering installs only a meta-map "Less"
// handler (there is no separate Greater/LessOrEqual meta-key) and checks
// that Lt, Le, Gt, and Ge all derive a consistent total order from it,
// rather than Le/Gt/Ge returning the raw Less(a, b) result.
func TestRunOperationMetaLessDerivesOrdering(t *testing.T) {
	lessBody := bytecode.NewBuilder("less")
	lessBody.UseRegisters(5)
	kKey := lessBody.Constant(value.NewString("k"))
	lessBody.Emit(op.LoadConst, 2, kKey)
	lessBody.Emit(op.Index, 3, 0, 2) // self.k
	lessBody.Emit(op.Index, 4, 1, 2) // other.k
	lessBody.Emit(op.Lt, 2, 3, 4)
	lessBody.Emit(op.Return, 2)
	lessChunk := lessBody.Build()
	tmpl := &bytecode.FunctionTemplate{Name: "less", Chunk: lessChunk, ArgCount: 2}
	handler := value.NewFunction(tmpl, nil)

	meta := value.NewMap()
	require.NoError(t, meta.Insert(value.NewString(value.MetaLess), handler))

	newRanked := func(k int64) *value.Map {
		m := value.NewMap()
		require.NoError(t, m.Insert(value.NewString("k"), value.NewInt(k)))
		m.SetMetaMap(meta)
		return m
	}
	a := newRanked(1)
	b := newRanked(2)

	rt := vm.New()
	require.NoError(t, rt.Globals().Insert(value.NewString("a"), a))
	require.NoError(t, rt.Globals().Insert(value.NewString("b"), b))

	main := bytecode.NewBuilder("main")
	main.UseRegisters(8)
	kA := main.Constant(value.NewString("a"))
	kB := main.Constant(value.NewString("b"))
	main.Emit(op.LoadGlobal, 0, kA)
	main.Emit(op.LoadGlobal, 1, kB)
	main.Emit(op.Lt, 2, 0, 1) // a < b
	main.Emit(op.Le, 3, 0, 1) // a <= b
	main.Emit(op.Gt, 4, 0, 1) // a > b
	main.Emit(op.Ge, 5, 0, 1) // a >= b
	main.Emit(op.MakeTuple, 0, 2, 4)
	main.Emit(op.Return, 0)
	chunk := main.Build()

	out, err := rt.Run(chunk)
	require.NoError(t, err)
	tup := out.(*value.Tuple)
	assert.Equal(t, value.True, tup.Items()[0], "Lt(a, b) with a.k=1 < b.k=2")
	assert.Equal(t, value.True, tup.Items()[1], "Le(a, b) derived as !Less(b, a)")
	assert.Equal(t, value.False, tup.Items()[2], "Gt(a, b) derived as Less(b, a)")
	assert.Equal(t, value.False, tup.Items()[3], "Ge(a, b) derived as !Less(a, b)")
}
