package value

import (
	"fmt"
	"math"
	"strconv"

	"github.com/kotolang/koto/op"
)

// Null is the sole Null value.
type NullType struct{}

var Null Value = NullType{}

func (NullType) Type() Type       { return TypeNull }
func (NullType) String() string   { return "null" }
func (NullType) IsTruthy() bool   { return false }
func (NullType) HashKey() HashKey { return HashKey{Type: TypeNull, Key: "null"} }

// Bool wraps a boolean.
type Bool bool

const (
	True  Bool = true
	False Bool = false
)

func NewBool(b bool) Bool {
	if b {
		return True
	}
	return False
}

func (b Bool) Type() Type     { return TypeBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }
func (b Bool) IsTruthy() bool { return bool(b) }
func (b Bool) HashKey() HashKey {
	return HashKey{Type: TypeBool, Key: strconv.FormatBool(bool(b))}
}

// Int is a signed 64-bit integer Value.
type Int int64

func NewInt(v int64) Int { return Int(v) }

func (i Int) Type() Type       { return TypeInt }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }
func (i Int) IsTruthy() bool   { return i != 0 }
func (i Int) AsFloat() float64 { return float64(i) }
func (i Int) HashKey() HashKey {
	return HashKey{Type: TypeInt, Key: strconv.FormatInt(int64(i), 10)}
}

// Float is a 64-bit IEEE-754 float Value.
type Float float64

func NewFloat(v float64) Float { return Float(v) }

func (f Float) Type() Type       { return TypeFloat }
func (f Float) String() string   { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (f Float) IsTruthy() bool   { return f != 0 }
func (f Float) AsFloat() float64 { return float64(f) }
func (f Float) HashKey() HashKey {
	return HashKey{Type: TypeFloat, Key: strconv.FormatFloat(float64(f), 'g', -1, 64)}
}

// IsNumber reports whether v is Int or Float.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

// primitiveBinaryOp implements the arithmetic and comparison table for
// primitive-primitive operand pairs. The third return value is false when
// the pair isn't a primitive combination this function handles, signaling
// the caller (RunOperation) to fall through to meta-map dispatch.
func primitiveBinaryOp(opType op.BinaryOpType, a, b Value) (Value, error, bool) {
	switch opType {
	case op.OpAdd, op.OpSub, op.OpMul, op.OpDiv, op.OpMod:
		return arithmeticOp(opType, a, b)
	case op.OpEq, op.OpNe:
		// *Map defers to RunOperation's meta-map "Equal" lookup before
		// falling back to structural equality; every other pair is handled
		// here directly since only Map carries overloads.
		if _, aIsMap := a.(*Map); aIsMap {
			return nil, nil, false
		}
		eq, _ := tryStructuralEqual(a, b)
		if opType == op.OpNe {
			eq = !eq
		}
		return NewBool(eq), nil, true
	case op.OpLt, op.OpLe, op.OpGt, op.OpGe:
		if an, aok := a.(Numeric); aok {
			if bn, bok := b.(Numeric); bok && (math.IsNaN(an.AsFloat()) || math.IsNaN(bn.AsFloat())) {
				// NaN satisfies no ordering.
				return False, nil, true
			}
		}
		cmp, err, ok := tryCompare(a, b)
		if !ok {
			return nil, nil, false
		}
		if err != nil {
			return nil, err, true
		}
		switch opType {
		case op.OpLt:
			return NewBool(cmp < 0), nil, true
		case op.OpLe:
			return NewBool(cmp <= 0), nil, true
		case op.OpGt:
			return NewBool(cmp > 0), nil, true
		case op.OpGe:
			return NewBool(cmp >= 0), nil, true
		}
	}
	return nil, nil, false
}

func arithmeticOp(opType op.BinaryOpType, a, b Value) (Value, error, bool) {
	an, aok := a.(Numeric)
	bn, bok := b.(Numeric)
	if !aok || !bok {
		return nil, nil, false
	}
	_, aInt := a.(Int)
	_, bInt := b.(Int)

	if aInt && bInt {
		ai, bi := int64(a.(Int)), int64(b.(Int))
		switch opType {
		case op.OpAdd:
			return NewInt(ai + bi), nil, true
		case op.OpSub:
			return NewInt(ai - bi), nil, true
		case op.OpMul:
			return NewInt(ai * bi), nil, true
		case op.OpDiv:
			if bi == 0 {
				return nil, fmt.Errorf("division by zero"), true
			}
			return NewInt(ai / bi), nil, true
		case op.OpMod:
			if bi == 0 {
				return nil, fmt.Errorf("modulo by zero"), true
			}
			return NewInt(ai % bi), nil, true
		}
	}

	// Mixed or float/float arithmetic promotes to float.
	af, bf := an.AsFloat(), bn.AsFloat()
	switch opType {
	case op.OpAdd:
		return NewFloat(af + bf), nil, true
	case op.OpSub:
		return NewFloat(af - bf), nil, true
	case op.OpMul:
		return NewFloat(af * bf), nil, true
	case op.OpDiv:
		return NewFloat(af / bf), nil, true
	case op.OpMod:
		return NewFloat(math.Mod(af, bf)), nil, true
	}
	return nil, nil, false
}

// tryCompare implements ordered comparison for Number<->Number,
// String<->String, Range<->Range, and homogeneous Tuple/List pairs. The
// bool result reports whether the pair is handled at
// all; when true but err != nil, the pair is comparable in principle but
// the comparison failed (e.g. two sequences holding incomparable elements
// at the same position). A NaN operand compares as 0 here, not as an
// error; primitiveBinaryOp reports every ordering with a NaN as false.
func tryCompare(a, b Value) (int, error, bool) {
	if an, aok := a.(Numeric); aok {
		if bn, bok := b.(Numeric); bok {
			af, bf := an.AsFloat(), bn.AsFloat()
			switch {
			case af < bf:
				return -1, nil, true
			case af > bf:
				return 1, nil, true
			default:
				return 0, nil, true
			}
		}
	}
	if as, aok := a.(*String); aok {
		if bs, bok := b.(*String); bok {
			switch {
			case as.value < bs.value:
				return -1, nil, true
			case as.value > bs.value:
				return 1, nil, true
			default:
				return 0, nil, true
			}
		}
	}
	if ar, aok := a.(Range); aok {
		if br, bok := b.(Range); bok {
			if ar.Start != br.Start {
				if ar.Start < br.Start {
					return -1, nil, true
				}
				return 1, nil, true
			}
			if ar.End < br.End {
				return -1, nil, true
			} else if ar.End > br.End {
				return 1, nil, true
			}
			return 0, nil, true
		}
	}
	if at, aok := a.(*Tuple); aok {
		if bt, bok := b.(*Tuple); bok {
			return compareSequences(at.items, bt.items)
		}
	}
	if al, aok := a.(*List); aok {
		if bl, bok := b.(*List); bok {
			return compareSequences(al.Items(), bl.Items())
		}
	}
	return 0, nil, false
}

func compareSequences(a, b []Value) (int, error, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		cmp, err, ok := tryCompare(a[i], b[i])
		if !ok {
			return 0, fmt.Errorf("cannot compare %s and %s", a[i].Type(), b[i].Type()), true
		}
		if err != nil {
			return 0, err, true
		}
		if cmp != 0 {
			return cmp, nil, true
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil, true
	case len(a) > len(b):
		return 1, nil, true
	default:
		return 0, nil, true
	}
}

// Compare exposes ordered comparison to package vm for the CompareOp-style
// opcodes (Lt/Le/Gt/Ge), returning an error for incomparable combinations
// rather than an arbitrary default ordering.
func Compare(a, b Value) (int, error) {
	cmp, err, ok := tryCompare(a, b)
	if !ok {
		return 0, fmt.Errorf("'<' not supported between instances of %s and %s", a.Type(), b.Type())
	}
	return cmp, err
}
