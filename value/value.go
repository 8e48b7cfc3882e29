// Package value implements Koto's runtime Value model: a
// tagged union of primitives, reference-counted aggregate containers,
// callables, iterators, and host-defined objects. Containers use shared
// handles with interior mutability; strings and tuples are immutable.
package value

import (
	"fmt"

	"github.com/kotolang/koto/op"
)

// Type names every Value variant, used for error messages and the
// meta-map "Type" key's default.
type Type string

const (
	TypeNull             Type = "null"
	TypeBool             Type = "bool"
	TypeInt              Type = "int"
	TypeFloat            Type = "float"
	TypeRange            Type = "range"
	TypeString           Type = "string"
	TypeList             Type = "list"
	TypeTuple            Type = "tuple"
	TypeMap              Type = "map"
	TypeFunction         Type = "function"
	TypeExternalFunction Type = "external_function"
	TypeIterator         Type = "iterator"
	TypeObject           Type = "object"
)

// Value is the interface every runtime value implements.
type Value interface {
	Type() Type
	String() string
	IsTruthy() bool
}

// Numeric is implemented by Int and Float, the Number sub-variants.
type Numeric interface {
	Value
	AsFloat() float64
}

// Hashable is implemented by values that may be used as Map keys.
type Hashable interface {
	Value
	HashKey() HashKey
}

// HashKey is a comparable Go value (hence usable as a Go map key) that
// uniquely identifies a Hashable Value's content.
type HashKey struct {
	Type Type
	Key  string
}

// Callable is implemented by every value that can appear as the r_fn
// operand of a Call instruction: *Function (simple/full/generator) and
// *ExternalFunction. Map values dispatch through the Call meta-key
// instead of implementing this interface directly.
type Callable interface {
	Value
	Arity() (min int, variadic bool)
}

// Iterable is implemented by every container the MakeIter opcode accepts.
type Iterable interface {
	Value
	Iter() Iterator
}

// IterOutcome tags what an Iterator.Next call produced.
type IterOutcome int

const (
	IterValue IterOutcome = iota
	IterPair
	IterDone
	IterError
)

// IterResult is the result of advancing an Iterator once.
type IterResult struct {
	Outcome IterOutcome
	Key     Value // set when Outcome == IterPair
	Val     Value // set when Outcome == IterValue or IterPair
	Err     error // set when Outcome == IterError
}

// Iterator is the runtime's stateful cursor type.
type Iterator interface {
	Value
	Next() IterResult
	// DeepCopy returns an independent snapshot copy of the iterator's
	// cursor state.
	DeepCopy() Iterator
}

// Object is the host-extensibility escape hatch. Host code
// implements this to expose arbitrary Go state to scripts.
type Object interface {
	Value
	TypeName() string
	GetAttr(name string) (Value, bool)
	SetAttr(name string, v Value) error
	Copy() Object
}

// Container is implemented by values that support Index/Size and
// participate in the meta-map-or-error dispatch contract.
type Container interface {
	Value
	Len() int
}

// ErrBorrowed is returned by *List and *Map mutating methods when the
// container is already under a mutable borrow, e.g. a meta-map callback
// invoked mid-mutation tries to mutate the same container again. Callers
// that need to report this distinctly (package vm maps it to
// errz.ErrBorrow) can check for it with errors.Is.
var ErrBorrowed = fmt.Errorf("container is already borrowed mutably")

// MetaOperable is implemented by values whose binary operators may be
// overridden by a meta-map, currently only *Map.
type MetaOperable interface {
	Value
	MetaMap() *Map
}

// RunOperation executes a binary operator between two values, consulting
// a's meta-map (if it is a MetaOperable) only after primitive dispatch
// for primitive-primitive pairs fails.
func RunOperation(opType op.BinaryOpType, a, b Value) (Value, error) {
	if result, err, handled := primitiveBinaryOp(opType, a, b); handled {
		return result, err
	}
	if mo, ok := a.(MetaOperable); ok {
		if meta := mo.MetaMap(); meta != nil {
			if fn, found := meta.Get(NewString(metaKeyForOp(opType))); found {
				switch opType {
				case op.OpNe:
					// Ne has no separate meta-key; it negates Equal's result.
					result, err := callMetaBinary(fn, a, b)
					if err != nil {
						return result, err
					}
					return NewBool(!result.IsTruthy()), nil
				case op.OpLt:
					return callMetaBinary(fn, a, b)
				case op.OpGe:
					// Ge(a, b) == !Lt(a, b).
					result, err := callMetaBinary(fn, a, b)
					if err != nil {
						return result, err
					}
					return NewBool(!result.IsTruthy()), nil
				case op.OpGt:
					// Gt(a, b) == Lt(b, a); meta-map "Less" is only defined
					// from a's perspective, so swap operands.
					return callMetaBinary(fn, b, a)
				case op.OpLe:
					// Le(a, b) == !Lt(b, a).
					result, err := callMetaBinary(fn, b, a)
					if err != nil {
						return result, err
					}
					return NewBool(!result.IsTruthy()), nil
				default:
					return callMetaBinary(fn, a, b)
				}
			}
		}
	}
	// Eq/Ne always have a default even with no meta override: structural
	// comparison, since shared handles compare by content, not identity.
	switch opType {
	case op.OpEq:
		return NewBool(Equal(a, b)), nil
	case op.OpNe:
		return NewBool(!Equal(a, b)), nil
	}
	return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", opType, a.Type(), b.Type())
}

func metaKeyForOp(opType op.BinaryOpType) string {
	switch opType {
	case op.OpAdd:
		return MetaAdd
	case op.OpSub:
		return MetaSubtract
	case op.OpMul:
		return MetaMultiply
	case op.OpDiv:
		return MetaDivide
	case op.OpMod:
		return MetaModulo
	case op.OpEq, op.OpNe:
		return MetaEqual
	case op.OpLt, op.OpLe, op.OpGt, op.OpGe:
		return MetaLess
	default:
		return ""
	}
}

// callMetaBinary is set by package vm at init time (via RegisterMetaCaller)
// since invoking a meta-map function requires the VM's call machinery,
// which package value cannot import without a cycle.
var callMetaBinary = func(fn Value, a, b Value) (Value, error) {
	return nil, fmt.Errorf("meta operation dispatch requires a VM (no caller registered)")
}

// RegisterMetaCaller installs the function package vm uses to invoke a
// meta-map operator function with (self, other) arguments.
func RegisterMetaCaller(f func(fn Value, a, b Value) (Value, error)) {
	callMetaBinary = f
}
