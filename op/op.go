// Package op defines the opcodes of the Koto register-based instruction
// set. Operands name register indices or constant-pool indices, never
// stack positions — the VM in package vm carves a register window per
// frame and opcodes address registers relative to that window.
package op

// Code is an instruction opcode.
type Code uint16

const (
	Invalid Code = 0

	// Data moves
	LoadConst  Code = 1 // r, k
	Copy       Code = 2 // r_dst, r_src
	LoadNull   Code = 3 // r
	LoadBool   Code = 4 // r, b
	LoadNumber Code = 5 // r, imm (sign-extended int64 immediate)

	// Aggregate construction
	MakeList  Code = 10 // r, start, count
	MakeTuple Code = 11 // r, start, count
	MakeMap   Code = 12 // r, capacity
	MapInsert Code = 13 // r_map, r_key, r_val
	MakeRange Code = 14 // r, r_start, r_end, inclusive(0/1)

	// Arithmetic & comparison
	Add    Code = 20
	Sub    Code = 21
	Mul    Code = 22
	Div    Code = 23
	Mod    Code = 24
	Negate Code = 25
	Eq     Code = 26
	Ne     Code = 27
	Lt     Code = 28
	Le     Code = 29
	Gt     Code = 30
	Ge     Code = 31
	And    Code = 32
	Or     Code = 33
	Not    Code = 34

	// Control flow (signed offsets relative to the instruction after the jump)
	Jump          Code = 40
	JumpIfTrue    Code = 41
	JumpIfFalse   Code = 42

	// Calls
	Call   Code = 50 // r_fn, r_args_start, arg_count, r_result
	Return Code = 51 // r
	Yield  Code = 52 // r (generators only)

	// Iteration
	MakeIter     Code = 60 // r, r_iterable
	IterNext     Code = 61 // r_iter, r_out, jump_if_done
	IterNextTemp Code = 62 // r_iter, r_out_start, count, jump_if_done

	// Size/unpack
	Size            Code = 70 // r, r_src
	CheckSizeEqual  Code = 71 // r_src, n
	CheckSizeMin    Code = 72 // r_src, n
	Index           Code = 73 // r_dst, r_src, r_idx
	SetIndex        Code = 74 // r_dst, r_idx, r_val (container[idx] = val)

	// Closures
	MakeFunction Code = 80 // r, chunk_index, arg_count, flags, r_captures (0 = none)
	Capture      Code = 81 // r_list, index, r_value

	// Module globals (reads/writes into the VM's module-global map)
	LoadGlobal  Code = 90 // r, name_const
	StoreGlobal Code = 91 // name_const, r
)

// Flag bits packed into MakeFunction's flags operand.
const (
	FlagVariadic          uint16 = 1 << 0
	FlagArgIsUnpackedTuple uint16 = 1 << 1
	FlagGenerator         uint16 = 1 << 2
)

// Info describes an opcode: its name and number of 16-bit operand words.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make(map[Code]Info)

func define(c Code, name string, operands int) {
	infos[c] = Info{Code: c, Name: name, OperandCount: operands}
}

func init() {
	define(LoadConst, "LOAD_CONST", 2)
	define(Copy, "COPY", 2)
	define(LoadNull, "LOAD_NULL", 1)
	define(LoadBool, "LOAD_BOOL", 2)
	define(LoadNumber, "LOAD_NUMBER", 5) // r + 4 words of int64 immediate

	define(MakeList, "MAKE_LIST", 3)
	define(MakeTuple, "MAKE_TUPLE", 3)
	define(MakeMap, "MAKE_MAP", 2)
	define(MapInsert, "MAP_INSERT", 3)
	define(MakeRange, "MAKE_RANGE", 4)

	define(Add, "ADD", 3)
	define(Sub, "SUB", 3)
	define(Mul, "MUL", 3)
	define(Div, "DIV", 3)
	define(Mod, "MOD", 3)
	define(Negate, "NEGATE", 2)
	define(Eq, "EQ", 3)
	define(Ne, "NE", 3)
	define(Lt, "LT", 3)
	define(Le, "LE", 3)
	define(Gt, "GT", 3)
	define(Ge, "GE", 3)
	define(And, "AND", 3)
	define(Or, "OR", 3)
	define(Not, "NOT", 2)

	define(Jump, "JUMP", 1)
	define(JumpIfTrue, "JUMP_IF_TRUE", 2)
	define(JumpIfFalse, "JUMP_IF_FALSE", 2)

	define(Call, "CALL", 4)
	define(Return, "RETURN", 1)
	define(Yield, "YIELD", 1)

	define(MakeIter, "MAKE_ITER", 2)
	define(IterNext, "ITER_NEXT", 3)
	define(IterNextTemp, "ITER_NEXT_TEMP", 4)

	define(Size, "SIZE", 2)
	define(CheckSizeEqual, "CHECK_SIZE_EQUAL", 2)
	define(CheckSizeMin, "CHECK_SIZE_MIN", 2)
	define(Index, "INDEX", 3)
	define(SetIndex, "SET_INDEX", 3)

	define(MakeFunction, "MAKE_FUNCTION", 5)
	define(Capture, "CAPTURE", 3)

	define(LoadGlobal, "LOAD_GLOBAL", 2)
	define(StoreGlobal, "STORE_GLOBAL", 2)
}

// GetInfo returns the Info for an opcode, or a zero-value Info with an
// empty Name if the opcode is unknown.
func GetInfo(c Code) Info {
	return infos[c]
}

// BinaryOpType identifies which arithmetic/logic opcode triggered a
// meta-map dispatch, used by value.RunOperation implementations.
type BinaryOpType int

const (
	OpAdd BinaryOpType = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (t BinaryOpType) String() string {
	switch t {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}
