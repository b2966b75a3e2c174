package tir

import "rawc/internal/dtype"

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprInvalid is the zero value and never valid.
	ExprInvalid ExprKind = iota
	// ExprVar reads a local.
	ExprVar
	// ExprIntImm is an integer literal.
	ExprIntImm
	// ExprFloatImm is a floating point literal.
	ExprFloatImm
	// ExprStringImm is a string literal.
	ExprStringImm
	// ExprBinary applies a binary operator to Args[0] and Args[1].
	ExprBinary
	// ExprNot is logical negation of Args[0].
	ExprNot
	// ExprCast converts Args[0] to Type.
	ExprCast
	// ExprSelect is Args[0] ? Args[1] : Args[2].
	ExprSelect
	// ExprLoad reads element Args[0] of buffer Local.
	ExprLoad
	// ExprCall is a builtin or extern call.
	ExprCall
)

func (k ExprKind) String() string {
	switch k {
	case ExprVar:
		return "var"
	case ExprIntImm:
		return "int"
	case ExprFloatImm:
		return "float"
	case ExprStringImm:
		return "string"
	case ExprBinary:
		return "binary"
	case ExprNot:
		return "not"
	case ExprCast:
		return "cast"
	case ExprSelect:
		return "select"
	case ExprLoad:
		return "load"
	case ExprCall:
		return "call"
	default:
		return "invalid"
	}
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinMin
	BinMax
	BinEQ
	BinNE
	BinLT
	BinLE
	BinGT
	BinGE
	BinAnd
	BinOr
)

var binaryOpText = [...]string{
	BinAdd: "+",
	BinSub: "-",
	BinMul: "*",
	BinDiv: "/",
	BinMod: "%",
	BinMin: "min",
	BinMax: "max",
	BinEQ:  "==",
	BinNE:  "!=",
	BinLT:  "<",
	BinLE:  "<=",
	BinGT:  ">",
	BinGE:  ">=",
	BinAnd: "&&",
	BinOr:  "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// Valid reports whether op is a known operator.
func (op BinaryOp) Valid() bool { return int(op) < len(binaryOpText) }

// Op is the builtin call vocabulary. The set is closed.
type Op uint8

const (
	// OpInvalid is the zero value and never valid.
	OpInvalid Op = iota
	// OpExtern calls the C function named by Expr.Str.
	OpExtern
	// OpReinterpret reinterprets the bits of Args[0] as Type.
	OpReinterpret
	// OpIfThenElse is the lazy conditional Args[0] ? Args[1] : Args[2].
	OpIfThenElse
	// OpRet returns Args[0] from the enclosing function.
	OpRet
	// OpStackAlloca allocates scratch space: (kind string, count int).
	OpStackAlloca
	// OpCallPackedLowered calls a packed function resolved by name:
	// (name, values, tcodes, begin, end).
	OpCallPackedLowered
	// OpCallCPackedLowered is OpCallPackedLowered through the C ABI with a
	// trailing resource handle argument.
	OpCallCPackedLowered
	// OpThrowLastError propagates the last recorded runtime error.
	OpThrowLastError
)

var opNames = [...]string{
	OpInvalid:            "invalid",
	OpExtern:             "call_extern",
	OpReinterpret:        "reinterpret",
	OpIfThenElse:         "if_then_else",
	OpRet:                "ret",
	OpStackAlloca:        "tvm_stack_alloca",
	OpCallPackedLowered:  "tvm_call_packed_lowered",
	OpCallCPackedLowered: "tvm_call_cpacked_lowered",
	OpThrowLastError:     "tvm_throw_last_error",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "invalid"
}

// Valid reports whether op belongs to the vocabulary.
func (op Op) Valid() bool { return op != OpInvalid && int(op) < len(opNames) }

// Expr is an IR expression. Kind selects the meaningful fields:
//
//	ExprVar       Local
//	ExprIntImm    Int
//	ExprFloatImm  Float
//	ExprStringImm Str
//	ExprBinary    BinOp, Args[0..1]
//	ExprNot       Args[0]
//	ExprCast      Args[0]
//	ExprSelect    Args[0..2]
//	ExprLoad      Local (buffer), Args[0] (index)
//	ExprCall      Op, Str (extern name), Args
type Expr struct {
	Kind  ExprKind
	Type  dtype.DataType
	Local LocalID
	Int   int64
	Float float64
	Str   string
	BinOp BinaryOp
	Op    Op
	Args  []Expr
}

// IntImm returns an integer literal of type t.
func IntImm(t dtype.DataType, v int64) Expr {
	return Expr{Kind: ExprIntImm, Type: t, Int: v}
}

// Int32 returns an int32 literal.
func Int32(v int64) Expr { return IntImm(dtype.Int32(), v) }

// FloatImm returns a floating point literal of type t.
func FloatImm(t dtype.DataType, v float64) Expr {
	return Expr{Kind: ExprFloatImm, Type: t, Float: v}
}

// StringImm returns a string literal.
func StringImm(s string) Expr {
	return Expr{Kind: ExprStringImm, Type: dtype.Handle(), Str: s}
}

// Binary applies op. Comparison and logical operators produce bool.
func Binary(op BinaryOp, a, b Expr) Expr {
	t := a.Type
	if op >= BinEQ {
		t = dtype.Bool(int(a.Type.Lanes))
	}
	return Expr{Kind: ExprBinary, Type: t, BinOp: op, Args: []Expr{a, b}}
}

// Not returns the logical negation of a.
func Not(a Expr) Expr {
	return Expr{Kind: ExprNot, Type: a.Type, Args: []Expr{a}}
}

// Cast converts a to t.
func Cast(t dtype.DataType, a Expr) Expr {
	return Expr{Kind: ExprCast, Type: t, Args: []Expr{a}}
}

// Select returns cond ? a : b.
func Select(cond, a, b Expr) Expr {
	return Expr{Kind: ExprSelect, Type: a.Type, Args: []Expr{cond, a, b}}
}

// Load reads buf[index] as t.
func Load(t dtype.DataType, buf LocalID, index Expr) Expr {
	return Expr{Kind: ExprLoad, Type: t, Local: buf, Args: []Expr{index}}
}

// Call returns a builtin call.
func Call(t dtype.DataType, op Op, args ...Expr) Expr {
	return Expr{Kind: ExprCall, Type: t, Op: op, Args: args}
}

// CallExtern returns a call to the C function name.
func CallExtern(t dtype.DataType, name string, args ...Expr) Expr {
	return Expr{Kind: ExprCall, Type: t, Op: OpExtern, Str: name, Args: args}
}

// NullHandle is reinterpret(0) as a handle, the IR spelling of "no handle".
func NullHandle() Expr {
	return Call(dtype.Handle(), OpReinterpret, IntImm(dtype.Int64(), 0))
}

// IsZero reports whether e is a literal zero.
func (e Expr) IsZero() bool {
	switch e.Kind {
	case ExprIntImm:
		return e.Int == 0
	case ExprFloatImm:
		return e.Float == 0
	}
	return false
}

// IsCall reports whether e is a call to op.
func (e Expr) IsCall(op Op) bool {
	return e.Kind == ExprCall && e.Op == op
}
