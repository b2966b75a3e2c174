package tir

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	// StmtInvalid is the zero value and never valid.
	StmtInvalid StmtKind = iota
	// StmtSeq runs Seq in order.
	StmtSeq
	// StmtEvaluate evaluates Value for its side effects.
	StmtEvaluate
	// StmtLet binds Value to Local for the duration of Body.
	StmtLet
	// StmtStore writes Value to element Index of buffer Local.
	StmtStore
	// StmtFor runs Body with Local from Min to Min+Extent (exclusive).
	StmtFor
	// StmtIfThenElse runs Body when Value holds, Else otherwise.
	StmtIfThenElse
	// StmtAssert fails the function with Message unless Value holds.
	StmtAssert
	// StmtAllocate declares Size elements of scratch storage bound to Local.
	StmtAllocate
	// StmtAllocateConst declares read-only data (Ints or Floats) bound to Local.
	StmtAllocateConst
)

func (k StmtKind) String() string {
	switch k {
	case StmtSeq:
		return "seq"
	case StmtEvaluate:
		return "evaluate"
	case StmtLet:
		return "let"
	case StmtStore:
		return "store"
	case StmtFor:
		return "for"
	case StmtIfThenElse:
		return "if"
	case StmtAssert:
		return "assert"
	case StmtAllocate:
		return "allocate"
	case StmtAllocateConst:
		return "allocate_const"
	default:
		return "invalid"
	}
}

// Stmt is an IR statement. Kind selects the meaningful fields.
type Stmt struct {
	Kind    StmtKind
	Local   LocalID
	Value   Expr
	Index   Expr
	Min     Expr
	Extent  Expr
	Message string
	Size    int64
	Ints    []int64
	Floats  []float64
	Body    *Stmt
	Else    *Stmt
	Seq     []Stmt
}

// Seq returns a sequence statement.
func Seq(stmts ...Stmt) Stmt {
	return Stmt{Kind: StmtSeq, Seq: stmts}
}

// Evaluate wraps an expression statement.
func Evaluate(e Expr) Stmt {
	return Stmt{Kind: StmtEvaluate, Value: e}
}

// Let binds value to local within body.
func Let(local LocalID, value Expr, body Stmt) Stmt {
	return Stmt{Kind: StmtLet, Local: local, Value: value, Body: &body}
}

// Store writes value to buf[index].
func Store(buf LocalID, index, value Expr) Stmt {
	return Stmt{Kind: StmtStore, Local: buf, Index: index, Value: value}
}

// For loops local over [min, min+extent).
func For(local LocalID, min, extent Expr, body Stmt) Stmt {
	return Stmt{Kind: StmtFor, Local: local, Min: min, Extent: extent, Body: &body}
}

// If runs then when cond holds.
func If(cond Expr, then Stmt) Stmt {
	return Stmt{Kind: StmtIfThenElse, Value: cond, Body: &then}
}

// IfElse runs then or els depending on cond.
func IfElse(cond Expr, then, els Stmt) Stmt {
	return Stmt{Kind: StmtIfThenElse, Value: cond, Body: &then, Else: &els}
}

// Assert guards body with cond.
func Assert(cond Expr, message string, body Stmt) Stmt {
	return Stmt{Kind: StmtAssert, Value: cond, Message: message, Body: &body}
}

// Allocate declares size elements for buffer local within body.
func Allocate(buf LocalID, size int64, body Stmt) Stmt {
	return Stmt{Kind: StmtAllocate, Local: buf, Size: size, Body: &body}
}

// AllocateConstInts declares integer constant data for buf within body.
func AllocateConstInts(buf LocalID, data []int64, body Stmt) Stmt {
	return Stmt{Kind: StmtAllocateConst, Local: buf, Ints: data, Size: int64(len(data)), Body: &body}
}

// AllocateConstFloats declares floating point constant data for buf within body.
func AllocateConstFloats(buf LocalID, data []float64, body Stmt) Stmt {
	return Stmt{Kind: StmtAllocateConst, Local: buf, Floats: data, Size: int64(len(data)), Body: &body}
}
