// Package tir holds the typed low-level IR consumed by the C backend.
//
// The IR is a tree: functions own a statement body, statements own
// expressions. Every node is a tagged struct whose Kind selects which fields
// are meaningful, so a module can be encoded as-is with msgpack.
package tir

import "rawc/internal/dtype"

// LocalID indexes Func.Locals.
type LocalID int32

// NoLocalID marks an unset local reference.
const NoLocalID LocalID = -1

// Local is a named value slot of a function: a parameter, a let binding, a
// loop variable or an allocated buffer.
type Local struct {
	Name string
	Type dtype.DataType
	// Pointee is the element type of a handle that addresses a typed buffer.
	// The zero value means the handle is untyped.
	Pointee dtype.DataType
}

// FuncKind distinguishes concrete definitions from abstract declarations.
type FuncKind uint8

const (
	// FuncPrim is a concrete function with a body.
	FuncPrim FuncKind = iota
	// FuncExtern is a declaration only and cannot be emitted.
	FuncExtern
)

func (k FuncKind) String() string {
	switch k {
	case FuncPrim:
		return "prim"
	case FuncExtern:
		return "extern"
	default:
		return "unknown"
	}
}

// FuncAttrs carries optional per-function attributes.
type FuncAttrs struct {
	// Entry marks the top-level runner function, emitted after all others.
	Entry bool
}

// Func is one IR function.
type Func struct {
	Name   string
	Kind   FuncKind
	Params []LocalID
	Locals []Local
	Result dtype.DataType
	Body   *Stmt
	Attrs  FuncAttrs
}

// Module is the function set handed to the backend.
type Module struct {
	Name  string
	Funcs []*Func
}

// Local returns the local with the given id, or false when id is out of range.
func (f *Func) Local(id LocalID) (Local, bool) {
	if f == nil || id < 0 || int(id) >= len(f.Locals) {
		return Local{}, false
	}
	return f.Locals[id], true
}

// AddLocal appends a local and returns its id.
func (f *Func) AddLocal(name string, t dtype.DataType) LocalID {
	f.Locals = append(f.Locals, Local{Name: name, Type: t})
	return LocalID(len(f.Locals) - 1)
}

// AddBuffer appends a handle local addressing elements of type elem.
func (f *Func) AddBuffer(name string, elem dtype.DataType) LocalID {
	f.Locals = append(f.Locals, Local{Name: name, Type: dtype.Handle(), Pointee: elem})
	return LocalID(len(f.Locals) - 1)
}

// AddParam appends a local and registers it as the next parameter.
func (f *Func) AddParam(name string, t dtype.DataType) LocalID {
	id := f.AddLocal(name, t)
	f.Params = append(f.Params, id)
	return id
}

// AddBufferParam appends a typed handle parameter.
func (f *Func) AddBufferParam(name string, elem dtype.DataType) LocalID {
	id := f.AddBuffer(name, elem)
	f.Params = append(f.Params, id)
	return id
}

// Var returns a reference expression to local id.
func (f *Func) Var(id LocalID) Expr {
	l, _ := f.Local(id)
	return Expr{Kind: ExprVar, Type: l.Type, Local: id}
}

// NewFunc returns a concrete function returning int32.
func NewFunc(name string) *Func {
	return &Func{Name: name, Kind: FuncPrim, Result: dtype.Int32()}
}

// Func returns the function named name.
func (m *Module) Func(name string) *Func {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}
