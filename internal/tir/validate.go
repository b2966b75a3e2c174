package tir

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a module and reports every
// violation it finds. It does not check whether types have a C spelling;
// that belongs to the backend.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	seen := make(map[string]bool, len(m.Funcs))
	for i, f := range m.Funcs {
		if f == nil {
			errs = append(errs, fmt.Errorf("function #%d is nil", i))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("duplicate function %q", f.Name))
		}
		seen[f.Name] = true
		if err := validateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Func) error {
	var errs []error
	if f.Name == "" {
		errs = append(errs, errors.New("empty function name"))
	}
	switch f.Kind {
	case FuncPrim:
		if f.Body == nil {
			errs = append(errs, errors.New("definition without a body"))
		}
	case FuncExtern:
		if f.Body != nil {
			errs = append(errs, errors.New("extern declaration has a body"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown function kind %d", f.Kind))
	}

	params := make(map[LocalID]bool, len(f.Params))
	for i, p := range f.Params {
		if _, ok := f.Local(p); !ok {
			errs = append(errs, fmt.Errorf("param %d: local L%d does not exist", i, p))
			continue
		}
		if params[p] {
			errs = append(errs, fmt.Errorf("param %d: local L%d listed twice", i, p))
		}
		params[p] = true
	}

	v := &validator{f: f}
	if f.Body != nil {
		v.stmt(f.Body, "body")
	}
	errs = append(errs, v.errs...)
	return errors.Join(errs...)
}

type validator struct {
	f    *Func
	errs []error
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

func (v *validator) local(path string, id LocalID) (Local, bool) {
	l, ok := v.f.Local(id)
	if !ok {
		v.fail(path, "local L%d does not exist", id)
	}
	return l, ok
}

func (v *validator) stmt(s *Stmt, path string) {
	switch s.Kind {
	case StmtSeq:
		for i := range s.Seq {
			v.stmt(&s.Seq[i], fmt.Sprintf("%s[%d]", path, i))
		}
	case StmtEvaluate:
		v.expr(&s.Value, path)
	case StmtLet:
		v.local(path, s.Local)
		v.expr(&s.Value, path+".value")
		v.body(s, path)
	case StmtStore:
		if l, ok := v.local(path, s.Local); ok && !l.Type.IsHandle() {
			v.fail(path, "store target L%d is %s, not a handle", s.Local, l.Type)
		}
		v.expr(&s.Index, path+".index")
		v.expr(&s.Value, path+".value")
	case StmtFor:
		if l, ok := v.local(path, s.Local); ok && !l.Type.IsInt() && !l.Type.IsUInt() {
			v.fail(path, "loop variable L%d is %s, not an integer", s.Local, l.Type)
		}
		v.expr(&s.Min, path+".min")
		v.expr(&s.Extent, path+".extent")
		v.body(s, path)
	case StmtIfThenElse:
		v.expr(&s.Value, path+".cond")
		v.body(s, path)
		if s.Else != nil {
			v.stmt(s.Else, path+".else")
		}
	case StmtAssert:
		v.expr(&s.Value, path+".cond")
		v.body(s, path)
	case StmtAllocate, StmtAllocateConst:
		if l, ok := v.local(path, s.Local); ok && (!l.Type.IsHandle() || l.Pointee.IsZero()) {
			v.fail(path, "allocation L%d must be a typed handle", s.Local)
		}
		if s.Size <= 0 {
			v.fail(path, "allocation size %d must be positive", s.Size)
		}
		if s.Kind == StmtAllocateConst && len(s.Ints) > 0 && len(s.Floats) > 0 {
			v.fail(path, "constant data mixes %d integer and %d float elements", len(s.Ints), len(s.Floats))
		} else if s.Kind == StmtAllocateConst && len(s.Ints)+len(s.Floats) != int(s.Size) {
			v.fail(path, "constant data has %d elements, size is %d", len(s.Ints)+len(s.Floats), s.Size)
		}
		v.body(s, path)
	default:
		v.fail(path, "invalid statement kind %d", s.Kind)
	}
}

func (v *validator) body(s *Stmt, path string) {
	if s.Body == nil {
		v.fail(path, "%s without a body", s.Kind)
		return
	}
	v.stmt(s.Body, path+".body")
}

var exprArity = map[ExprKind]int{
	ExprVar:       0,
	ExprIntImm:    0,
	ExprFloatImm:  0,
	ExprStringImm: 0,
	ExprBinary:    2,
	ExprNot:       1,
	ExprCast:      1,
	ExprSelect:    3,
	ExprLoad:      1,
}

func (v *validator) expr(e *Expr, path string) {
	if want, ok := exprArity[e.Kind]; ok && len(e.Args) != want {
		v.fail(path, "%s expects %d operands, got %d", e.Kind, want, len(e.Args))
		return
	}
	switch e.Kind {
	case ExprVar:
		v.local(path, e.Local)
	case ExprIntImm, ExprFloatImm, ExprStringImm:
	case ExprBinary:
		if !e.BinOp.Valid() {
			v.fail(path, "unknown binary operator %d", e.BinOp)
		}
	case ExprNot, ExprCast, ExprSelect:
	case ExprLoad:
		if l, ok := v.local(path, e.Local); ok && !l.Type.IsHandle() {
			v.fail(path, "load source L%d is %s, not a handle", e.Local, l.Type)
		}
	case ExprCall:
		if !e.Op.Valid() {
			v.fail(path, "unknown builtin %d", e.Op)
		}
		if e.Op == OpExtern && e.Str == "" {
			v.fail(path, "extern call without a callee name")
		}
	default:
		v.fail(path, "invalid expression kind %d", e.Kind)
		return
	}
	for i := range e.Args {
		v.expr(&e.Args[i], fmt.Sprintf("%s.%s[%d]", path, e.Kind, i))
	}
}
