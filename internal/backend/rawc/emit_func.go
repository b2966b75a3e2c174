package rawc

import (
	"fmt"
	"strings"

	"rawc/internal/diag"
	"rawc/internal/tir"
	"rawc/internal/trace"
)

type funcEmitter struct {
	g      *Generator
	f      *tir.Func
	indent int
	names  map[tir.LocalID]string
}

func (g *Generator) emitFunction(f *tir.Func, parent uint64) error {
	span := trace.Begin(g.tracer, trace.ScopeFunc, trace.FuncSpanPrefix+f.Name, parent)
	defer span.End("")

	if f.Kind != tir.FuncPrim || f.Body == nil {
		return diag.Errorf(diag.StructuralViolation, "%s is a %s declaration, not a function definition", f.Name, f.Kind)
	}
	fe := &funcEmitter{
		g:     g,
		f:     f,
		names: make(map[tir.LocalID]string, len(f.Locals)),
	}
	ret, err := CType(f.Result)
	if err != nil {
		return diag.InFunc(err, f.Name)
	}
	params := make([]string, 0, len(f.Params))
	for _, id := range f.Params {
		decl, err := fe.declare(id)
		if err != nil {
			return diag.InFunc(err, f.Name)
		}
		params = append(params, decl)
	}
	if len(params) == 0 {
		params = append(params, "void")
	}

	g.body.WriteString("#ifdef __cplusplus\nextern \"C\"\n#endif\n")
	fmt.Fprintf(&g.body, "TVM_DLL %s %s(%s) {\n", ret, f.Name, strings.Join(params, ", "))
	if err := fe.block(f.Body); err != nil {
		return diag.InFunc(err, f.Name)
	}
	g.body.WriteString("}\n\n")
	g.funcNames = append(g.funcNames, f.Name)
	span.WithExtra("locals", fmt.Sprint(len(fe.names)))
	return nil
}

// line writes one statement at the current indentation.
func (fe *funcEmitter) line(s string) {
	for range fe.indent {
		fe.g.body.WriteString("  ")
	}
	fe.g.body.WriteString(s)
	fe.g.body.WriteByte('\n')
}

// bind returns the C name of a local, issuing one on first use.
func (fe *funcEmitter) bind(id tir.LocalID) (string, error) {
	if name, ok := fe.names[id]; ok {
		return name, nil
	}
	local, ok := fe.f.Local(id)
	if !ok {
		return "", diag.Errorf(diag.StructuralViolation, "local L%d does not exist", id)
	}
	name := fe.g.supply.FreshName(local.Name)
	fe.names[id] = name
	return name, nil
}

// localName returns the C name of a local that is already in scope.
func (fe *funcEmitter) localName(id tir.LocalID) (string, error) {
	if name, ok := fe.names[id]; ok {
		return name, nil
	}
	local, _ := fe.f.Local(id)
	return "", diag.Errorf(diag.StructuralViolation, "local %s (L%d) is used before it is bound", local.Name, id)
}

// declare binds a local and returns its C declaration, "float* A" for a
// typed buffer handle.
func (fe *funcEmitter) declare(id tir.LocalID) (string, error) {
	name, err := fe.bind(id)
	if err != nil {
		return "", err
	}
	local, _ := fe.f.Local(id)
	if local.Type.IsHandle() && !local.Pointee.IsZero() {
		elem, err := CType(local.Pointee)
		if err != nil {
			return "", err
		}
		return elem + "* " + name, nil
	}
	ty, err := CType(local.Type)
	if err != nil {
		return "", err
	}
	return ty + " " + name, nil
}
