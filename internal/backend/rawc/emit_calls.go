package rawc

import (
	"fmt"

	"rawc/internal/diag"
	"rawc/internal/tir"
)

// ResourceHandle is the C-ABI context passed to a cpacked callee. It is
// either a named variable of the enclosing interface or absent.
type ResourceHandle struct {
	Name    string
	Present bool
}

// NamedHandle returns a present resource handle.
func NamedHandle(name string) ResourceHandle { return ResourceHandle{Name: name, Present: true} }

// NoHandle is the absent resource handle.
var NoHandle = ResourceHandle{}

// String returns the C spelling: the variable name or NULL.
func (h ResourceHandle) String() string {
	if !h.Present {
		return "NULL"
	}
	return h.Name
}

// FunctionInfo describes one lowered packed call site.
type FunctionInfo struct {
	FuncName string
	NumArgs  int64
	Handle   ResourceHandle
	// Global is the interned function pointer slot of the callee.
	Global string
}

// packedSuffix keys the function pointer slot of a packed callee.
const packedSuffix = "_packed"

// Argument positions of the lowered packed call forms.
const (
	packedArgName   = 0
	packedArgBegin  = 3
	packedArgEnd    = 4
	packedArgHandle = 5
)

// lowerCall dispatches the closed builtin vocabulary. The returned string is
// the value of the call, empty when the call only produces statements.
func (fe *funcEmitter) lowerCall(call *tir.Expr) (string, error) {
	switch call.Op {
	case tir.OpStackAlloca:
		return fe.lowerStackAlloca(call)
	case tir.OpCallPackedLowered:
		info, err := functionInfo(call, false)
		if err != nil {
			return "", err
		}
		fe.emitPackedCall(info)
		return "", nil
	case tir.OpCallCPackedLowered:
		info, err := functionInfo(call, true)
		if err != nil {
			return "", err
		}
		fe.emitPackedCall(info)
		return "", nil
	case tir.OpThrowLastError:
		fe.line("return -1;")
		return "", nil
	default:
		return fe.printCall(call)
	}
}

// functionInfo reads the callee name, forwarded argument count and, for the
// C-ABI form, the resource handle of a lowered packed call.
func functionInfo(call *tir.Expr, cpacked bool) (FunctionInfo, error) {
	want := packedArgEnd + 1
	if cpacked {
		want = packedArgHandle + 1
	}
	if len(call.Args) < want {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s expects at least %d arguments, got %d", call.Op, want, len(call.Args))
	}
	nameArg := call.Args[packedArgName]
	if nameArg.Kind != tir.ExprStringImm || nameArg.Str == "" {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s: arg %d must be the callee name literal", call.Op, packedArgName)
	}
	info := FunctionInfo{FuncName: nameArg.Str}

	begin, end := call.Args[packedArgBegin], call.Args[packedArgEnd]
	if begin.Kind != tir.ExprIntImm {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s to %s: arg %d must be an integer literal", call.Op, info.FuncName, packedArgBegin)
	}
	if end.Kind != tir.ExprIntImm {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s to %s: arg %d must be an integer literal", call.Op, info.FuncName, packedArgEnd)
	}
	info.NumArgs = end.Int - begin.Int
	if info.NumArgs < 0 {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s to %s: argument range [%d, %d) is negative", call.Op, info.FuncName, begin.Int, end.Int)
	}
	if !cpacked {
		return info, nil
	}

	handle, err := resourceHandle(call.Args[packedArgHandle])
	if err != nil {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s to %s: arg %d: %v", call.Op, info.FuncName, packedArgHandle, err)
	}
	info.Handle = handle
	// The handle travels in the last argument slot.
	info.NumArgs--
	if info.NumArgs < 0 {
		return FunctionInfo{}, diag.Errorf(diag.MalformedCall, "%s to %s: argument range [%d, %d) leaves no slot for the resource handle", call.Op, info.FuncName, begin.Int, end.Int)
	}
	return info, nil
}

func resourceHandle(arg tir.Expr) (ResourceHandle, error) {
	switch {
	case arg.Kind == tir.ExprStringImm && arg.Str != "":
		return NamedHandle(arg.Str), nil
	case arg.IsCall(tir.OpReinterpret) && len(arg.Args) == 1 && arg.Args[0].Kind == tir.ExprIntImm && arg.Args[0].Int == 0:
		return NoHandle, nil
	}
	return NoHandle, fmt.Errorf("expected a resource handle name or reinterpret(0), got %s", arg.Kind)
}

// emitPackedCall interns the function pointer slot of the callee and records
// the call site. Invocation statements belong to the runtime call machinery.
func (fe *funcEmitter) emitPackedCall(info FunctionInfo) {
	info.Global = fe.g.packedName(info.FuncName)
	fe.line("// Call packed function")
	fe.g.packedCalls = append(fe.g.packedCalls, info)
}

// packedName returns the global pointer slot for callee, declaring it the
// first time the callee is seen in this pass.
func (g *Generator) packedName(callee string) string {
	id, isNew := g.globals.InternGlobal(callee + packedSuffix)
	if isNew {
		fmt.Fprintf(&g.decl, "static void* %s = NULL;\n", id)
	}
	return id
}
