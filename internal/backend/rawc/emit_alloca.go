package rawc

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"rawc/internal/diag"
	"rawc/internal/tir"
)

// Sizes of the runtime structures a stack allocation is measured in.
const (
	SlotSize      = 8  // sizeof(TVMValue)
	IndexSize     = 8  // sizeof(int64_t)
	TCodeSize     = 4  // sizeof(int)
	ArrayDescSize = 48 // sizeof(DLTensor)
)

// allocaElemSize maps a stack allocation kind to its element size in bytes.
var allocaElemSize = map[string]int64{
	"shape":     IndexSize,
	"arg_value": SlotSize,
	"arg_tcode": TCodeSize,
	"array":     ArrayDescSize,
}

// StackSlots returns how many value slots hold count elements of kind.
func StackSlots(kind string, count int64) (int, error) {
	elem, ok := allocaElemSize[kind]
	if !ok {
		return 0, diag.Errorf(diag.MalformedCall, "%s: unknown allocation kind %q", tir.OpStackAlloca, kind)
	}
	if count < 0 {
		return 0, diag.Errorf(diag.MalformedCall, "%s: negative element count %d", tir.OpStackAlloca, count)
	}
	if count > (math.MaxInt64-SlotSize)/elem {
		return 0, diag.Errorf(diag.MalformedCall, "%s: %d %s elements overflow the stack frame", tir.OpStackAlloca, count, kind)
	}
	bytes := count * elem
	slots, err := safecast.Conv[int]((bytes + SlotSize - 1) / SlotSize)
	if err != nil {
		return 0, diag.Errorf(diag.MalformedCall, "%s: %v", tir.OpStackAlloca, err)
	}
	return slots, nil
}

// lowerStackAlloca declares a TVMValue scratch array and yields its name.
// An empty request still gets one slot, since C has no zero-length arrays.
func (fe *funcEmitter) lowerStackAlloca(call *tir.Expr) (string, error) {
	if len(call.Args) != 2 {
		return "", diag.Errorf(diag.MalformedCall, "%s expects 2 arguments, got %d", call.Op, len(call.Args))
	}
	kind, count := call.Args[0], call.Args[1]
	if kind.Kind != tir.ExprStringImm {
		return "", diag.Errorf(diag.MalformedCall, "%s: arg 0 must be a string literal, got %s", call.Op, kind.Kind)
	}
	if count.Kind != tir.ExprIntImm {
		return "", diag.Errorf(diag.MalformedCall, "%s: arg 1 must be an integer literal, got %s", call.Op, count.Kind)
	}
	slots, err := StackSlots(kind.Str, count.Int)
	if err != nil {
		return "", err
	}
	slots = max(slots, 1)
	name := fe.g.supply.FreshName("stack")
	fe.line(fmt.Sprintf("TVMValue %s[%d];", name, slots))
	return name, nil
}
