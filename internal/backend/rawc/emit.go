// Package rawc lowers TIR modules into a single C translation unit for
// minimal-runtime targets.
//
// A Generator runs one pass: it partitions the functions into ordinary ones
// and at most one entry function, emits the ordinary ones sorted by name and
// the entry function last, then packages the text with the emitted function
// names. Any failure aborts the pass and no module is returned.
package rawc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"rawc/internal/csource"
	"rawc/internal/diag"
	"rawc/internal/namesupply"
	"rawc/internal/target"
	"rawc/internal/tir"
	"rawc/internal/trace"
)

// ErrFinished is returned when Build is called on a generator that already
// ran its pass.
var ErrFinished = errors.New("rawc: generator already finished")

// state is the position of a generator in its single forward pass.
type state uint8

const (
	stateIdle state = iota
	statePartition
	stateSort
	stateEmitOrdinary
	stateEmitEntry
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePartition:
		return "partition"
	case stateSort:
		return "sort"
	case stateEmitOrdinary:
		return "emit-ordinary"
	case stateEmitEntry:
		return "emit-entry"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Generator owns the symbol table and output buffers of one pass. It is not
// safe for concurrent use; run independent generators instead.
type Generator struct {
	target  target.Target
	tracer  trace.Tracer
	state   state
	supply  *namesupply.Supply
	globals *namesupply.Table

	decl        strings.Builder // file scope declarations
	body        strings.Builder // function definitions
	funcNames   []string
	packedCalls []FunctionInfo
}

// NewGenerator returns an idle generator for tgt.
func NewGenerator(tgt target.Target) *Generator {
	supply := namesupply.New()
	return &Generator{
		target:  tgt,
		tracer:  trace.Nop,
		supply:  supply,
		globals: namesupply.NewTable(supply),
	}
}

// Build emits mod with a fresh generator.
func Build(ctx context.Context, mod *tir.Module, tgt target.Target) (*csource.Module, error) {
	return NewGenerator(tgt).Build(ctx, mod)
}

// Build runs the pass over mod. It can be called once.
func (g *Generator) Build(ctx context.Context, mod *tir.Module) (*csource.Module, error) {
	if g.state != stateIdle {
		return nil, ErrFinished
	}
	defer func() { g.state = stateDone }()
	g.tracer = trace.FromContext(ctx)

	if err := g.target.Validate(); err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, diag.Errorf(diag.StructuralViolation, "no module to emit")
	}
	span := trace.Begin(g.tracer, trace.ScopeModule, "module:"+mod.Name, trace.CurrentSpan(ctx))
	defer span.End("")

	if err := tir.Validate(mod); err != nil {
		return nil, diag.Errorf(diag.StructuralViolation, "invalid module %s: %v", mod.Name, err)
	}

	g.state = statePartition
	ordinary, entry, err := partition(mod.Funcs)
	if err != nil {
		return nil, err
	}

	g.state = stateSort
	slices.SortFunc(ordinary, func(a, b *tir.Func) int { return strings.Compare(a.Name, b.Name) })
	if err := g.reserveNames(ordinary, entry); err != nil {
		return nil, err
	}

	g.state = stateEmitOrdinary
	for _, f := range ordinary {
		if err := g.emitFunction(f, span.ID()); err != nil {
			return nil, err
		}
	}

	g.state = stateEmitEntry
	if entry != nil {
		if err := g.emitFunction(entry, span.ID()); err != nil {
			return nil, err
		}
	}

	span.WithExtra("funcs", fmt.Sprint(len(g.funcNames))).
		WithExtra("packed_globals", fmt.Sprint(g.globals.Len()))
	return csource.New(g.source(), csource.FormatC, g.funcNames), nil
}

// PackedCalls returns the packed call sites lowered so far, in emission order.
func (g *Generator) PackedCalls() []FunctionInfo {
	return slices.Clone(g.packedCalls)
}

// partition separates the entry function from the others.
func partition(funcs []*tir.Func) (ordinary []*tir.Func, entry *tir.Func, err error) {
	ordinary = make([]*tir.Func, 0, len(funcs))
	for _, f := range funcs {
		if !f.Attrs.Entry {
			ordinary = append(ordinary, f)
			continue
		}
		if entry != nil {
			return nil, nil, diag.Errorf(diag.StructuralViolation, "more than one entry function: %s and %s", entry.Name, f.Name)
		}
		entry = f
	}
	return ordinary, entry, nil
}

// reserveNames claims every function symbol before any local is named, so
// locals and globals never shadow a function.
func (g *Generator) reserveNames(ordinary []*tir.Func, entry *tir.Func) error {
	all := ordinary
	if entry != nil {
		all = append(slices.Clip(ordinary), entry)
	}
	for _, f := range all {
		if !g.supply.Reserve(f.Name) {
			return diag.Errorf(diag.StructuralViolation, "function name %q is not a usable C identifier", f.Name)
		}
	}
	return nil
}

const preamble = `#define TVM_EXPORTS
#include "tvm/runtime/c_runtime_api.h"
#include "tvm/runtime/c_backend_api.h"
#include <math.h>
#include <stdbool.h>
#include <stdint.h>
`

func (g *Generator) source() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// target: %s\n", g.target)
	sb.WriteString(preamble)
	sb.WriteString("\n")
	if g.decl.Len() > 0 {
		sb.WriteString(g.decl.String())
		sb.WriteString("\n")
	}
	sb.WriteString(g.body.String())
	return sb.String()
}
