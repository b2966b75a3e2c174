package rawc

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"rawc/internal/diag"
	"rawc/internal/dtype"
	"rawc/internal/target"
	"rawc/internal/tir"
)

func retZero() tir.Stmt {
	return tir.Evaluate(tir.Call(dtype.Int32(), tir.OpRet, tir.Int32(0)))
}

func simpleFunc(name string, entry bool, body ...tir.Stmt) *tir.Func {
	f := tir.NewFunc(name)
	f.Attrs.Entry = entry
	s := tir.Seq(append(body, retZero())...)
	f.Body = &s
	return f
}

func vectorAdd(name string) *tir.Func {
	f := tir.NewFunc(name)
	a := f.AddBufferParam("A", dtype.Float32())
	b := f.AddBufferParam("B", dtype.Float32())
	c := f.AddBufferParam("C", dtype.Float32())
	n := f.AddParam("n", dtype.Int32())
	i := f.AddLocal("i", dtype.Int32())
	sum := tir.Binary(tir.BinAdd,
		tir.Load(dtype.Float32(), a, f.Var(i)),
		tir.Load(dtype.Float32(), b, f.Var(i)))
	body := tir.Seq(
		tir.For(i, tir.Int32(0), f.Var(n), tir.Store(c, f.Var(i), sum)),
		retZero(),
	)
	f.Body = &body
	return f
}

func packed(name string, begin, end int64) tir.Stmt {
	return tir.Evaluate(tir.Call(dtype.Int32(), tir.OpCallPackedLowered,
		tir.StringImm(name), tir.Int32(0), tir.Int32(0), tir.Int32(begin), tir.Int32(end)))
}

func cpacked(name string, begin, end int64, handle tir.Expr) tir.Stmt {
	return tir.Evaluate(tir.Call(dtype.Int32(), tir.OpCallCPackedLowered,
		tir.StringImm(name), tir.Int32(0), tir.Int32(0), tir.Int32(begin), tir.Int32(end), handle))
}

func build(t *testing.T, funcs ...*tir.Func) string {
	t.Helper()
	m, err := Build(context.Background(), &tir.Module{Name: "test", Funcs: funcs}, target.Default())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m.Source()
}

func TestBuildVectorAdd(t *testing.T) {
	src := build(t, vectorAdd("add"))
	if !strings.HasPrefix(src, "// target: rawc\n#define TVM_EXPORTS\n") {
		t.Errorf("unexpected preamble:\n%s", src)
	}
	want := `#ifdef __cplusplus
extern "C"
#endif
TVM_DLL int32_t add(float* A, float* B, float* C, int32_t n) {
  for (int32_t i = 0; i < n; ++i) {
    C[i] = (A[i] + B[i]);
  }
  return 0;
}
`
	if !strings.Contains(src, want) {
		t.Errorf("function text mismatch:\n%s", src)
	}
}

func TestEmissionOrder(t *testing.T) {
	orders := [][]string{
		{"b_fn", "a_fn", "entry_fn"},
		{"entry_fn", "b_fn", "a_fn"},
		{"a_fn", "entry_fn", "b_fn"},
	}
	var first string
	for _, order := range orders {
		funcs := make([]*tir.Func, 0, len(order))
		for _, name := range order {
			funcs = append(funcs, simpleFunc(name, name == "entry_fn"))
		}
		m, err := Build(context.Background(), &tir.Module{Funcs: funcs}, target.Default())
		if err != nil {
			t.Fatalf("Build(%v): %v", order, err)
		}
		if got := m.FuncNames(); !slices.Equal(got, []string{"a_fn", "b_fn", "entry_fn"}) {
			t.Errorf("Build(%v) names = %v", order, got)
		}
		if m.Format() != "c" {
			t.Errorf("Format = %q", m.Format())
		}
		src := m.Source()
		a, b, e := strings.Index(src, " a_fn("), strings.Index(src, " b_fn("), strings.Index(src, " entry_fn(")
		if a < 0 || a > b || b > e {
			t.Errorf("Build(%v) emitted functions out of order:\n%s", order, src)
		}
		if first == "" {
			first = src
		} else if src != first {
			t.Errorf("Build(%v) output differs from the first order", order)
		}
	}
}

func TestStructuralViolations(t *testing.T) {
	tests := []struct {
		name  string
		funcs []*tir.Func
		want  string
	}{
		{
			name:  "two_entries",
			funcs: []*tir.Func{simpleFunc("main_a", true), simpleFunc("main_b", true)},
			want:  "more than one entry function",
		},
		{
			name:  "extern_decl",
			funcs: []*tir.Func{simpleFunc("a", false), {Name: "ext", Kind: tir.FuncExtern}},
			want:  "not a function definition",
		},
		{
			name:  "keyword_name",
			funcs: []*tir.Func{simpleFunc("int", false)},
			want:  "not a usable C identifier",
		},
		{
			name:  "duplicate_name",
			funcs: []*tir.Func{simpleFunc("f", false), simpleFunc("f", false)},
			want:  "duplicate function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(context.Background(), &tir.Module{Funcs: tt.funcs}, target.Default())
			if !errors.Is(err, diag.StructuralViolation) {
				t.Fatalf("Build = %v, want StructuralViolation", err)
			}
			if m != nil {
				t.Error("partial module returned")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSystemLibRequiresCRuntime(t *testing.T) {
	tgt := target.Default()
	tgt.SystemLib = true
	tgt.Runtime = "llvm"
	_, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{simpleFunc("f", false)}}, tgt)
	if !errors.Is(err, diag.ConfigConflict) {
		t.Fatalf("Build = %v, want ConfigConflict", err)
	}
	if !strings.Contains(err.Error(), "llvm") {
		t.Errorf("diagnostic %q does not name the dialect", err)
	}

	tgt.Runtime = "c"
	if _, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{simpleFunc("f", false)}}, tgt); err != nil {
		t.Errorf("Build with runtime=c: %v", err)
	}
}

func TestPackedCallInternsOneGlobal(t *testing.T) {
	g := NewGenerator(target.Default())
	mod := &tir.Module{Funcs: []*tir.Func{
		simpleFunc("first", false, packed("myfunc", 0, 2), packed("myfunc", 2, 4)),
		simpleFunc("second", false, packed("myfunc", 0, 1), cpacked("other", 0, 3, tir.NullHandle())),
	}}
	m, err := g.Build(context.Background(), mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	src := m.Source()
	if n := strings.Count(src, "static void* myfunc_packed = NULL;"); n != 1 {
		t.Errorf("myfunc_packed declared %d times:\n%s", n, src)
	}
	if n := strings.Count(src, "static void* other_packed = NULL;"); n != 1 {
		t.Errorf("other_packed declared %d times", n)
	}
	if n := strings.Count(src, "  // Call packed function\n"); n != 4 {
		t.Errorf("found %d packed call comments, want 4", n)
	}
	if strings.Index(src, "myfunc_packed") > strings.Index(src, "first(") {
		t.Error("global slot is declared after its first use")
	}

	calls := g.PackedCalls()
	want := []FunctionInfo{
		{FuncName: "myfunc", NumArgs: 2, Global: "myfunc_packed"},
		{FuncName: "myfunc", NumArgs: 2, Global: "myfunc_packed"},
		{FuncName: "myfunc", NumArgs: 1, Global: "myfunc_packed"},
		{FuncName: "other", NumArgs: 2, Handle: NoHandle, Global: "other_packed"},
	}
	if !slices.Equal(calls, want) {
		t.Errorf("PackedCalls = %+v\nwant %+v", calls, want)
	}
	if calls[3].Handle.String() != "NULL" {
		t.Errorf("absent handle prints %q", calls[3].Handle)
	}
}

func TestCPackedNamedHandle(t *testing.T) {
	g := NewGenerator(target.Default())
	mod := &tir.Module{Funcs: []*tir.Func{simpleFunc("f", false, cpacked("conv", 1, 4, tir.StringImm("ctx")))}}
	if _, err := g.Build(context.Background(), mod); err != nil {
		t.Fatalf("Build: %v", err)
	}
	calls := g.PackedCalls()
	if len(calls) != 1 {
		t.Fatalf("PackedCalls = %+v", calls)
	}
	if calls[0].NumArgs != 2 || calls[0].Handle != NamedHandle("ctx") || calls[0].Handle.String() != "ctx" {
		t.Errorf("FunctionInfo = %+v", calls[0])
	}
}

func TestMalformedCalls(t *testing.T) {
	tests := []struct {
		name string
		stmt tir.Stmt
		want []string
	}{
		{"negative_range", packed("myfunc", 3, 1), []string{"myfunc", "negative"}},
		{"cpacked_bad_handle", cpacked("conv", 0, 2, tir.Int32(7)), []string{"conv", "arg 5"}},
		{"cpacked_no_handle_slot", cpacked("conv", 2, 2, tir.NullHandle()), []string{"conv", "resource handle"}},
		{"packed_name_not_literal", tir.Evaluate(tir.Call(dtype.Int32(), tir.OpCallPackedLowered,
			tir.Int32(1), tir.Int32(0), tir.Int32(0), tir.Int32(0), tir.Int32(1))), []string{"arg 0"}},
		{"unknown_alloca_kind", tir.Evaluate(tir.Call(dtype.Handle(), tir.OpStackAlloca,
			tir.StringImm("tensor"), tir.Int32(1))), []string{"tensor"}},
		{"ret_as_value", tir.Evaluate(tir.Binary(tir.BinAdd, tir.Int32(1),
			tir.Call(dtype.Int32(), tir.OpRet, tir.Int32(0)))), []string{"yields none"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{simpleFunc("f", false, tt.stmt)}}, target.Default())
			if !errors.Is(err, diag.MalformedCall) {
				t.Fatalf("Build = %v, want MalformedCall", err)
			}
			if m != nil {
				t.Error("partial module returned")
			}
			for _, w := range append(tt.want, "in function f") {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestStackAllocaAndThrow(t *testing.T) {
	f := tir.NewFunc("f")
	slot := f.AddLocal("stack_shape", dtype.Handle())
	alloca := tir.Call(dtype.Handle(), tir.OpStackAlloca, tir.StringImm("array"), tir.Int32(2))
	body := tir.Let(slot, alloca, tir.Seq(
		tir.Evaluate(tir.Call(dtype.Int32(), tir.OpThrowLastError)),
	))
	f.Body = &body

	src := build(t, f)
	want := "  TVMValue stack[12];\n  void* stack_shape = stack;\n  return -1;\n"
	if !strings.Contains(src, want) {
		t.Errorf("missing %q in:\n%s", want, src)
	}
}

func TestAssertAndConstants(t *testing.T) {
	f := tir.NewFunc("f")
	n := f.AddParam("n", dtype.Int32())
	w := f.AddBuffer("w", dtype.Float32())
	body := tir.AllocateConstFloats(w, []float64{1, 2.5},
		tir.Assert(tir.Binary(tir.BinGT, f.Var(n), tir.Int32(0)), "n must be \"positive\"", retZero()))
	f.Body = &body

	tgt := target.Default()
	tgt.ConstantsByteAlignment = 64
	m, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{f}}, tgt)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	src := m.Source()
	for _, want := range []string{
		"static const float w[2] __attribute__((aligned(64))) = {1.0f, 2.5f};\n",
		"  if (!((n > 0))) {\n    TVMAPISetLastError(\"n must be \\\"positive\\\"\");\n    return -1;\n  }\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q in:\n%s", want, src)
		}
	}
}

func TestZeroTargetUsesDefaultAlignment(t *testing.T) {
	f := tir.NewFunc("f")
	w := f.AddBuffer("w", dtype.Int32())
	body := tir.AllocateConstInts(w, []int64{3, 4}, retZero())
	f.Body = &body

	m, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{f}}, target.Target{SystemLib: true, Runtime: "c"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "static const int32_t w[2] __attribute__((aligned(16))) = {3, 4};\n"
	if !strings.Contains(m.Source(), want) {
		t.Errorf("missing %q in:\n%s", want, m.Source())
	}

	bad := target.Target{ConstantsByteAlignment: -8, Runtime: "c"}
	if _, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{simpleFunc("g", false)}}, bad); !errors.Is(err, diag.ConfigConflict) {
		t.Errorf("alignment -8: %v, want ConfigConflict", err)
	}
}

func TestMixedConstantDataIsRejected(t *testing.T) {
	f := tir.NewFunc("f")
	w := f.AddBuffer("w", dtype.Float32())
	body := tir.AllocateConstFloats(w, []float64{1, 2}, retZero())
	body.Ints = []int64{7}
	body.Size = 3
	f.Body = &body

	m, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{f}}, target.Default())
	if !errors.Is(err, diag.StructuralViolation) {
		t.Fatalf("Build = %v, want StructuralViolation", err)
	}
	if m != nil {
		t.Error("partial module returned")
	}
}

func TestEmptyStackAllocaKeepsOneSlot(t *testing.T) {
	f := tir.NewFunc("f")
	slot := f.AddLocal("stack_shape", dtype.Handle())
	alloca := tir.Call(dtype.Handle(), tir.OpStackAlloca, tir.StringImm("shape"), tir.Int32(0))
	body := tir.Let(slot, alloca, retZero())
	f.Body = &body

	src := build(t, f)
	if !strings.Contains(src, "  TVMValue stack[1];\n") || strings.Contains(src, "[0]") {
		t.Errorf("empty allocation not widened to one slot:\n%s", src)
	}
}

func TestUnsupportedTypeAbortsPass(t *testing.T) {
	f := simpleFunc("f", false)
	f.AddParam("x", dtype.Float(8, 1))
	m, err := Build(context.Background(), &tir.Module{Funcs: []*tir.Func{f}}, target.Default())
	if !errors.Is(err, diag.UnsupportedType) {
		t.Fatalf("Build = %v, want UnsupportedType", err)
	}
	if m != nil {
		t.Error("partial module returned")
	}
	if diag.CodeOf(err) != diag.UnsupportedType || !strings.Contains(err.Error(), "in function f") {
		t.Errorf("diagnostic %q", err)
	}
}

func TestBuildTwice(t *testing.T) {
	g := NewGenerator(target.Default())
	mod := &tir.Module{Funcs: []*tir.Func{simpleFunc("f", false)}}
	if _, err := g.Build(context.Background(), mod); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Build(context.Background(), mod); !errors.Is(err, ErrFinished) {
		t.Errorf("second Build = %v, want ErrFinished", err)
	}
}

func TestExpressions(t *testing.T) {
	f := tir.NewFunc("f")
	x := f.AddParam("x", dtype.Int64())
	y := f.AddParam("y", dtype.Float(64, 1))
	buf := f.AddParam("buf", dtype.Handle())
	r := f.AddLocal("r", dtype.Int64())
	body := tir.Seq(
		tir.Let(r, tir.Binary(tir.BinMin, f.Var(x), tir.IntImm(dtype.Int64(), 4)),
			tir.Store(buf, tir.Int32(1), tir.Cast(dtype.Float32(), f.Var(y)))),
		tir.IfElse(tir.Binary(tir.BinLT, f.Var(y), tir.FloatImm(dtype.Float(64, 1), 0.5)),
			tir.Evaluate(tir.CallExtern(dtype.Int32(), "puts", tir.StringImm("lo\n"))),
			tir.Evaluate(tir.Select(tir.Not(tir.IntImm(dtype.Bool(1), 1)), tir.Int32(1), tir.Int32(2)))),
		retZero(),
	)
	f.Body = &body

	src := build(t, f)
	for _, want := range []string{
		"TVM_DLL int32_t f(int64_t x, double y, void* buf) {",
		"  int64_t r = ((x) < (((int64_t)4)) ? (x) : (((int64_t)4)));\n",
		"  ((float*)buf)[1] = ((float)y);\n",
		"  if ((y < 0.5)) {\n    puts(\"lo\\n\");\n  } else {\n    ((!true) ? 1 : 2);\n  }\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q in:\n%s", want, src)
		}
	}
}

func TestDeterministicOutput(t *testing.T) {
	mk := func() *tir.Module {
		return &tir.Module{Funcs: []*tir.Func{
			simpleFunc("z", true, packed("g", 0, 1)),
			vectorAdd("add"),
			simpleFunc("sub", false, packed("g", 0, 1)),
		}}
	}
	first := build(t, mk().Funcs...)
	for range 5 {
		if got := build(t, mk().Funcs...); got != first {
			t.Fatal("output changed between runs")
		}
	}
}
