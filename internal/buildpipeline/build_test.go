package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"rawc/internal/csource"
	"rawc/internal/diag"
	"rawc/internal/dtype"
	"rawc/internal/target"
	"rawc/internal/tir"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) has(file string, stage Stage, status Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range s.events {
		if evt.File == file && evt.Stage == stage && evt.Status == status {
			return true
		}
	}
	return false
}

func kernel(name string, entry bool) *tir.Func {
	f := tir.NewFunc(name)
	f.Attrs.Entry = entry
	body := tir.Seq(
		tir.Evaluate(tir.Call(dtype.Int32(), tir.OpCallPackedLowered,
			tir.StringImm("helper"), tir.Int32(0), tir.Int32(0), tir.Int32(0), tir.Int32(1))),
		tir.Evaluate(tir.Call(dtype.Int32(), tir.OpRet, tir.Int32(0))),
	)
	f.Body = &body
	return f
}

func writeModule(t *testing.T, dir, file string, funcs ...*tir.Func) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := tir.WriteFile(path, &tir.Module{Funcs: funcs}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildWritesOutputs(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	a := writeModule(t, in, "alpha.tir", kernel("b_fn", false), kernel("a_fn", false), kernel("main", true))
	b := writeModule(t, in, "beta.tir", kernel("k", false))
	sink := &recordingSink{}

	res, err := Build(context.Background(), &BuildRequest{
		Files:     []string{a, b},
		Target:    target.Default(),
		OutputDir: out,
		Jobs:      2,
		EmitDump:  true,
		Progress:  sink,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("got %d results", len(res.Files))
	}
	first := res.Files[0]
	if first.Input != a || first.SourcePath != filepath.Join(out, "alpha.c") {
		t.Errorf("first result = %+v", first)
	}
	if got := strings.Join(first.Module.FuncNames(), ","); got != "a_fn,b_fn,main" {
		t.Errorf("alpha names = %s", got)
	}
	if len(first.PackedCalls) != 3 {
		t.Errorf("alpha packed calls = %+v", first.PackedCalls)
	}

	src, err := os.ReadFile(filepath.Join(out, "alpha.c"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(src), "static void* helper_packed = NULL;") != 1 {
		t.Errorf("alpha.c:\n%s", src)
	}
	bundle, err := csource.ReadBundle(filepath.Join(out, "beta.cmod"))
	if err != nil {
		t.Fatal(err)
	}
	if bundle.Name != "beta" || bundle.Format != "c" || strings.Join(bundle.FuncNames, ",") != "k" {
		t.Errorf("beta bundle = %+v", bundle)
	}
	if _, err := os.Stat(filepath.Join(out, "beta"+DumpExt)); err != nil {
		t.Errorf("dump not written: %v", err)
	}

	for _, file := range []string{a, b} {
		if !sink.has(file, StageLoad, StatusQueued) || !sink.has(file, StageWrite, StatusDone) {
			t.Errorf("missing progress events for %s", file)
		}
	}
	if !res.Timings.Has(StageCodegen) {
		t.Error("codegen timing not recorded")
	}
}

func TestBuildFailureNamesFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeModule(t, dir, "bad.tir", kernel("x", true), kernel("y", true))
	sink := &recordingSink{}
	_, err := Build(context.Background(), &BuildRequest{
		Files:    []string{bad},
		Target:   target.Default(),
		Progress: sink,
	})
	if !errors.Is(err, diag.StructuralViolation) {
		t.Fatalf("Build = %v, want StructuralViolation", err)
	}
	if !strings.HasPrefix(err.Error(), bad+": ") {
		t.Errorf("error %q does not start with the file", err)
	}
	if !sink.has(bad, StageCodegen, StatusError) {
		t.Error("codegen error event missing")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bad.c")); !os.IsNotExist(statErr) {
		t.Errorf("partial output written: %v", statErr)
	}
}

func TestBuildRejectsConfigConflict(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "m.tir", kernel("k", false))
	tgt := target.Default()
	tgt.SystemLib = true
	tgt.Runtime = "llvm"
	_, err := Build(context.Background(), &BuildRequest{Files: []string{path}, Target: tgt})
	if !errors.Is(err, diag.ConfigConflict) {
		t.Fatalf("Build = %v, want ConfigConflict", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "m.c")); !os.IsNotExist(statErr) {
		t.Error("output written despite config conflict")
	}
}

func TestBuildRejectsClashingOutputs(t *testing.T) {
	one := writeModule(t, t.TempDir(), "m.tir", kernel("k", false))
	two := writeModule(t, t.TempDir(), "m.tir", kernel("k", false))
	_, err := Build(context.Background(), &BuildRequest{
		Files:     []string{one, two},
		Target:    target.Default(),
		OutputDir: t.TempDir(),
	})
	if err == nil || !strings.Contains(err.Error(), "both write") {
		t.Fatalf("Build = %v, want output clash", err)
	}
}

func TestModuleName(t *testing.T) {
	if got := ModuleName("/a/b/kernels.tir"); got != "kernels" {
		t.Errorf("ModuleName = %q", got)
	}
}
