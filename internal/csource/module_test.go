package csource

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestModuleIsReadOnly(t *testing.T) {
	names := []string{"a_fn", "b_fn"}
	m := New("int x;\n", FormatC, names)
	names[0] = "mutated"
	if got := m.FuncNames(); got[0] != "a_fn" {
		t.Fatalf("New kept a reference to the caller's slice: %v", got)
	}
	out := m.FuncNames()
	out[1] = "mutated"
	if got := m.FuncNames(); got[1] != "b_fn" {
		t.Fatalf("FuncNames exposed internal storage: %v", got)
	}
	if m.Format() != "c" || m.Source() != "int x;\n" {
		t.Errorf("Format/Source = %q/%q", m.Format(), m.Source())
	}
}

func TestBundleFiles(t *testing.T) {
	dir := t.TempDir()
	m := New("void f() {}\n", FormatC, []string{"f"})

	bundlePath := filepath.Join(dir, "out", "kernels.cmod")
	if err := WriteBundle(bundlePath, m.Bundle("kernels")); err != nil {
		t.Fatalf("WriteBundle: %v", err)
	}
	b, err := ReadBundle(bundlePath)
	if err != nil {
		t.Fatalf("ReadBundle: %v", err)
	}
	if b.Name != "kernels" || b.Format != "c" {
		t.Errorf("bundle header = %q/%q", b.Name, b.Format)
	}
	back := b.Module()
	if back.Source() != m.Source() || !reflect.DeepEqual(back.FuncNames(), m.FuncNames()) {
		t.Errorf("bundle changed the module: %+v", b)
	}

	srcPath := filepath.Join(dir, "out", "kernels.c")
	if err := WriteSource(srcPath, m); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != m.Source() {
		t.Errorf("source file = %q", data)
	}
}

type recordingLoader struct{ loaded []*Module }

func (l *recordingLoader) Load(m *Module) error {
	l.loaded = append(l.loaded, m)
	return nil
}

func TestLoaderContract(t *testing.T) {
	var l Loader = &recordingLoader{}
	if err := l.Load(New("", FormatC, nil)); err != nil {
		t.Fatal(err)
	}
	if n := len(l.(*recordingLoader).loaded); n != 1 {
		t.Errorf("loaded %d modules", n)
	}
}
