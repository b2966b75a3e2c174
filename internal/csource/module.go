// Package csource packages generated C text for the module loader.
package csource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// FormatC is the dialect tag of generated C source.
const FormatC = "c"

// Module is a generated translation unit. It is immutable: accessors
// return copies.
type Module struct {
	source    string
	format    string
	funcNames []string
}

// New wraps code and the emitted function names. The text is not checked.
func New(code, format string, funcNames []string) *Module {
	names := make([]string, len(funcNames))
	copy(names, funcNames)
	return &Module{source: code, format: format, funcNames: names}
}

// Source returns the C text.
func (m *Module) Source() string { return m.source }

// Format returns the dialect tag.
func (m *Module) Format() string { return m.format }

// FuncNames returns the emitted function names in emission order.
func (m *Module) FuncNames() []string {
	out := make([]string, len(m.funcNames))
	copy(out, m.funcNames)
	return out
}

// Loader makes a generated module runnable. It is implemented by the
// runtime side, not by this repository.
type Loader interface {
	Load(m *Module) error
}

// Current schema version - increment when Bundle changes.
const bundleSchemaVersion uint16 = 1

// Bundle is the on-disk hand-off record for a loader.
type Bundle struct {
	Schema    uint16
	Name      string
	Format    string
	Source    string
	FuncNames []string
}

// Bundle returns the serialisable form of m under name.
func (m *Module) Bundle(name string) *Bundle {
	return &Bundle{
		Schema:    bundleSchemaVersion,
		Name:      name,
		Format:    m.format,
		Source:    m.source,
		FuncNames: m.FuncNames(),
	}
}

// Module rebuilds the packaged module.
func (b *Bundle) Module() *Module {
	return New(b.Source, b.Format, b.FuncNames)
}

// WriteBundle stores b at path, replacing any previous file atomically.
func WriteBundle(path string, b *Bundle) error {
	if b == nil {
		return errors.New("csource: nil bundle")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // already renamed on success

	if err := msgpack.NewEncoder(f).Encode(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadBundle loads a bundle written by WriteBundle.
func ReadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var b Bundle
	if err := msgpack.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if b.Schema != bundleSchemaVersion {
		return nil, fmt.Errorf("%s: unsupported bundle schema %d", path, b.Schema)
	}
	return &b, nil
}

// WriteSource writes the C text of m to path.
func WriteSource(path string, m *Module) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(m.source), 0o600)
}
