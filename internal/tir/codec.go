package tir

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the encoded Module layout changes.
const schemaVersion uint16 = 1

type filePayload struct {
	Schema uint16
	Module *Module
}

// Encode writes m to w in msgpack form.
func Encode(w io.Writer, m *Module) error {
	if m == nil {
		return errors.New("tir: nil module")
	}
	return msgpack.NewEncoder(w).Encode(&filePayload{Schema: schemaVersion, Module: m})
}

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*Module, error) {
	var payload filePayload
	if err := msgpack.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("tir: decode: %w", err)
	}
	if payload.Schema != schemaVersion {
		return nil, fmt.Errorf("tir: unsupported schema version %d (want %d)", payload.Schema, schemaVersion)
	}
	if payload.Module == nil {
		return nil, errors.New("tir: payload has no module")
	}
	return payload.Module, nil
}

// WriteFile encodes m to path, replacing the file atomically.
func WriteFile(path string, m *Module) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tir-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck // already renamed on success

	if err := Encode(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile decodes the module stored at path.
func ReadFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
