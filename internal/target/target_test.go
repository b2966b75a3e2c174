package target

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rawc/internal/diag"
)

func TestDecodeDefaults(t *testing.T) {
	tgt, err := Decode("[target]\nruntime = \"c\"\n")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tgt.ConstantsByteAlignment != 16 {
		t.Errorf("ConstantsByteAlignment = %d, want 16", tgt.ConstantsByteAlignment)
	}
	if tgt.SystemLib {
		t.Error("SystemLib should default to false")
	}
	if tgt.Kind != KindRawC {
		t.Errorf("Kind = %q, want %q", tgt.Kind, KindRawC)
	}
}

func TestDecodeAllKeys(t *testing.T) {
	src := `[target]
kind = "rawc"
constants-byte-alignment = 64
system-lib = true
runtime = "c"
`
	tgt, err := Decode(src)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Target{Kind: "rawc", ConstantsByteAlignment: 64, SystemLib: true, Runtime: "c"}
	if tgt != want {
		t.Errorf("Decode = %+v, want %+v", tgt, want)
	}
	if err := tgt.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"missing_table", "kind = \"rawc\"\n", "missing [target]"},
		{"unknown_key", "[target]\nlanes = 4\n", "unknown keys: target.lanes"},
		{"bad_toml", "[target\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.src)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Decode error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestValidateSystemLibRuntime(t *testing.T) {
	tgt := Default()
	tgt.SystemLib = true
	tgt.Runtime = "llvm"
	err := tgt.Validate()
	if !errors.Is(err, diag.ConfigConflict) {
		t.Fatalf("Validate = %v, want ConfigConflict", err)
	}
	if !strings.Contains(err.Error(), `"llvm"`) {
		t.Errorf("diagnostic %q does not name the dialect", err)
	}

	tgt.Runtime = "c"
	if err := tgt.Validate(); err != nil {
		t.Errorf("Validate with runtime=c: %v", err)
	}
}

func TestValidateAlignmentAndKind(t *testing.T) {
	tgt := Default()
	tgt.ConstantsByteAlignment = 12
	if err := tgt.Validate(); !errors.Is(err, diag.ConfigConflict) {
		t.Errorf("alignment 12: %v", err)
	}
	tgt = Default()
	tgt.Kind = "cuda"
	if err := tgt.Validate(); !errors.Is(err, diag.ConfigConflict) {
		t.Errorf("kind cuda: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.toml")
	if err := os.WriteFile(path, []byte("[target]\nsystem-lib = true\nruntime = \"c\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tgt, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !tgt.SystemLib || tgt.Runtime != "c" {
		t.Errorf("LoadFile = %+v", tgt)
	}
	if got := tgt.String(); got != "rawc -runtime=c -system-lib" {
		t.Errorf("String() = %q", got)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFile of a missing file succeeded")
	}
}

func TestZeroAlignmentMeansDefault(t *testing.T) {
	tgt := Target{SystemLib: true, Runtime: "c"}
	if err := tgt.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := tgt.Alignment(); got != DefaultConstantsByteAlignment {
		t.Errorf("Alignment() = %d, want %d", got, DefaultConstantsByteAlignment)
	}
	if got := tgt.String(); got != "rawc -runtime=c -system-lib" {
		t.Errorf("String() = %q", got)
	}
	tgt.ConstantsByteAlignment = -4
	if err := tgt.Validate(); !errors.Is(err, diag.ConfigConflict) {
		t.Errorf("alignment -4: %v", err)
	}
}
