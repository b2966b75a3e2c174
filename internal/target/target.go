// Package target describes the code generation target consumed by the C
// backend and loads it from a TOML file.
package target

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"rawc/internal/diag"
)

const (
	// KindRawC is the only target kind this backend builds.
	KindRawC = "rawc"
	// RuntimeC is the dialect tag of the C runtime.
	RuntimeC = "c"
	// DefaultConstantsByteAlignment applies when the file leaves it unset.
	DefaultConstantsByteAlignment = 16
)

// Target holds the attributes the backend reads.
type Target struct {
	Kind                   string `toml:"kind"`
	ConstantsByteAlignment int    `toml:"constants-byte-alignment"`
	SystemLib              bool   `toml:"system-lib"`
	Runtime                string `toml:"runtime"`
}

// Default returns a rawc target with default attributes.
func Default() Target {
	return Target{
		Kind:                   KindRawC,
		ConstantsByteAlignment: DefaultConstantsByteAlignment,
	}
}

// Validate checks the attribute combination. A system library can only be
// produced for the C runtime.
func (t Target) Validate() error {
	if t.Kind != "" && t.Kind != KindRawC {
		return diag.Errorf(diag.ConfigConflict, "unsupported target kind %q (expected %q)", t.Kind, KindRawC)
	}
	if a := t.ConstantsByteAlignment; a < 0 || a&(a-1) != 0 {
		return diag.Errorf(diag.ConfigConflict, "constants-byte-alignment must be a power of two, got %d", t.ConstantsByteAlignment)
	}
	if t.SystemLib && t.Runtime != RuntimeC {
		return diag.Errorf(diag.ConfigConflict, "c target only supports generating C runtime SystemLibs, runtime is %q", t.Runtime)
	}
	return nil
}

// Alignment returns the byte alignment of constant data. Zero means unset
// and yields the default.
func (t Target) Alignment() int {
	if t.ConstantsByteAlignment == 0 {
		return DefaultConstantsByteAlignment
	}
	return t.ConstantsByteAlignment
}

func (t Target) String() string {
	var sb strings.Builder
	kind := t.Kind
	if kind == "" {
		kind = KindRawC
	}
	sb.WriteString(kind)
	if t.Runtime != "" {
		fmt.Fprintf(&sb, " -runtime=%s", t.Runtime)
	}
	if t.SystemLib {
		sb.WriteString(" -system-lib")
	}
	if a := t.Alignment(); a != DefaultConstantsByteAlignment {
		fmt.Fprintf(&sb, " -constants-byte-alignment=%d", a)
	}
	return sb.String()
}

type fileConfig struct {
	Target Target `toml:"target"`
}

// Decode parses TOML text with a [target] table. Unset keys keep their
// defaults.
func Decode(data string) (Target, error) {
	cfg := fileConfig{Target: Default()}
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Target{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if !meta.IsDefined("target") {
		return Target{}, errors.New("missing [target]")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Target{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg.Target, nil
}

// LoadFile reads a target description from path.
func LoadFile(path string) (Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Target{}, err
	}
	t, err := Decode(string(data))
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
