package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives trace events. Implementations are safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	// Close flushes and releases the output.
	Close() error
	Level() Level
	// Enabled reports Level() > LevelOff.
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory for failure dumps
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if int(m) < len(modeNames) && modeNames[m] != "" {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode reads a --trace-mode value.
func ParseMode(s string) (StorageMode, error) {
	for m, name := range modeNames {
		if name != "" && strings.EqualFold(s, name) {
			return StorageMode(m), nil
		}
	}
	return ModeStream, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// DefaultRingSize is the ring capacity when Config leaves it unset.
const DefaultRingSize = 4096

// FuncSpanPrefix starts the name of every func-scope span.
const FuncSpanPrefix = "fn:"

// Config describes the tracer of one rawc command.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks by file extension
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "-" or "" is stderr
	RingSize   int
	// Funcs keeps func-scope events only for the named C functions.
	// Empty keeps every function.
	Funcs []string
}

// New builds the tracer described by cfg.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}

	var tr Tracer
	switch cfg.Mode {
	case ModeRing:
		tr = NewRingTracer(cfg.RingSize, cfg.Level)
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		tr = NewStreamTracer(w, cfg.Level, streamFormat(cfg))
		if cfg.Mode == ModeBoth {
			tr = NewMultiTracer(cfg.Level, tr, NewRingTracer(cfg.RingSize, cfg.Level))
		}
	default:
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}
	if len(cfg.Funcs) > 0 {
		tr = focus(tr, cfg.Funcs)
	}
	return tr, nil
}

func streamFormat(cfg Config) Format {
	if cfg.Format != FormatAuto {
		return cfg.Format
	}
	if strings.HasSuffix(cfg.OutputPath, ".ndjson") || strings.HasSuffix(cfg.OutputPath, ".jsonl") {
		return FormatNDJSON
	}
	return FormatText
}

// RingOf returns the ring buffer inside t, or nil when t keeps none.
func RingOf(t Tracer) *RingTracer {
	switch tr := t.(type) {
	case *RingTracer:
		return tr
	case *MultiTracer:
		return tr.Ring()
	case *focusTracer:
		return RingOf(tr.Tracer)
	}
	return nil
}

// focusTracer drops func-scope events of functions outside funcs. Coarser
// scopes always pass.
type focusTracer struct {
	Tracer
	funcs map[string]bool
}

func focus(t Tracer, names []string) *focusTracer {
	funcs := make(map[string]bool, len(names))
	for _, n := range names {
		funcs[strings.TrimPrefix(n, FuncSpanPrefix)] = true
	}
	return &focusTracer{Tracer: t, funcs: funcs}
}

func (t *focusTracer) Emit(ev *Event) {
	if ev.Scope == ScopeFunc && !t.funcs[strings.TrimPrefix(ev.Name, FuncSpanPrefix)] {
		return
	}
	t.Tracer.Emit(ev)
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, nil
}

// nopCloser keeps Close from closing stderr.
type nopCloser struct{ io.Writer }
