package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rawc/internal/trace"
)

// setupTracing reads the trace flags and attaches a tracer to the command
// context. The returned cleanup dumps the ring buffer when the command
// failed, then flushes and closes the tracer.
func setupTracing(cmd *cobra.Command) (func(error), error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return nil, err
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, err
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, err
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, err
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, err
	}
	funcs, err := flags.GetStringSlice("trace-func")
	if err != nil {
		return nil, err
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// --trace alone turns on phase tracing.
	if level == trace.LevelOff && output != "" && !flags.Changed("trace-level") {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func(error) {}, nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Funcs:      funcs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	root := trace.Begin(tracer, trace.ScopeDriver, "rawc "+cmd.Name(), 0)
	cmd.SetContext(trace.WithSpan(cmd.Context(), root))

	return func(runErr error) {
		detail := "ok"
		if runErr != nil {
			detail = runErr.Error()
		}
		root.End(detail)
		if runErr != nil {
			dumpRing(tracer)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: close error: %v\n", err)
		}
	}, nil
}

func dumpRing(t trace.Tracer) {
	ring := trace.RingOf(t)
	if ring == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "trace: last events before the failure:")
	if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
	}
}
