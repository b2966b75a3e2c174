// Package buildpipeline turns TIR files into C source and loader bundles.
//
// Every input file goes through load, validate, codegen and write on its own
// goroutine with its own generator, so no state is shared between files.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rawc/internal/backend/rawc"
	"rawc/internal/csource"
	"rawc/internal/target"
	"rawc/internal/tir"
	"rawc/internal/trace"
)

// Output file extensions.
const (
	SourceExt = ".c"
	BundleExt = ".cmod"
	DumpExt   = ".tir.txt"
)

// BuildRequest configures a build over one or more IR files.
type BuildRequest struct {
	Files  []string
	Target target.Target
	// OutputDir receives the generated files. Empty means next to each input.
	OutputDir string
	// Jobs bounds the number of files built at once. Zero uses GOMAXPROCS.
	Jobs int
	// EmitDump also writes a readable listing of each input module.
	EmitDump bool
	Progress ProgressSink
}

// FileResult describes the artefacts of one input file.
type FileResult struct {
	Input       string
	SourcePath  string
	BundlePath  string
	DumpPath    string
	Module      *csource.Module
	PackedCalls []rawc.FunctionInfo
	Timings     Timings
}

// BuildResult captures build artefacts and timings.
type BuildResult struct {
	Files []FileResult
	// Timings sums stage durations across all files.
	Timings Timings
}

// Build generates C for every file in req. The first failure cancels the
// remaining files; files that already finished keep their outputs.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, errors.New("missing build request")
	}
	if len(req.Files) == 0 {
		return result, errors.New("no input files")
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "build", trace.CurrentSpan(ctx))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	if err := req.Target.Validate(); err != nil {
		emit(req.Progress, "", StageValidate, StatusError, err, 0)
		return result, err
	}
	outputs, err := planOutputs(req)
	if err != nil {
		return result, err
	}

	emitQueued(req.Progress, req.Files)

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]FileResult, len(req.Files))
	done := make([]bool, len(req.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Files)))
	for i, path := range req.Files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := buildFile(gctx, req, path, outputs[i])
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			// Each goroutine owns index i.
			results[i] = res
			done[i] = true
			return nil
		})
	}
	err = g.Wait()

	for i := range results {
		if !done[i] {
			continue
		}
		result.Files = append(result.Files, results[i])
		for _, stage := range Stages {
			result.Timings.Add(stage, results[i].Timings.Duration(stage))
		}
	}
	span.WithExtra("files", fmt.Sprint(len(result.Files)))
	if err != nil {
		emit(req.Progress, "", StageWrite, StatusError, err, 0)
		return result, err
	}
	emit(req.Progress, "", StageWrite, StatusDone, nil, result.Timings.Sum(Stages...))
	return result, nil
}

// planOutputs maps every input to its output stem and rejects two inputs
// that would write the same files.
func planOutputs(req *BuildRequest) ([]string, error) {
	stems := make([]string, len(req.Files))
	seen := make(map[string]string, len(req.Files))
	for i, path := range req.Files {
		dir := req.OutputDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		stem := filepath.Join(dir, ModuleName(path))
		if prev, ok := seen[stem]; ok {
			return nil, fmt.Errorf("%s and %s both write %s%s", prev, path, stem, SourceExt)
		}
		seen[stem] = path
		stems[i] = stem
	}
	return stems, nil
}

// ModuleName is the base name of an IR file without its extension.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stageRunner times the stages of one file and reports them.
type stageRunner struct {
	sink    ProgressSink
	file    string
	timings *Timings
}

func (r stageRunner) run(stage Stage, fn func() error) error {
	start := time.Now()
	emit(r.sink, r.file, stage, StatusWorking, nil, 0)
	err := fn()
	elapsed := time.Since(start)
	r.timings.Set(stage, elapsed)
	if err != nil {
		emit(r.sink, r.file, stage, StatusError, err, elapsed)
		return err
	}
	if stage == StageWrite {
		emit(r.sink, r.file, stage, StatusDone, nil, r.timings.Sum(Stages...))
	}
	return nil
}

func buildFile(ctx context.Context, req *BuildRequest, path, stem string) (FileResult, error) {
	res := FileResult{Input: path}
	r := stageRunner{sink: req.Progress, file: path, timings: &res.Timings}

	var mod *tir.Module
	if err := r.run(StageLoad, func() error {
		var err error
		mod, err = tir.ReadFile(path)
		if err == nil && mod.Name == "" {
			mod.Name = ModuleName(path)
		}
		return err
	}); err != nil {
		return res, err
	}
	if err := r.run(StageValidate, func() error { return tir.Validate(mod) }); err != nil {
		return res, err
	}

	gen := rawc.NewGenerator(req.Target)
	if err := r.run(StageCodegen, func() error {
		var err error
		res.Module, err = gen.Build(ctx, mod)
		return err
	}); err != nil {
		return res, err
	}
	res.PackedCalls = gen.PackedCalls()

	if err := r.run(StageWrite, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.SourcePath = stem + SourceExt
		res.BundlePath = stem + BundleExt
		if err := csource.WriteSource(res.SourcePath, res.Module); err != nil {
			return err
		}
		if err := csource.WriteBundle(res.BundlePath, res.Module.Bundle(mod.Name)); err != nil {
			return err
		}
		if req.EmitDump {
			res.DumpPath = stem + DumpExt
			return writeDump(res.DumpPath, mod)
		}
		return nil
	}); err != nil {
		return res, err
	}
	return res, nil
}

func writeDump(path string, mod *tir.Module) (err error) {
	// #nosec G304 -- path is derived from build output configuration
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write IR dump: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := tir.DumpModule(f, mod); err != nil {
		return fmt.Errorf("failed to dump IR: %w", err)
	}
	return nil
}
