package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rawc/internal/buildpipeline"
	"rawc/internal/target"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] file.tir...",
	Short: "Generate C source and loader bundles from TIR files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	addTargetFlags(buildCmd)
	buildCmd.Flags().StringP("out", "o", "", "output directory (default: next to each input)")
	buildCmd.Flags().IntP("jobs", "j", 0, "files built in parallel (0 = GOMAXPROCS)")
	buildCmd.Flags().Bool("emit-tir", false, "also write a readable listing of each module")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	tgt, err := resolveTarget(cmd)
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	emitTIR, err := cmd.Flags().GetBool("emit-tir")
	if err != nil {
		return err
	}
	useUI, err := progressUI(cmd, len(args))
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	req := &buildpipeline.BuildRequest{
		Files:     args,
		Target:    tgt,
		OutputDir: outDir,
		Jobs:      jobs,
		EmitDump:  emitTIR,
	}
	var res buildpipeline.BuildResult
	if useUI {
		res, err = runBuildWithUI(cmd.Context(), "rawc build", req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}
	printBuildResult(cmd.OutOrStdout(), res)
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	return err
}

// addTargetFlags registers the flags read by resolveTarget.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "", "TOML file with a [target] table")
	cmd.Flags().Bool("system-lib", false, "build a system library")
	cmd.Flags().String("runtime", "", "runtime dialect tag")
	cmd.Flags().Int("constants-byte-alignment", target.DefaultConstantsByteAlignment, "alignment of constant data in bytes")
}

// resolveTarget loads --target when given and applies the flags that were
// set explicitly on top of it.
func resolveTarget(cmd *cobra.Command) (target.Target, error) {
	flags := cmd.Flags()
	tgt := target.Default()
	path, err := flags.GetString("target")
	if err != nil {
		return tgt, err
	}
	if path != "" {
		if tgt, err = target.LoadFile(path); err != nil {
			return tgt, err
		}
	}
	if flags.Changed("system-lib") {
		if tgt.SystemLib, err = flags.GetBool("system-lib"); err != nil {
			return tgt, err
		}
	}
	if flags.Changed("runtime") {
		if tgt.Runtime, err = flags.GetString("runtime"); err != nil {
			return tgt, err
		}
	}
	if flags.Changed("constants-byte-alignment") {
		if tgt.ConstantsByteAlignment, err = flags.GetInt("constants-byte-alignment"); err != nil {
			return tgt, err
		}
	}
	return tgt, tgt.Validate()
}

func printBuildResult(out io.Writer, res buildpipeline.BuildResult) {
	ok := color.New(color.FgGreen).SprintFunc()
	for _, file := range res.Files {
		fmt.Fprintf(out, "%s %s -> %s (%d functions)\n", ok("wrote"), filepath.Base(file.Input),
			file.SourcePath, len(file.Module.FuncNames()))
	}
}
