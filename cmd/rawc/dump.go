package main

import (
	"github.com/spf13/cobra"

	"rawc/internal/backend/rawc"
	"rawc/internal/tir"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] file.tir",
	Short: "Print a TIR module, or the C generated for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mod, err := tir.ReadFile(args[0])
		if err != nil {
			return err
		}
		emitC, err := cmd.Flags().GetBool("c")
		if err != nil {
			return err
		}
		if !emitC {
			return tir.DumpModule(cmd.OutOrStdout(), mod)
		}
		tgt, err := resolveTarget(cmd)
		if err != nil {
			return err
		}
		out, err := rawc.Build(cmd.Context(), mod, tgt)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write([]byte(out.Source()))
		return err
	},
}

func init() {
	dumpCmd.Flags().Bool("c", false, "print the generated C source instead of the IR")
	addTargetFlags(dumpCmd)
}
