package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rawc/internal/backend/rawc"
	"rawc/internal/dtype"
)

var ctypeCmd = &cobra.Command{
	Use:     "ctype dtype...",
	Short:   "Show the C spelling of data types",
	Example: "  rawc ctype float32 int32x4 handle",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCTypes(cmd.OutOrStdout(), args)
	},
}

func printCTypes(out io.Writer, names []string) error {
	for _, name := range names {
		t, err := dtype.Parse(name)
		if err != nil {
			return err
		}
		spelling, err := rawc.CType(t)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%-12s %s\n", t, spelling); err != nil {
			return err
		}
	}
	return nil
}
