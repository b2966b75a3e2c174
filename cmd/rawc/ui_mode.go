package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// progressUI decides whether `rawc build` draws the interactive progress
// view. "auto" draws it only on a terminal, and never when trace events
// stream to stderr underneath it.
func progressUI(cmd *cobra.Command, files int) (bool, error) {
	value, err := cmd.Flags().GetString("ui")
	if err != nil {
		return false, err
	}
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
	default:
		return false, fmt.Errorf("rawc build: invalid --ui value %q (expected auto|on|off)", value)
	}
	if files == 0 || !isTerminal(os.Stdout) {
		return false, nil
	}
	if f := cmd.Flags().Lookup("trace"); f != nil && f.Value.String() == "-" {
		return false, nil
	}
	return true, nil
}
