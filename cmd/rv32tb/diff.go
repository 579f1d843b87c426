package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32tb/trace"
)

// errTracesDiffer makes the diff command exit with a failure status.
var errTracesDiffer = errors.New("traces differ")

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <expected> <actual>",
		Short: "Compare two recorded pipeline traces",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := diffFiles(args[0], args[1])
			if err != nil {
				return err
			}
			if diff == "" {
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), diff)
			return errTracesDiffer
		},
	}
}

func diffFiles(expectedPath, actualPath string) (string, error) {
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return "", fmt.Errorf("failed to read trace: %w", err)
	}

	actual, err := os.ReadFile(actualPath)
	if err != nil {
		return "", fmt.Errorf("failed to read trace: %w", err)
	}

	return trace.Diff(string(expected), string(actual), expectedPath, actualPath)
}
