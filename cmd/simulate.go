package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taskmon/taskmon/internal/clock/system"
	"github.com/taskmon/taskmon/internal/emitter"
)

// dataArg selects the alternate data-processing simulation.
const dataArg = "data"

// newSimulateCmd creates the 'simulate' subcommand: the canned task fixture
// used to exercise external progress monitors. It takes no flags and reads no
// configuration; its output is fixed and deterministic.
func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate [data]",
		Short: "Emit a canned progress stream on standard output",
		Long: `Runs a simulated ten-step task, printing a human-readable status line and
a machine-readable JSON progress line after each step, then a terminal JSON
result line. Every line is flushed immediately.

With the single positional argument "data", runs the alternate data-processing
simulation instead: ten human-readable label lines and no JSON output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim := emitter.New(cmd.OutOrStdout(), system.New())
			if len(args) == 1 && args[0] == dataArg {
				return sim.RunData(cmd.Context())
			}
			return sim.RunTask(cmd.Context())
		},
	}
}
