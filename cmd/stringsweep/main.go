package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stringsweep",
		Short: "Rapidity distributions of primary hadrons across string energies",
		Long: `stringsweep sweeps the invariant mass of a q-qbar string across a list
of values, generates hadronization events for each mass, accumulates the
rapidities of primary hadrons into fixed-range histograms, and renders one
overlay plot comparing the distributions.

Completed sweeps can be stored in a SQLite database, merged across runs,
and exported as Arrow IPC files for columnar analysis.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML sweep configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log verbosity: info, debug, or trace")

	rootCmd.AddCommand(
		newSweepCmd(),
		newRunsCmd(),
		newMergeCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return rootCmd
}
