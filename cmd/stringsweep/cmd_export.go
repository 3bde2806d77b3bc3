package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hepsim/stringsweep/internal/export"
	"github.com/hepsim/stringsweep/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored run as an Arrow IPC file",
		Long: `Export the finalized histograms of one stored run in Arrow IPC format,
one record batch per series with bin centers, counts, and the underflow
and overflow tallies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetInt64("run")
			if runID <= 0 {
				return fmt.Errorf("--run must name a stored run id")
			}
			dbPath, err := databasePath(cmd)
			if err != nil {
				return err
			}

			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open run database: %w", err)
			}
			defer st.Close()

			info, series, err := st.LoadRun(cmd.Context(), runID)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = export.FileName(runID)
			}
			if err := export.WriteFile(out, info, series); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run %d (%d series) to %s\n", runID, len(series), out)
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite run database")
	cmd.Flags().Int64("run", 0, "Run id to export")
	cmd.Flags().String("out", "", "Output path (default run-<id>.arrow)")
	return cmd
}
