package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hepsim/stringsweep/internal/store"
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge stored runs into a new run",
		Long: `Merge two or more stored runs by summing same-label histograms and
saving the result as a new run. All runs must carry the same series labels
and histogram geometry; trial and failure tallies are summed alongside the
counters.

Example:
  stringsweep merge --db runs.db --runs 1,2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runIDs, _ := cmd.Flags().GetInt64Slice("runs")
			if len(runIDs) < 2 {
				return fmt.Errorf("--runs must name at least two stored run ids")
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

			merged, err := mergeRuns(cmd, st, runIDs)
			if err != nil {
				return err
			}

			ids := make([]string, len(runIDs))
			for i, id := range runIDs {
				ids[i] = fmt.Sprint(id)
			}
			note := "merge of runs " + strings.Join(ids, ", ")

			newID, err := st.SaveRun(cmd.Context(), note, "", merged)
			if err != nil {
				return fmt.Errorf("store merged run: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored merged run %d (%d series)\n", newID, len(merged))
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite run database")
	cmd.Flags().Int64Slice("runs", nil, "Run ids to merge")
	return cmd
}

// mergeRuns sums the series of the named runs. The first run fixes the
// series order; every other run must provide a same-geometry series for
// each of its labels.
func mergeRuns(cmd *cobra.Command, st *store.Store, runIDs []int64) ([]store.RunSeries, error) {
	_, base, err := st.LoadRun(cmd.Context(), runIDs[0])
	if err != nil {
		return nil, err
	}

	merged := make([]store.RunSeries, len(base))
	hists := make(map[string]int, len(base))
	for i, sr := range base {
		merged[i] = sr
		hists[sr.Label] = i
	}

	for _, id := range runIDs[1:] {
		_, other, err := st.LoadRun(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		if len(other) != len(base) {
			return nil, fmt.Errorf("run %d has %d series, run %d has %d", id, len(other), runIDs[0], len(base))
		}
		for _, sr := range other {
			i, ok := hists[sr.Label]
			if !ok {
				return nil, fmt.Errorf("run %d has no series labeled %q", runIDs[0], sr.Label)
			}

			target, err := merged[i].Histogram()
			if err != nil {
				return nil, err
			}
			addition, err := sr.Histogram()
			if err != nil {
				return nil, err
			}
			if err := target.Merge(addition); err != nil {
				return nil, fmt.Errorf("series %q of run %d: %w", sr.Label, id, err)
			}

			merged[i].Counts = target.Counts()
			merged[i].Underflow = target.Underflow()
			merged[i].Overflow = target.Overflow()
			merged[i].Trials += sr.Trials
			merged[i].Failures += sr.Failures
		}
	}
	return merged, nil
}
