package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hepsim/stringsweep/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored sweep runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := databasePath(cmd)
			if err != nil {
				return err
			}

			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open run database: %w", err)
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored runs")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tNOTE")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("db", "", "SQLite run database")
	return cmd
}

// databasePath resolves the run database from the --db flag or the config
// file, failing when neither names one.
func databasePath(cmd *cobra.Command) (string, error) {
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		return db, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("no run database configured; pass --db or set database in the config file")
	}
	return cfg.Database, nil
}
