package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hepsim/stringsweep/internal/config"
	"github.com/hepsim/stringsweep/internal/generator"
	"github.com/hepsim/stringsweep/internal/logging"
	"github.com/hepsim/stringsweep/internal/plot"
	"github.com/hepsim/stringsweep/internal/store"
	"github.com/hepsim/stringsweep/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the mass sweep and render the overlay plot",
		Long: `Run the configured string-mass sweep: one independent generator session
per mass, a fixed trial budget each, and one rapidity histogram per mass,
rendered together on a shared axis.

The sweep either completes with every requested mass finalized or aborts
with no plot written. Individual failed trials are skipped and logged; a
session that fails to initialize aborts the whole sweep.

Examples:
  stringsweep sweep                              # reference sweep: 5, 20, 100 GeV
  stringsweep sweep --masses 10,50 --events 10000
  stringsweep sweep --db runs.db --output dndy.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applySweepFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			log := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			printHist, _ := cmd.Flags().GetBool("print-hist")
			return runSweep(cmd, cfg, log, printHist)
		},
	}

	cmd.Flags().Float64Slice("masses", nil, "Invariant string masses in GeV (overrides config)")
	cmd.Flags().Int("events", 0, "Trials per mass (overrides config)")
	cmd.Flags().String("output", "", "Plot output path (overrides config)")
	cmd.Flags().String("db", "", "SQLite run database; empty disables persistence")
	cmd.Flags().Int64("seed", 0, "Base random seed (overrides config)")
	cmd.Flags().Bool("parallel", false, "Run settings concurrently")
	cmd.Flags().Bool("print-hist", false, "Print each finalized histogram as text to stdout")
	return cmd
}

func applySweepFlags(cmd *cobra.Command, cfg *config.Config) {
	if masses, _ := cmd.Flags().GetFloat64Slice("masses"); len(masses) > 0 {
		cfg.Masses = masses
	}
	if events, _ := cmd.Flags().GetInt("events"); events > 0 {
		cfg.Events = events
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Output = output
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database = db
	}
	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		cfg.Seed = seed
	}
	if parallel, _ := cmd.Flags().GetBool("parallel"); parallel {
		cfg.Parallel = true
	}
}

func runSweep(cmd *cobra.Command, cfg *config.Config, log *slog.Logger, printHist bool) error {
	settings := make([]sweep.Setting, len(cfg.Masses))
	for i, m := range cfg.Masses {
		settings[i] = sweep.NewSetting(m, cfg.Color(i))
	}

	factory := func(index int) generator.Session {
		return generator.NewToySession(cfg.Seed + int64(index))
	}

	orch := sweep.NewOrchestrator(sweep.Config{
		Settings:       settings,
		Trials:         cfg.Events,
		HistLo:         cfg.Histogram.Lo,
		HistHi:         cfg.Histogram.Hi,
		HistBins:       cfg.Histogram.Bins,
		QuarkID:        cfg.QuarkID,
		MasslessQuarks: cfg.MasslessQuarks,
		PTSmearing:     cfg.PTSmearing,
		Parallel:       cfg.Parallel,
		ProgressEvery:  cfg.ProgressEvery,
	}, factory, log)

	collector, stats, err := orch.Run(cmd.Context())
	if err != nil {
		return err
	}

	if printHist {
		for _, s := range collector.Series() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s GeV string\n%s\n", s.Setting.Label, s.Hist)
		}
	}

	frame := plot.NewFrame(
		"Rapidity distributions of primary hadrons for differing string energies",
		"y", "n")
	for _, s := range collector.Series() {
		if err := frame.AddSeries(s.Hist, s.Setting.Color, s.Setting.Label+" GeV string"); err != nil {
			return err
		}
	}
	if err := frame.Save(cfg.Output); err != nil {
		return err
	}
	log.Info("plot written", "path", cfg.Output)

	if cfg.Database != "" {
		if err := storeRun(cmd, cfg, collector, stats); err != nil {
			return err
		}
	}
	return nil
}

func storeRun(cmd *cobra.Command, cfg *config.Config, collector *sweep.SeriesCollector, stats []sweep.SettingStats) error {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	defer st.Close()

	snapshot, err := cfg.Marshal()
	if err != nil {
		return err
	}

	series := collector.Series()
	rows := make([]store.RunSeries, len(series))
	for i, s := range series {
		rows[i] = store.RunSeries{
			Position:  i,
			Label:     s.Setting.Label,
			Color:     s.Setting.Color,
			Value:     s.Setting.Value,
			Lo:        s.Hist.Lo(),
			Hi:        s.Hist.Hi(),
			Bins:      s.Hist.Bins(),
			Counts:    s.Hist.Counts(),
			Underflow: s.Hist.Underflow(),
			Overflow:  s.Hist.Overflow(),
			Trials:    stats[i].Trials,
			Failures:  stats[i].Failures,
		}
	}

	id, err := st.SaveRun(cmd.Context(), "sweep", snapshot, rows)
	if err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored run %d in %s\n", id, cfg.Database)
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}
