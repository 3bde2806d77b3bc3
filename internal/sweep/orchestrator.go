package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hepsim/stringsweep/internal/generator"
	"github.com/hepsim/stringsweep/internal/hist"
	"github.com/hepsim/stringsweep/internal/logging"
)

// ErrInit reports a generator session that failed to initialize. It is
// fatal for the whole sweep: a configuration that breaks one setting almost
// certainly breaks them all, so no partial output is produced.
var ErrInit = errors.New("generator session init failed")

// Config describes one sweep: the ordered settings, the per-setting trial
// budget, the shared histogram geometry, and the seeded-quark options.
type Config struct {
	// Settings are processed in order; each owns an independent session
	// and histogram.
	Settings []Setting

	// Trials is the fixed number of event-generation attempts per
	// setting. Failed trials consume a slot and are not retried.
	Trials int

	// HistLo, HistHi, and HistBins define the shared histogram geometry.
	HistLo   float64
	HistHi   float64
	HistBins int

	// QuarkID is the PDG id of the seeded quark species.
	QuarkID int

	// MasslessQuarks seeds the quarks with zero mass instead of the
	// species rest mass.
	MasslessQuarks bool

	// PTSmearing leaves transverse-momentum smearing enabled; when
	// false the generator is restricted to 1+1 dimensions.
	PTSmearing bool

	// Parallel runs settings as independent tasks. Results are still
	// collected in sweep order.
	Parallel bool

	// ProgressEvery logs a progress line every that many trials; 0
	// disables progress logging.
	ProgressEvery int
}

// SettingStats summarizes one setting's trial block.
type SettingStats struct {
	Label    string
	Trials   int
	Failures int
	Filled   int64
	Mean     float64
	StdDev   float64
}

// Orchestrator runs the sweep: per setting it constructs a fresh session,
// runs the trial budget, and finalizes the setting's histogram into the
// series collection.
type Orchestrator struct {
	cfg        Config
	newSession generator.Factory
	log        *slog.Logger
}

// NewOrchestrator creates an orchestrator. The factory is called once per
// setting with the setting's index.
func NewOrchestrator(cfg Config, factory generator.Factory, log *slog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, newSession: factory, log: log}
}

type settingResult struct {
	hist  *hist.Histogram
	stats SettingStats
	err   error
}

// Run processes all settings and returns the finalized series in sweep
// order together with per-setting summaries. Any session init failure or
// invalid configuration aborts the sweep with no partial result.
func (o *Orchestrator) Run(ctx context.Context) (*SeriesCollector, []SettingStats, error) {
	if o.cfg.Trials <= 0 {
		return nil, nil, fmt.Errorf("trial budget must be positive, got %d", o.cfg.Trials)
	}
	if len(o.cfg.Settings) == 0 {
		return nil, nil, errors.New("no sweep settings configured")
	}

	results := make([]settingResult, len(o.cfg.Settings))

	if o.cfg.Parallel {
		var wg sync.WaitGroup
		for i, s := range o.cfg.Settings {
			wg.Add(1)
			go func(i int, s Setting) {
				defer wg.Done()
				results[i].hist, results[i].stats, results[i].err = o.runSetting(ctx, i, s)
			}(i, s)
		}
		wg.Wait()
	} else {
		for i, s := range o.cfg.Settings {
			results[i].hist, results[i].stats, results[i].err = o.runSetting(ctx, i, s)
			if results[i].err != nil {
				break
			}
		}
	}

	// Surface the first failure in sweep order.
	for _, res := range results {
		if res.err != nil {
			return nil, nil, res.err
		}
	}

	collector := NewSeriesCollector()
	stats := make([]SettingStats, 0, len(results))
	for i, res := range results {
		if err := collector.Add(o.cfg.Settings[i], res.hist); err != nil {
			return nil, nil, err
		}
		stats = append(stats, res.stats)
	}
	return collector, stats, nil
}

// runSetting drives one setting from Init through Finalized: fresh session,
// fresh histogram, exactly cfg.Trials attempts.
func (o *Orchestrator) runSetting(ctx context.Context, index int, s Setting) (*hist.Histogram, SettingStats, error) {
	stats := SettingStats{Label: s.Label, Trials: o.cfg.Trials}
	log := o.log.With("setting", s.Label, "mass_gev", s.Value)

	sess := o.newSession(index)
	opts := []generator.Option{
		generator.OptNoHardProcess,
		generator.OptNoHadronDecay,
		generator.OptQuietLog,
	}
	if !o.cfg.PTSmearing {
		opts = append(opts, generator.OptNoPTSmearing)
	}
	sess.Configure(opts...)

	log.Info("initialising generator session")
	if err := sess.Init(); err != nil {
		return nil, stats, fmt.Errorf("%w: setting %q: %v", ErrInit, s.Label, err)
	}

	h, err := hist.New(o.cfg.HistLo, o.cfg.HistHi, o.cfg.HistBins)
	if err != nil {
		return nil, stats, err
	}

	runner := TrialRunner{
		QuarkID:        o.cfg.QuarkID,
		MasslessQuarks: o.cfg.MasslessQuarks,
	}

	for trial := 0; trial < o.cfg.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		ys, err := runner.RunTrial(sess, s.Value, PrimaryHadron)
		if err != nil {
			// A failed trial consumes its slot: no retry, no backfill.
			// Individual failures only surface at trace level; the
			// per-setting summary carries the aggregate.
			stats.Failures++
			log.Log(ctx, logging.LevelTrace, "trial failed", "trial", trial, "err", err)
			continue
		}
		for _, y := range ys {
			h.Fill(y)
		}

		if pe := o.cfg.ProgressEvery; pe > 0 && (trial+1)%pe == 0 {
			log.Info("progress", "trials", trial+1, "filled", h.TotalCount())
		}
	}

	stats.Filled = h.TotalCount()
	stats.Mean = h.Mean()
	stats.StdDev = h.StdDev()

	if stats.Failures > 0 {
		log.Warn("trials failed during setting", "failures", stats.Failures, "trials", stats.Trials)
	}
	log.Info("setting finalized",
		"trials", stats.Trials,
		"failures", stats.Failures,
		"filled", stats.Filled,
		"mean", stats.Mean,
		"stddev", stats.StdDev,
	)
	return h, stats, nil
}
