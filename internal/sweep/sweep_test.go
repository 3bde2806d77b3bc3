package sweep

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/hepsim/stringsweep/internal/generator"
	"github.com/hepsim/stringsweep/internal/hist"
	"github.com/hepsim/stringsweep/internal/logging"
)

// stubSession is a deterministic generator session for exercising the sweep
// core without a real engine.
type stubSession struct {
	initErr    error
	failTrials map[int]bool
	rapidities func(trial int) []float64

	configured []generator.Option
	inited     bool
	trial      int
	advances   int
	seeded     []generator.Entity
	record     []generator.Entity
}

func (s *stubSession) Configure(opts ...generator.Option) {
	s.configured = append(s.configured, opts...)
}

func (s *stubSession) Init() error {
	if s.initErr != nil {
		return s.initErr
	}
	s.inited = true
	return nil
}

func (s *stubSession) ResetEvent() {
	s.seeded = nil
	s.record = nil
}

func (s *stubSession) AppendEntity(id, status, col, antiCol int, px, py, pz, e, mass float64) {
	s.seeded = append(s.seeded, generator.Entity{
		ID: id, Status: status, Col: col, AntiCol: antiCol,
		Px: px, Py: py, Pz: pz, E: e, Mass: mass,
	})
}

func (s *stubSession) AdvanceEvent() error {
	trial := s.trial
	s.trial++
	s.advances++
	if s.failTrials[trial] {
		return errors.New("stub event generation failed")
	}
	s.record = append(s.record, s.seeded...)
	if s.rapidities != nil {
		for _, y := range s.rapidities(trial) {
			s.record = append(s.record, generator.Entity{
				ID:     211,
				Status: 83,
				Pz:     math.Sinh(y),
				E:      math.Cosh(y),
			})
		}
	}
	return nil
}

func (s *stubSession) Entities() []generator.Entity {
	return s.record
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig(settings ...Setting) Config {
	return Config{
		Settings: settings,
		Trials:   10,
		HistLo:   -10,
		HistHi:   10,
		HistBins: 20,
		QuarkID:  1,

		MasslessQuarks: true,
	}
}

func TestRunTrialSeedsBackToBackPair(t *testing.T) {
	sess := &stubSession{inited: true}
	runner := TrialRunner{QuarkID: 2, MasslessQuarks: true}

	if _, err := runner.RunTrial(sess, 10, PrimaryHadron); err != nil {
		t.Fatalf("RunTrial: %v", err)
	}

	if len(sess.seeded) != 2 {
		t.Fatalf("seeded %d entities, want 2", len(sess.seeded))
	}
	q, qbar := sess.seeded[0], sess.seeded[1]
	if q.ID != 2 || qbar.ID != -2 {
		t.Errorf("seeded ids (%d, %d), want (2, -2)", q.ID, qbar.ID)
	}
	if q.Status != 23 || qbar.Status != 23 {
		t.Errorf("seeded statuses (%d, %d), want (23, 23)", q.Status, qbar.Status)
	}
	if q.Col != 101 || q.AntiCol != 0 || qbar.Col != 0 || qbar.AntiCol != 101 {
		t.Error("seeded pair does not share a single color line")
	}
	if q.E != 5 || qbar.E != 5 {
		t.Errorf("seeded energies (%v, %v), want (5, 5)", q.E, qbar.E)
	}
	if q.Pz != 5 || qbar.Pz != -5 {
		t.Errorf("massless momenta (%v, %v), want (5, -5)", q.Pz, qbar.Pz)
	}
}

func TestRunTrialMassiveQuarks(t *testing.T) {
	sess := &stubSession{inited: true}
	runner := TrialRunner{QuarkID: 5, MasslessQuarks: false}

	if _, err := runner.RunTrial(sess, 100, PrimaryHadron); err != nil {
		t.Fatalf("RunTrial: %v", err)
	}

	m := generator.QuarkMass(5)
	wantP := math.Sqrt(50*50 - m*m)
	q := sess.seeded[0]
	if q.Mass != m {
		t.Errorf("seeded mass %v, want %v", q.Mass, m)
	}
	if math.Abs(q.Pz-wantP) > 1e-12 {
		t.Errorf("seeded momentum %v, want %v", q.Pz, wantP)
	}
}

func TestRunTrialAppliesPredicate(t *testing.T) {
	sess := &stubSession{
		inited:     true,
		rapidities: func(int) []float64 { return []float64{-1.5, 0.5} },
	}
	runner := TrialRunner{QuarkID: 1, MasslessQuarks: true}

	ys, err := runner.RunTrial(sess, 20, PrimaryHadron)
	if err != nil {
		t.Fatalf("RunTrial: %v", err)
	}
	// The seeded partons (status 23) must not contribute.
	if len(ys) != 2 {
		t.Fatalf("got %d observables, want 2", len(ys))
	}
	if math.Abs(ys[0]+1.5) > 1e-9 || math.Abs(ys[1]-0.5) > 1e-9 {
		t.Errorf("observables %v, want [-1.5, 0.5]", ys)
	}
}

func TestPrimaryHadronPredicate(t *testing.T) {
	for status, want := range map[int]bool{80: false, 81: true, 83: true, 89: true, 90: false, 23: false, 91: false} {
		if got := PrimaryHadron(status); got != want {
			t.Errorf("PrimaryHadron(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestOrchestratorOrderPreserved(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig(
				NewSetting(5, "steelblue"),
				NewSetting(20, "seagreen"),
				NewSetting(100, "indianred"),
			)
			cfg.Parallel = parallel

			factory := func(int) generator.Session {
				return &stubSession{rapidities: func(int) []float64 { return []float64{0} }}
			}
			o := NewOrchestrator(cfg, factory, discardLogger())
			collector, stats, err := o.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			want := []string{"5.00", "20.00", "100.00"}
			series := collector.Series()
			if len(series) != len(want) {
				t.Fatalf("got %d series, want %d", len(series), len(want))
			}
			for i, w := range want {
				if series[i].Setting.Label != w {
					t.Errorf("series[%d].Label = %q, want %q", i, series[i].Setting.Label, w)
				}
				if stats[i].Label != w {
					t.Errorf("stats[%d].Label = %q, want %q", i, stats[i].Label, w)
				}
			}
		})
	}
}

func TestOrchestratorFailureIsolation(t *testing.T) {
	cfg := baseConfig(NewSetting(5, "steelblue"), NewSetting(20, "seagreen"))
	cfg.Trials = 5

	// Setting 0: trial 2 fails; each successful trial emits one observable.
	factory := func(index int) generator.Session {
		s := &stubSession{rapidities: func(int) []float64 { return []float64{0.5} }}
		if index == 0 {
			s.failTrials = map[int]bool{2: true}
		}
		return s
	}

	o := NewOrchestrator(cfg, factory, discardLogger())
	collector, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	series := collector.Series()
	if got := series[0].Hist.TotalCount(); got != 4 {
		t.Errorf("setting 0 filled %d observables, want 4", got)
	}
	if got := series[1].Hist.TotalCount(); got != 5 {
		t.Errorf("setting 1 filled %d observables, want 5", got)
	}
	if stats[0].Failures != 1 {
		t.Errorf("setting 0 failures = %d, want 1", stats[0].Failures)
	}
	if stats[0].Trials != 5 {
		t.Errorf("failed trial must still consume the budget: trials = %d, want 5", stats[0].Trials)
	}
}

func TestOrchestratorTracesEachFailedTrial(t *testing.T) {
	run := func(level string) string {
		var buf bytes.Buffer
		cfg := baseConfig(NewSetting(5, "steelblue"))
		cfg.Trials = 4

		factory := func(int) generator.Session {
			return &stubSession{failTrials: map[int]bool{1: true, 3: true}}
		}
		o := NewOrchestrator(cfg, factory, logging.NewLogger(level, &buf))
		if _, _, err := o.Run(context.Background()); err != nil {
			t.Fatalf("Run at level %q: %v", level, err)
		}
		return buf.String()
	}

	if out := run("trace"); strings.Count(out, "trial failed") != 2 {
		t.Errorf("trace level must report each failed trial individually:\n%s", out)
	}
	if out := run("debug"); strings.Contains(out, "trial failed") {
		t.Errorf("per-trial failure detail leaked below trace level:\n%s", out)
	}
}

func TestOrchestratorNonFiniteObservable(t *testing.T) {
	cfg := baseConfig(NewSetting(5, "steelblue"))
	cfg.Trials = 3

	// A degenerate entity with E <= |pz| yields a NaN rapidity; the sweep
	// must absorb it into the histogram bookkeeping, not crash.
	factory := func(int) generator.Session {
		return &stubSession{rapidities: func(trial int) []float64 {
			if trial == 1 {
				return []float64{math.NaN()}
			}
			return []float64{0.5}
		}}
	}

	o := NewOrchestrator(cfg, factory, discardLogger())
	collector, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	h := collector.Series()[0].Hist
	if got := h.TotalCount(); got != 3 {
		t.Errorf("TotalCount = %d, want 3", got)
	}
	if got := h.Underflow(); got != 1 {
		t.Errorf("underflow = %d, want 1 (the non-finite observable)", got)
	}
	if stats[0].Failures != 0 {
		t.Errorf("a bad observable is not a trial failure: failures = %d, want 0", stats[0].Failures)
	}
}

func TestOrchestratorAllTrialsFail(t *testing.T) {
	cfg := baseConfig(NewSetting(5, "steelblue"))
	cfg.Trials = 100

	fail := make(map[int]bool, 100)
	for i := 0; i < 100; i++ {
		fail[i] = true
	}
	var sess *stubSession
	factory := func(int) generator.Session {
		sess = &stubSession{failTrials: fail}
		return sess
	}

	o := NewOrchestrator(cfg, factory, discardLogger())
	collector, stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if collector.Len() != 1 {
		t.Fatalf("setting with all failures must still finalize; got %d series", collector.Len())
	}
	if got := collector.Series()[0].Hist.TotalCount(); got != 0 {
		t.Errorf("TotalCount = %d, want 0", got)
	}
	if stats[0].Failures != 100 {
		t.Errorf("failures = %d, want 100", stats[0].Failures)
	}
	if sess.advances != 100 {
		t.Errorf("advance attempts = %d, want exactly the trial budget", sess.advances)
	}
}

func TestOrchestratorInitFailureAborts(t *testing.T) {
	cfg := baseConfig(NewSetting(5, "steelblue"), NewSetting(20, "seagreen"))

	factory := func(index int) generator.Session {
		s := &stubSession{rapidities: func(int) []float64 { return []float64{0} }}
		if index == 1 {
			s.initErr = errors.New("bad engine configuration")
		}
		return s
	}

	o := NewOrchestrator(cfg, factory, discardLogger())
	collector, _, err := o.Run(context.Background())
	if !errors.Is(err, ErrInit) {
		t.Fatalf("Run = %v, want ErrInit", err)
	}
	if collector != nil {
		t.Error("no partial collection may be returned after an init failure")
	}
}

func TestOrchestratorDuplicateLabel(t *testing.T) {
	// 5.0 and 5.004 both format to the label "5.00".
	cfg := baseConfig(NewSetting(5.0, "steelblue"), NewSetting(5.004, "seagreen"))

	factory := func(int) generator.Session {
		return &stubSession{rapidities: func(int) []float64 { return []float64{0} }}
	}
	o := NewOrchestrator(cfg, factory, discardLogger())
	if _, _, err := o.Run(context.Background()); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("Run = %v, want ErrDuplicateLabel", err)
	}
}

func TestSeriesCollectorDuplicateLabel(t *testing.T) {
	c := NewSeriesCollector()
	h1, err := hist.New(-10, 10, 20)
	if err != nil {
		t.Fatalf("hist.New: %v", err)
	}
	h2, err := hist.New(-10, 10, 20)
	if err != nil {
		t.Fatalf("hist.New: %v", err)
	}

	if err := c.Add(NewSetting(5, "steelblue"), h1); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := c.Add(NewSetting(5, "seagreen"), h2); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("second Add = %v, want ErrDuplicateLabel", err)
	}
	if c.Len() != 1 {
		t.Errorf("collector retains %d series after rejected Add, want 1", c.Len())
	}
}

func TestOrchestratorParallelMatchesSequential(t *testing.T) {
	run := func(parallel bool) []Series {
		cfg := baseConfig(
			NewSetting(5, "steelblue"),
			NewSetting(20, "seagreen"),
			NewSetting(100, "indianred"),
		)
		cfg.Trials = 50
		cfg.Parallel = parallel

		factory := func(index int) generator.Session {
			return &stubSession{rapidities: func(trial int) []float64 {
				// Deterministic per (setting, trial) observable.
				return []float64{float64(index) - float64(trial%7)/2}
			}}
		}
		o := NewOrchestrator(cfg, factory, discardLogger())
		collector, _, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run(parallel=%v): %v", parallel, err)
		}
		return collector.Series()
	}

	seq, par := run(false), run(true)
	for i := range seq {
		if seq[i].Setting != par[i].Setting {
			t.Errorf("series %d settings differ between modes", i)
		}
		sc, pc := seq[i].Hist.Counts(), par[i].Hist.Counts()
		for b := range sc {
			if sc[b] != pc[b] {
				t.Errorf("series %d bin %d differs: sequential %d vs parallel %d", i, b, sc[b], pc[b])
			}
		}
	}
}

func TestOrchestratorRejectsBadBudget(t *testing.T) {
	cfg := baseConfig(NewSetting(5, "steelblue"))
	cfg.Trials = 0
	o := NewOrchestrator(cfg, func(int) generator.Session { return &stubSession{} }, discardLogger())
	if _, _, err := o.Run(context.Background()); err == nil {
		t.Error("Run with zero trial budget should fail")
	}
}

func TestOrchestratorBadGeometry(t *testing.T) {
	cfg := baseConfig(NewSetting(5, "steelblue"))
	cfg.HistLo, cfg.HistHi = 10, -10
	o := NewOrchestrator(cfg, func(int) generator.Session { return &stubSession{} }, discardLogger())
	if _, _, err := o.Run(context.Background()); !errors.Is(err, hist.ErrBadGeometry) {
		t.Errorf("Run = %v, want ErrBadGeometry", err)
	}
}
