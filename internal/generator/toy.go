package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

const (
	// toyHadronMass is the effective transverse mass scale of produced
	// hadrons in GeV.
	toyHadronMass = 0.27

	// toyDensity is the expected number of hadrons per unit rapidity
	// along the plateau.
	toyDensity = 0.9

	// defaultPTSigma is the transverse-momentum smearing width in GeV,
	// used unless OptNoPTSmearing is set.
	defaultPTSigma = 0.35
)

// ErrNotSeeded reports an AdvanceEvent call without a seeded initial state.
var ErrNotSeeded = errors.New("event record not seeded")

// ToySession is a stand-in generator: it fragments a seeded two-parton
// string into hadrons whose rapidities populate a flat plateau between the
// kinematic limits. It is not a physics model; it exists so the sweep
// pipeline can run and be exercised deterministically under a fixed seed.
type ToySession struct {
	rng         *rand.Rand
	ptSigma     float64
	quiet       bool
	initialized bool
	seeded      []Entity
	record      []Entity
}

var _ Session = (*ToySession)(nil)

// NewToySession creates a toy session with its own deterministic random
// stream.
func NewToySession(seed int64) *ToySession {
	return &ToySession{
		rng:     rand.New(rand.NewSource(seed)),
		ptSigma: defaultPTSigma,
	}
}

// Configure applies the recognized option set. The toy never generates a
// hard process and never decays hadrons, so those options are accepted as
// no-ops.
func (s *ToySession) Configure(opts ...Option) {
	for _, o := range opts {
		switch o {
		case OptNoPTSmearing:
			s.ptSigma = 0
		case OptQuietLog:
			s.quiet = true
		}
	}
}

// Init marks the session ready. Calling Init twice is an error.
func (s *ToySession) Init() error {
	if s.initialized {
		return errors.New("toy session already initialized")
	}
	s.initialized = true
	return nil
}

// ResetEvent clears the seeded state and the event record.
func (s *ToySession) ResetEvent() {
	s.seeded = s.seeded[:0]
	s.record = s.record[:0]
}

// AppendEntity adds one seeded particle to the pending event.
func (s *ToySession) AppendEntity(id, status, col, antiCol int, px, py, pz, e, mass float64) {
	s.seeded = append(s.seeded, Entity{
		ID: id, Status: status, Col: col, AntiCol: antiCol,
		Px: px, Py: py, Pz: pz, E: e, Mass: mass,
	})
}

// AdvanceEvent fragments the seeded string into primary hadrons with
// status 83. It fails when the session is uninitialized, no initial state
// was seeded, or the string mass is below the two-hadron threshold.
func (s *ToySession) AdvanceEvent() error {
	if !s.initialized {
		return errors.New("toy session not initialized")
	}
	if len(s.seeded) < 2 {
		return ErrNotSeeded
	}

	var stringMass float64
	for _, e := range s.seeded {
		stringMass += e.E
	}
	if stringMass < 2*toyHadronMass {
		return fmt.Errorf("string mass %.3f GeV below fragmentation threshold", stringMass)
	}

	yMax := math.Log(stringMass / toyHadronMass)
	n := s.poisson(toyDensity * 2 * yMax)

	s.record = append(s.record, s.seeded...)
	for i := 0; i < n; i++ {
		var px, py float64
		if s.ptSigma > 0 {
			px = s.ptSigma * s.rng.NormFloat64()
			py = s.ptSigma * s.rng.NormFloat64()
		}
		mT := math.Sqrt(toyHadronMass*toyHadronMass + px*px + py*py)
		lim := math.Log(stringMass / mT)
		if lim <= 0 {
			continue
		}
		y := (2*s.rng.Float64() - 1) * lim
		s.record = append(s.record, Entity{
			ID:     211, // charged pion stand-in
			Status: 83,
			Px:     px,
			Py:     py,
			Pz:     mT * math.Sinh(y),
			E:      mT * math.Cosh(y),
			Mass:   toyHadronMass,
		})
	}
	return nil
}

// Entities returns the current event record.
func (s *ToySession) Entities() []Entity {
	return s.record
}

// poisson samples a Poisson variate by Knuth's method; mean stays small
// enough here that the product never underflows.
func (s *ToySession) poisson(mean float64) int {
	limit := math.Exp(-mean)
	n := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= limit {
			return n
		}
		n++
	}
}
