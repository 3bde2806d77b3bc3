package sweep

import (
	"fmt"
	"math"

	"github.com/hepsim/stringsweep/internal/generator"
)

// Predicate selects which entities of an event record contribute an
// observable, by status code.
type Predicate func(status int) bool

// PrimaryHadron matches the status range used by the generator for primary
// hadrons produced directly by string fragmentation.
func PrimaryHadron(status int) bool {
	return status > 80 && status < 90
}

// TrialRunner executes single trials against a live generator session: it
// seeds the two-parton initial state, advances the event, and extracts the
// rapidities of entities matching a predicate.
type TrialRunner struct {
	// QuarkID is the PDG id of the seeded quark (1-6).
	QuarkID int
	// MasslessQuarks forces the seeded quark mass to zero instead of the
	// species rest mass.
	MasslessQuarks bool
}

// RunTrial runs exactly one trial for the given string mass. On success it
// returns the rapidities of all matching entities, possibly none. A non-nil
// error marks a failed trial: the event record is discarded and contributes
// no observables.
func (r TrialRunner) RunTrial(sess generator.Session, stringMass float64, pred Predicate) ([]float64, error) {
	sess.ResetEvent()

	m := 0.0
	if !r.MasslessQuarks {
		m = generator.QuarkMass(r.QuarkID)
	}
	e := stringMass / 2
	p := math.Sqrt(math.Max(0, e*e-m*m))

	// Back-to-back q and qbar along the z axis, sharing one color line.
	sess.AppendEntity(r.QuarkID, 23, 101, 0, 0, 0, p, e, m)
	sess.AppendEntity(-r.QuarkID, 23, 0, 101, 0, 0, -p, e, m)

	if err := sess.AdvanceEvent(); err != nil {
		return nil, fmt.Errorf("advance event: %w", err)
	}

	var ys []float64
	for _, ent := range sess.Entities() {
		if pred(ent.Status) {
			ys = append(ys, ent.Rapidity())
		}
	}
	return ys, nil
}
