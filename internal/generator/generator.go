// Package generator defines the boundary to the stochastic event generator:
// a synchronous session that is configured, initialized once, and then
// driven one event at a time. Each event is seeded manually with an initial
// two-parton state before being advanced, after which the session exposes
// the entities of the current event record.
//
// The package also ships a toy longitudinal-fragmentation session so the
// pipeline runs end to end without an external engine; the sweep core only
// ever talks to the Session interface.
package generator

import "math"

// Option is one recognized generator configuration effect. The set is
// enumerated rather than free-form so the sweep's dependency on the engine
// stays narrow.
type Option int

const (
	// OptNoHardProcess disables hard-process generation; the initial
	// state is seeded manually before each event.
	OptNoHardProcess Option = iota
	// OptNoHadronDecay keeps primary hadrons stable.
	OptNoHadronDecay
	// OptNoPTSmearing disables transverse-momentum smearing, restricting
	// fragmentation to 1+1 dimensions.
	OptNoPTSmearing
	// OptQuietLog suppresses verbose per-event output from the engine.
	OptQuietLog
)

// String returns the option name.
func (o Option) String() string {
	switch o {
	case OptNoHardProcess:
		return "no-hard-process"
	case OptNoHadronDecay:
		return "no-hadron-decay"
	case OptNoPTSmearing:
		return "no-pt-smearing"
	case OptQuietLog:
		return "quiet-log"
	default:
		return "unknown"
	}
}

// Entity is one particle in the current event record.
type Entity struct {
	ID      int // particle species id (PDG numbering)
	Status  int // generator status code
	Col     int // color tag
	AntiCol int // anticolor tag
	Px, Py  float64
	Pz      float64
	E       float64
	Mass    float64
}

// Rapidity returns the longitudinal rapidity 0.5*ln((E+pz)/(E-pz)).
func (e Entity) Rapidity() float64 {
	return 0.5 * math.Log((e.E+e.Pz)/(e.E-e.Pz))
}

// Session is one live generator instance. A session is used strictly
// sequentially: Configure, Init once, then per event ResetEvent,
// AppendEntity for each seeded parton, AdvanceEvent, Entities.
type Session interface {
	// Configure applies the given option set. Must be called before Init.
	Configure(opts ...Option)

	// Init prepares the session for event generation. A failure is fatal
	// for the whole sweep.
	Init() error

	// ResetEvent clears the current event record.
	ResetEvent()

	// AppendEntity adds one seeded particle to the current event record.
	AppendEntity(id, status, col, antiCol int, px, py, pz, e, mass float64)

	// AdvanceEvent generates one event from the seeded state. A non-nil
	// error means the trial produced no usable event record.
	AdvanceEvent() error

	// Entities returns the entities of the current event record. The
	// returned slice is only valid until the next ResetEvent.
	Entities() []Entity
}

// Factory constructs one independent Session per parameter setting. The
// setting index makes seeding deterministic even when settings run in
// parallel.
type Factory func(settingIndex int) Session

// QuarkMass returns the rest mass in GeV for PDG quark ids 1-6, or 0 for
// anything else.
func QuarkMass(id int) float64 {
	if id < 0 {
		id = -id
	}
	switch id {
	case 1: // down
		return 0.0047
	case 2: // up
		return 0.0022
	case 3: // strange
		return 0.096
	case 4: // charm
		return 1.27
	case 5: // bottom
		return 4.18
	case 6: // top
		return 172.5
	default:
		return 0
	}
}
