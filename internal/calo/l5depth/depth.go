package l5depth

import (
	"fmt"
	"math"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/l4fit"
	"go.trai.ch/zerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects the depth correction formula.
type Mode int

const (
	ModeNone         Mode = 0 // no correction
	ModeProportional Mode = 1 // A * (B + ln E)
	ModeFixed        Mode = 2 // A
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeProportional:
		return "proportional"
	case ModeFixed:
		return "fixed"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Pseudorapidity window covered by the preshower.
const (
	PreshowerEtaMin = 1.65
	PreshowerEtaMax = 2.6
)

const (
	DefaultA          = 0.89
	DefaultB          = 7.4
	DefaultAPreshower = 0.89
	DefaultBPreshower = 4.0
)

// ErrInvalidParams is returned when correction parameters fail validation.
var ErrInvalidParams = zerr.New("invalid depth correction parameters")

// Corrector applies the depth correction. The zero value applies none.
type Corrector struct {
	Mode       Mode
	A, B       float64
	APreshower float64
	BPreshower float64
}

// DefaultCorrector returns the HCAL defaults, which disable the correction.
func DefaultCorrector() Corrector {
	return Corrector{
		Mode:       ModeNone,
		A:          DefaultA,
		B:          DefaultB,
		APreshower: DefaultAPreshower,
		BPreshower: DefaultBPreshower,
	}
}

// Validate checks the mode and coefficients.
func (c Corrector) Validate() error {
	if c.Mode < ModeNone || c.Mode > ModeFixed {
		return zerr.With(ErrInvalidParams, "parameter", "depthCor_Mode")
	}
	for _, v := range []struct {
		name string
		v    float64
	}{
		{"depthCor_A", c.A},
		{"depthCor_B", c.B},
		{"depthCor_A_preshower", c.APreshower},
		{"depthCor_B_preshower", c.BPreshower},
	} {
		if math.IsNaN(v.v) || math.IsInf(v.v, 0) {
			return zerr.With(ErrInvalidParams, "parameter", v.name)
		}
	}
	return nil
}

// UnderPreshower reports whether pseudorapidity eta lies in the preshower
// window.
func UnderPreshower(eta float64) bool {
	a := math.Abs(eta)
	return a > PreshowerEtaMin && a < PreshowerEtaMax
}

// Offset returns the correction distance for a cluster of the given energy.
// Non-positive energies drop the log term.
func (c Corrector) Offset(energy float64, preshower bool) float64 {
	a, b := c.A, c.B
	if preshower {
		a, b = c.APreshower, c.BPreshower
	}
	switch c.Mode {
	case ModeProportional:
		if energy <= 0 {
			return a * b
		}
		return a * (b + math.Log(energy))
	case ModeFixed:
		return a
	}
	return 0
}

// Correct returns pos moved by the correction for a cluster of the given
// energy. The origin is returned unchanged.
func (c Corrector) Correct(pos r3.Vec, energy float64) r3.Vec {
	if c.Mode == ModeNone || pos == (r3.Vec{}) {
		return pos
	}
	d := c.Offset(energy, UnderPreshower(l1hits.Eta(pos)))
	return r3.Add(pos, r3.Scale(d, r3.Unit(pos)))
}

// Apply sets cl.CorrectedPosition from cl.Position. Only ECAL clusters are
// corrected; the others keep their position.
func (c Corrector) Apply(cl *l4fit.PFCluster) {
	if !cl.Layer.IsECAL() {
		cl.CorrectedPosition = cl.Position
		return
	}
	cl.CorrectedPosition = c.Correct(cl.Position, cl.Energy)
}
