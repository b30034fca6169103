package l1hits

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Layer identifies the calorimeter sub-detector a hit was recorded in.
// Numeric values follow the particle-flow layer numbering so that event
// files written by other reconstruction tools can be read directly.
type Layer int

const (
	LayerPS2         Layer = -12
	LayerPS1         Layer = -11
	LayerECALEndcap  Layer = -2
	LayerECALBarrel  Layer = -1
	LayerNone        Layer = 0
	LayerHCALBarrel1 Layer = 1
	LayerHCALBarrel2 Layer = 2
	LayerHCALEndcap  Layer = 3
	LayerHFEM        Layer = 11
	LayerHFHAD       Layer = 12
)

var layerNames = map[Layer]string{
	LayerPS2:         "PS2",
	LayerPS1:         "PS1",
	LayerECALEndcap:  "ECAL_ENDCAP",
	LayerECALBarrel:  "ECAL_BARREL",
	LayerNone:        "NONE",
	LayerHCALBarrel1: "HCAL_BARREL1",
	LayerHCALBarrel2: "HCAL_BARREL2",
	LayerHCALEndcap:  "HCAL_ENDCAP",
	LayerHFEM:        "HF_EM",
	LayerHFHAD:       "HF_HAD",
}

func (l Layer) String() string {
	if s, ok := layerNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Layer(%d)", int(l))
}

// Valid reports whether l is a known, non-NONE layer.
func (l Layer) Valid() bool {
	_, ok := layerNames[l]
	return ok && l != LayerNone
}

// ParseLayer converts a layer name (case-insensitive) to a Layer.
func ParseLayer(s string) (Layer, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for l, name := range layerNames {
		if name == u && l != LayerNone {
			return l, nil
		}
	}
	return LayerNone, fmt.Errorf("unknown layer %q", s)
}

// Region is the coarse detector region used to pick thresholds.
type Region int

const (
	RegionBarrel Region = iota
	RegionEndcap
)

func (r Region) String() string {
	if r == RegionBarrel {
		return "barrel"
	}
	return "endcap"
}

// Region maps a layer onto the barrel/endcap threshold set. Preshower and
// forward layers use the endcap thresholds.
func (l Layer) Region() Region {
	switch l {
	case LayerECALBarrel, LayerHCALBarrel1, LayerHCALBarrel2:
		return RegionBarrel
	default:
		return RegionEndcap
	}
}

// IsECAL reports whether l is an electromagnetic calorimeter layer.
func (l Layer) IsECAL() bool {
	return l == LayerECALBarrel || l == LayerECALEndcap
}

// Hit is a single calorimeter cell deposit.
type Hit struct {
	ID         uint64   // Detector cell identifier
	Position   r3.Vec   // Cell front-face centre (cm)
	Energy     float64  // GeV, >= 0
	Time       float64  // ns relative to the nominal bunch crossing
	Layer      Layer    // Sub-detector
	Neighbours []uint64 // Adjacent cell identifiers as supplied by geometry
}

// Region returns the threshold region of the hit.
func (h Hit) Region() Region { return h.Layer.Region() }

// Eta returns the pseudorapidity of a position seen from the origin.
func Eta(v r3.Vec) float64 {
	rho := math.Hypot(v.X, v.Y)
	if rho == 0 {
		switch {
		case v.Z > 0:
			return math.Inf(1)
		case v.Z < 0:
			return math.Inf(-1)
		}
		return 0
	}
	return math.Asinh(v.Z / rho)
}

// Phi returns the azimuthal angle of a position in radians.
func Phi(v r3.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}
