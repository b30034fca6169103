package l4fit

import (
	"math"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/l3topo"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"go.trai.ch/zerr"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultShowerSigma     = 10.0
	DefaultPosCalcNCrystal = 5
	DefaultPosCalcP1       = 1.0

	// MaxIterations caps the expectation-maximisation loop.
	MaxIterations = 50

	// baseTolerance is the convergence threshold for two seeds; it grows
	// with the square of the number of extra seeds.
	baseTolerance = 1e-8
)

// ErrInvalidParams is returned when fitter parameters fail validation.
var ErrInvalidParams = zerr.New("invalid cluster fit parameters")

// Params configures the fitter.
type Params struct {
	ShowerSigma     float64 // Gaussian shower width (cm)
	PosCalcNCrystal int     // Hits used for the position; -1 uses all
	PosCalcP1       float64 // Log-weight offset
}

// DefaultParams returns the HCAL defaults.
func DefaultParams() Params {
	return Params{
		ShowerSigma:     DefaultShowerSigma,
		PosCalcNCrystal: DefaultPosCalcNCrystal,
		PosCalcP1:       DefaultPosCalcP1,
	}
}

// Validate checks the parameters. Errors carry the offending key as
// "parameter" metadata.
func (p Params) Validate() error {
	if !(p.ShowerSigma > 0) || math.IsInf(p.ShowerSigma, 0) {
		return zerr.With(ErrInvalidParams, "parameter", "showerSigma")
	}
	if p.PosCalcNCrystal == 0 || p.PosCalcNCrystal < -1 {
		return zerr.With(ErrInvalidParams, "parameter", "posCalcNCrystal")
	}
	if math.IsNaN(p.PosCalcP1) || math.IsInf(p.PosCalcP1, 0) || p.PosCalcP1 < 0 {
		return zerr.With(ErrInvalidParams, "parameter", "posCalcP1")
	}
	return nil
}

// Fitter shares topo-cluster energy among seeds. A Fitter holds no mutable
// state and may be used from several goroutines.
type Fitter struct {
	params Params
}

// NewFitter validates p and returns a Fitter.
func NewFitter(p Params) (*Fitter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Fitter{params: p}, nil
}

// Params returns the fitter configuration.
func (f *Fitter) Params() Params { return f.params }

// Tolerance returns the convergence threshold for a topo-cluster with
// nSeeds seeds.
func Tolerance(nSeeds int) float64 {
	n := float64(max(1, nSeeds-1))
	return baseTolerance * n * n
}

// Fit returns one PFCluster per seed of tc, in seed order.
func (f *Fitter) Fit(s *l1hits.Store, tc l3topo.TopoCluster) []PFCluster {
	if len(tc.Seeds) == 0 {
		return nil
	}
	st := f.newState(s, tc)

	if len(tc.Seeds) == 1 {
		for k := range tc.Hits {
			st.frac[0][k] = 1
		}
		f.mStep(st, -1)
		return st.clusters(0, true)
	}

	tol := Tolerance(len(tc.Seeds))
	shift := math.Inf(1)
	iter := 0
	for iter < MaxIterations && !(shift < tol) {
		iter++
		f.eStep(st)
		shift = f.mStep(st, f.params.PosCalcNCrystal)
	}
	converged := shift < tol
	if !converged {
		monitoring.Logf("l4fit: seed %d: no convergence after %d iterations (shift %.3g, tolerance %.3g)",
			tc.Seeds[0].ID, iter, shift, tol)
	} else {
		monitoring.Debugf("l4fit: %d seeds converged after %d iterations", len(tc.Seeds), iter)
	}
	return st.clusters(iter, converged)
}

// Refit runs one more expectation-maximisation pass starting from the
// positions in prev, which must come from Fit on the same topo-cluster. It
// returns the updated clusters and the largest position shift.
func (f *Fitter) Refit(s *l1hits.Store, tc l3topo.TopoCluster, prev []PFCluster) ([]PFCluster, float64) {
	if len(tc.Seeds) == 0 || len(prev) != len(tc.Seeds) {
		return nil, 0
	}
	st := f.newState(s, tc)
	for c := range prev {
		st.pos[c] = prev[c].Position
		st.energy[c] = prev[c].Energy
	}
	if len(tc.Seeds) == 1 {
		for k := range tc.Hits {
			st.frac[0][k] = 1
		}
		shift := f.mStep(st, -1)
		return st.clusters(0, true), shift
	}
	f.eStep(st)
	shift := f.mStep(st, f.params.PosCalcNCrystal)
	iters := prev[0].Iterations + 1
	return st.clusters(iters, shift < Tolerance(len(tc.Seeds))), shift
}

// fitState is the working data of one topo-cluster fit.
type fitState struct {
	store   *l1hits.Store
	tc      l3topo.TopoCluster
	seedOf  map[int]int // hit index -> cluster index, seeds only
	pos     []r3.Vec
	energy  []float64
	layer   []l1hits.Layer
	frac    [][]float64 // [cluster][member]
	weights []float64   // scratch, one per cluster
}

func (f *Fitter) newState(s *l1hits.Store, tc l3topo.TopoCluster) *fitState {
	n := len(tc.Seeds)
	st := &fitState{
		store:   s,
		tc:      tc,
		seedOf:  make(map[int]int, n),
		pos:     make([]r3.Vec, n),
		energy:  make([]float64, n),
		layer:   make([]l1hits.Layer, n),
		frac:    make([][]float64, n),
		weights: make([]float64, n),
	}
	for c, sd := range tc.Seeds {
		st.seedOf[sd.Hit] = c
		h := s.Hit(sd.Hit)
		st.pos[c] = h.Position
		st.energy[c] = h.Energy
		st.layer[c] = h.Layer
		st.frac[c] = make([]float64, len(tc.Hits))
	}
	return st
}

// eStep recomputes the fractions from the current cluster positions.
func (f *Fitter) eStep(st *fitState) {
	twoSigma2 := 2 * f.params.ShowerSigma * f.params.ShowerSigma
	for k, hi := range st.tc.Hits {
		if own, ok := st.seedOf[hi]; ok {
			for c := range st.frac {
				st.frac[c][k] = 0
			}
			st.frac[own][k] = 1
			continue
		}

		h := st.store.Hit(hi)
		sum := 0.0
		nearest, dmin := 0, math.Inf(1)
		for c := range st.pos {
			d := r3.Norm(r3.Sub(h.Position, st.pos[c]))
			if d < dmin {
				nearest, dmin = c, d
			}
			w := h.Energy * math.Exp(-d*d/twoSigma2)
			st.weights[c] = w
			sum += w
		}
		for c := range st.frac {
			switch {
			case sum > 0:
				st.frac[c][k] = st.weights[c] / sum
			case c == nearest:
				st.frac[c][k] = 1
			default:
				st.frac[c][k] = 0
			}
		}
	}
}

// mStep recomputes energy and position of every cluster and returns the
// largest position shift.
func (f *Fitter) mStep(st *fitState, nCrystal int) float64 {
	shift := 0.0
	for c := range st.pos {
		pos, e, layer := clusterMoments(st.store, st.tc.Hits, st.frac[c], f.params.PosCalcP1, nCrystal, st.pos[c])
		shift = math.Max(shift, r3.Norm(r3.Sub(pos, st.pos[c])))
		st.pos[c], st.energy[c] = pos, e
		if layer != l1hits.LayerNone {
			st.layer[c] = layer
		}
	}
	return shift
}

func (st *fitState) clusters(iterations int, converged bool) []PFCluster {
	out := make([]PFCluster, len(st.tc.Seeds))
	for c, sd := range st.tc.Seeds {
		fr := make([]HitFraction, 0, len(st.tc.Hits))
		for k, hi := range st.tc.Hits {
			if v := st.frac[c][k]; v > 0 {
				fr = append(fr, HitFraction{Hit: hi, ID: st.store.Hit(hi).ID, Fraction: v})
			}
		}
		out[c] = PFCluster{
			SeedIndex:         sd.Index,
			SeedID:            sd.ID,
			SeedHit:           sd.Hit,
			Fractions:         fr,
			Position:          st.pos[c],
			CorrectedPosition: st.pos[c],
			Energy:            st.energy[c],
			Layer:             st.layer[c],
			Iterations:        iterations,
			Converged:         converged,
		}
	}
	return out
}
