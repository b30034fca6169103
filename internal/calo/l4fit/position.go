package l4fit

import (
	"math"
	"sort"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// minNormalization is the smallest total position weight treated as non-zero.
const minNormalization = 1e-9

// logWeight is the position weight of a hit carrying energy e in a cluster
// of energy total: max(0, p1 + ln(e/total)).
func logWeight(e, total, p1 float64) float64 {
	if e <= 0 || total <= 0 {
		return 0
	}
	return math.Max(0, p1+math.Log(e/total))
}

// clusterMoments computes energy, dominant layer and log-weighted position
// for one cluster from its fractions over the topo-cluster hits. nCrystal
// limits the centroid to the highest-weight hits; nCrystal <= 0 uses all.
// When no hit carries positive weight the position falls back to the hit
// holding the largest fractional energy, and to prev if there is none.
func clusterMoments(s *l1hits.Store, hits []int, frac []float64, p1 float64, nCrystal int, prev r3.Vec) (pos r3.Vec, energy float64, layer l1hits.Layer) {
	shares := make([]float64, len(hits))
	for k, hi := range hits {
		shares[k] = frac[k] * s.Energy(hi)
	}
	energy = floats.Sum(shares)

	layerEnergy := make(map[l1hits.Layer]float64)
	best, bestShare := -1, 0.0
	for k, hi := range hits {
		if frac[k] <= 0 {
			continue
		}
		layerEnergy[s.Hit(hi).Layer] += shares[k]
		if best < 0 || shares[k] > bestShare {
			best, bestShare = k, shares[k]
		}
	}
	layer = dominantLayer(layerEnergy)

	type weighted struct {
		k int
		w float64
	}
	cands := make([]weighted, 0, len(hits))
	for k := range hits {
		if w := logWeight(shares[k], energy, p1); w > 0 {
			cands = append(cands, weighted{k, w})
		}
	}
	if nCrystal > 0 && len(cands) > nCrystal {
		// Hits are in id order, so the stable sort breaks weight ties by id.
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].w > cands[b].w })
		cands = cands[:nCrystal]
	}

	ws := make([]float64, len(cands))
	xs := make([]float64, len(cands))
	ys := make([]float64, len(cands))
	zs := make([]float64, len(cands))
	for i, c := range cands {
		p := s.Hit(hits[c.k]).Position
		ws[i] = c.w
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}

	switch {
	case floats.Sum(ws) >= minNormalization:
		pos = r3.Vec{X: stat.Mean(xs, ws), Y: stat.Mean(ys, ws), Z: stat.Mean(zs, ws)}
	case best >= 0:
		pos = s.Hit(hits[best]).Position
	default:
		pos = prev
	}
	return pos, energy, layer
}

// dominantLayer returns the layer with the most energy, lowest layer value
// on ties.
func dominantLayer(byLayer map[l1hits.Layer]float64) l1hits.Layer {
	layer := l1hits.LayerNone
	emax := -1.0
	for l, e := range byLayer {
		if e > emax || (e == emax && l < layer) {
			layer, emax = l, e
		}
	}
	return layer
}
