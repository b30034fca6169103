package display

import (
	"math"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/pipeline"
)

// Point is one hit of the display.
type Point struct {
	Eta, Phi float64
	Energy   float64
	ID       uint64
	Topo     int  // Topo-cluster index, -1 when not clustered
	Seed     bool // Hit seeded a cluster
}

// Marker is one cluster of the display, at its corrected position.
type Marker struct {
	Eta, Phi float64
	Energy   float64
	Seed     uint64
}

// Scene is everything drawn for one event.
type Scene struct {
	Title    string
	Hits     []Point
	Clusters []Marker
	Topos    int
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NewScene projects the store and its clustering result. Hits and clusters
// on the beam axis have no finite pseudorapidity and are left out.
func NewScene(title string, s *l1hits.Store, res pipeline.Result) Scene {
	topoOf := make([]int, s.Len())
	for i := range topoOf {
		topoOf[i] = -1
	}
	for t, tc := range res.TopoClusters {
		for _, hi := range tc.Hits {
			topoOf[hi] = t
		}
	}
	seeded := make(map[int]bool, len(res.Seeds.Seeds))
	for _, sd := range res.Seeds.Seeds {
		seeded[sd.Hit] = true
	}

	sc := Scene{Title: title, Topos: len(res.TopoClusters)}
	for i := 0; i < s.Len(); i++ {
		h := s.Hit(i)
		eta, phi := l1hits.Eta(h.Position), l1hits.Phi(h.Position)
		if !finite(eta, phi) {
			continue
		}
		sc.Hits = append(sc.Hits, Point{Eta: eta, Phi: phi, Energy: h.Energy, ID: h.ID, Topo: topoOf[i], Seed: seeded[i]})
	}
	for i := range res.Clusters {
		c := &res.Clusters[i]
		eta, phi := l1hits.Eta(c.CorrectedPosition), l1hits.Phi(c.CorrectedPosition)
		if !finite(eta, phi) {
			continue
		}
		sc.Clusters = append(sc.Clusters, Marker{Eta: eta, Phi: phi, Energy: c.Energy, Seed: c.SeedID})
	}
	return sc
}

// bounds returns the eta and phi ranges covering every point, padded.
func (sc Scene) bounds() (etaMin, etaMax, phiMin, phiMax float64) {
	etaMin, phiMin = math.Inf(1), math.Inf(1)
	etaMax, phiMax = math.Inf(-1), math.Inf(-1)
	grow := func(eta, phi float64) {
		etaMin, etaMax = math.Min(etaMin, eta), math.Max(etaMax, eta)
		phiMin, phiMax = math.Min(phiMin, phi), math.Max(phiMax, phi)
	}
	for _, p := range sc.Hits {
		grow(p.Eta, p.Phi)
	}
	for _, m := range sc.Clusters {
		grow(m.Eta, m.Phi)
	}
	if etaMin > etaMax {
		return -1, 1, -math.Pi, math.Pi
	}
	padEta := math.Max(0.05*(etaMax-etaMin), 0.01)
	padPhi := math.Max(0.05*(phiMax-phiMin), 0.01)
	return etaMin - padEta, etaMax + padEta, phiMin - padPhi, phiMax + padPhi
}
