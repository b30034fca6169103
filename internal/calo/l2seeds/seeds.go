package l2seeds

import (
	"math"
	"sort"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"go.trai.ch/zerr"
)

// Default seeding parameters (HCAL particle-flow defaults).
const (
	DefaultSeedThreshold  = 1.4
	DefaultCleanThreshold = 1e5
	DefaultMinS4S1        = 0.0
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = zerr.New("invalid seed finder parameters")

// Params configures the seed finder. All energies are in GeV.
type Params struct {
	SeedBarrel float64 // Seed threshold in the barrel
	SeedEndcap float64 // Seed threshold in the endcap

	// Seeds above the clean threshold whose neighbour energy sum, relative to
	// their own energy, is below MinS4S1 are treated as isolated noise.
	CleanBarrel   float64
	CleanEndcap   float64
	MinS4S1Barrel float64
	MinS4S1Endcap float64
}

// DefaultParams returns production defaults. Cleaning is effectively
// disabled by the very high clean thresholds.
func DefaultParams() Params {
	return Params{
		SeedBarrel:    DefaultSeedThreshold,
		SeedEndcap:    DefaultSeedThreshold,
		CleanBarrel:   DefaultCleanThreshold,
		CleanEndcap:   DefaultCleanThreshold,
		MinS4S1Barrel: DefaultMinS4S1,
		MinS4S1Endcap: DefaultMinS4S1,
	}
}

// Validate checks every threshold is finite and non-negative.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"thresh_Seed_Barrel", p.SeedBarrel},
		{"thresh_Seed_Endcap", p.SeedEndcap},
		{"thresh_Clean_Barrel", p.CleanBarrel},
		{"thresh_Clean_Endcap", p.CleanEndcap},
		{"minS4S1_Barrel", p.MinS4S1Barrel},
		{"minS4S1_Endcap", p.MinS4S1Endcap},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return zerr.With(ErrInvalidParams, "parameter", f.name)
		}
	}
	return nil
}

// SeedThreshold returns the seed energy threshold for a region.
func (p Params) SeedThreshold(r l1hits.Region) float64 {
	if r == l1hits.RegionBarrel {
		return p.SeedBarrel
	}
	return p.SeedEndcap
}

func (p Params) cleanCuts(r l1hits.Region) (thresh, minS4S1 float64) {
	if r == l1hits.RegionBarrel {
		return p.CleanBarrel, p.MinS4S1Barrel
	}
	return p.CleanEndcap, p.MinS4S1Endcap
}

// Seed is a hit selected as a local energy maximum.
type Seed struct {
	Hit    int     // Dense index into the Store
	ID     uint64  // Cell id of the seed hit
	Index  int     // Cluster index, assigned in decreasing-energy order
	Energy float64 // Seed hit energy
}

// Result holds the seeds of one event and the hits removed as noise.
type Result struct {
	Seeds   []Seed
	Cleaned []int // Dense indices of cleaned hits, ascending
}

// IsCleaned reports whether hit i was removed by seed cleaning.
func (r Result) IsCleaned(i int) bool {
	k := sort.SearchInts(r.Cleaned, i)
	return k < len(r.Cleaned) && r.Cleaned[k] == i
}

// Finder selects cluster seeds.
type Finder struct {
	params Params
}

// NewFinder validates params and returns a Finder.
func NewFinder(p Params) (*Finder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Finder{params: p}, nil
}

// Params returns the finder configuration.
func (f *Finder) Params() Params { return f.params }

// beats reports whether hit a wins the local-maximum comparison against b.
// Equal energies are resolved in favour of the lower cell id.
func beats(a, b l1hits.Hit) bool {
	if a.Energy != b.Energy {
		return a.Energy > b.Energy
	}
	return a.ID < b.ID
}

// Find returns the seeds of the event ordered by decreasing energy, ties
// broken by ascending cell id. The store is not modified.
func (f *Finder) Find(s *l1hits.Store) Result {
	var res Result
	n := s.Len()
	if n == 0 {
		return res
	}

	for i := 0; i < n; i++ {
		h := s.Hit(i)
		region := h.Region()
		if h.Energy < f.params.SeedThreshold(region) {
			continue
		}

		if cleanThresh, minS4S1 := f.params.cleanCuts(region); h.Energy > cleanThresh {
			var surrounding float64
			for _, j := range s.Neighbours(i) {
				surrounding += s.Energy(j)
			}
			if surrounding/h.Energy < minS4S1 {
				monitoring.Logf("l2seeds: cleaned isolated seed id=%d E=%.3f layer=%v surrounding fraction=%.4f (cuts %.3g, %.3g)",
					h.ID, h.Energy, h.Layer, surrounding/h.Energy, cleanThresh, minS4S1)
				res.Cleaned = append(res.Cleaned, i)
				continue
			}
		}

		isMax := true
		for _, j := range s.Neighbours(i) {
			if !beats(h, s.Hit(j)) {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}
		res.Seeds = append(res.Seeds, Seed{Hit: i, ID: h.ID, Energy: h.Energy})
	}

	sort.Slice(res.Seeds, func(a, b int) bool {
		sa, sb := res.Seeds[a], res.Seeds[b]
		if sa.Energy != sb.Energy {
			return sa.Energy > sb.Energy
		}
		return sa.ID < sb.ID
	})
	for k := range res.Seeds {
		res.Seeds[k].Index = k
	}

	monitoring.Debugf("l2seeds: %d hits, %d seeds, %d cleaned", n, len(res.Seeds), len(res.Cleaned))
	return res
}
