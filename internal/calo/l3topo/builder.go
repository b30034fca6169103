package l3topo

import (
	"math"
	"sort"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/l2seeds"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"go.trai.ch/zerr"
)

// Default topological clustering parameters (HCAL particle-flow defaults).
const (
	DefaultCellThreshold = 0.8
	DefaultMaxHops       = 4
	// MaxHopsLimit bounds the expansion depth accepted by Validate.
	MaxHopsLimit = 64
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = zerr.New("invalid topo-cluster parameters")

// Params configures topo-cluster expansion.
type Params struct {
	CellBarrel float64 // Cell admission threshold in the barrel (GeV)
	CellEndcap float64 // Cell admission threshold in the endcap (GeV)
	MaxHops    int     // Maximum neighbour hops from a seed
}

// DefaultParams returns production defaults.
func DefaultParams() Params {
	return Params{
		CellBarrel: DefaultCellThreshold,
		CellEndcap: DefaultCellThreshold,
		MaxHops:    DefaultMaxHops,
	}
}

// Validate checks thresholds and hop depth.
func (p Params) Validate() error {
	if p.CellBarrel < 0 || math.IsNaN(p.CellBarrel) || math.IsInf(p.CellBarrel, 0) {
		return zerr.With(ErrInvalidParams, "parameter", "thresh_Barrel")
	}
	if p.CellEndcap < 0 || math.IsNaN(p.CellEndcap) || math.IsInf(p.CellEndcap, 0) {
		return zerr.With(ErrInvalidParams, "parameter", "thresh_Endcap")
	}
	if p.MaxHops < 0 || p.MaxHops > MaxHopsLimit {
		return zerr.With(ErrInvalidParams, "parameter", "nNeighbours")
	}
	return nil
}

// CellThreshold returns the admission threshold for a region.
func (p Params) CellThreshold(r l1hits.Region) float64 {
	if r == l1hits.RegionBarrel {
		return p.CellBarrel
	}
	return p.CellEndcap
}

// TopoCluster is a connected group of admitted hits holding at least one seed.
type TopoCluster struct {
	Hits  []int          // Dense hit indices, ascending
	Seeds []l2seeds.Seed // Contained seeds, ascending cluster index
}

// Energy returns the summed energy of the member hits.
func (tc TopoCluster) Energy(s *l1hits.Store) float64 {
	return s.TotalEnergy(tc.Hits)
}

// Builder groups admitted hits into topo-clusters.
type Builder struct {
	params Params
}

// NewBuilder validates params and returns a Builder.
func NewBuilder(p Params) (*Builder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Builder{params: p}, nil
}

// Params returns the builder configuration.
func (b *Builder) Params() Params { return b.params }

// Admitted reports whether hit i passes its region cell threshold and was
// not removed by seed cleaning.
func (b *Builder) Admitted(s *l1hits.Store, seeds l2seeds.Result, i int) bool {
	if seeds.IsCleaned(i) {
		return false
	}
	h := s.Hit(i)
	return h.Energy >= b.params.CellThreshold(h.Region())
}

// Build expands every seed breadth-first through admitted neighbours up to
// MaxHops, unions everything a seed reaches with the seed, and returns the
// resulting components ordered by their lowest seed index. The partition is
// independent of the order in which seeds are expanded.
func (b *Builder) Build(s *l1hits.Store, seeds l2seeds.Result) []TopoCluster {
	n := s.Len()
	if n == 0 || len(seeds.Seeds) == 0 {
		return nil
	}

	admitted := make([]bool, n)
	for i := 0; i < n; i++ {
		admitted[i] = b.Admitted(s, seeds, i)
	}

	dsu := NewDisjointSet(n)
	reached := make([]bool, n)
	stamp := make([]int, n) // Seed marker of the last expansion that visited a hit
	depth := make([]int, n)
	queue := make([]int, 0, 64)

	for k, seed := range seeds.Seeds {
		if !admitted[seed.Hit] {
			monitoring.Debugf("l3topo: seed id=%d below cell threshold, skipped", seed.ID)
			continue
		}
		mark := k + 1
		stamp[seed.Hit] = mark
		depth[seed.Hit] = 0
		reached[seed.Hit] = true
		queue = append(queue[:0], seed.Hit)

		for head := 0; head < len(queue); head++ {
			cur := queue[head]
			if depth[cur] >= b.params.MaxHops {
				continue
			}
			for _, nb := range s.Neighbours(cur) {
				if stamp[nb] == mark || !admitted[nb] {
					continue
				}
				stamp[nb] = mark
				depth[nb] = depth[cur] + 1
				reached[nb] = true
				dsu.Union(seed.Hit, nb)
				queue = append(queue, nb)
			}
		}
	}

	byRoot := make(map[int]*TopoCluster)
	var roots []int
	for i := 0; i < n; i++ {
		if !reached[i] {
			continue
		}
		r := dsu.Find(i)
		tc, ok := byRoot[r]
		if !ok {
			tc = &TopoCluster{}
			byRoot[r] = tc
			roots = append(roots, r)
		}
		tc.Hits = append(tc.Hits, i)
	}
	for _, seed := range seeds.Seeds {
		if !reached[seed.Hit] {
			continue
		}
		tc := byRoot[dsu.Find(seed.Hit)]
		tc.Seeds = append(tc.Seeds, seed)
	}

	out := make([]TopoCluster, 0, len(roots))
	for _, r := range roots {
		tc := byRoot[r]
		if len(tc.Seeds) == 0 {
			continue
		}
		out = append(out, *tc)
	}
	sort.Slice(out, func(a, c int) bool {
		return out[a].Seeds[0].Index < out[c].Seeds[0].Index
	})

	monitoring.Debugf("l3topo: %d seeds -> %d topo-clusters", len(seeds.Seeds), len(out))
	return out
}
