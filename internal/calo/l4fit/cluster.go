package l4fit

import (
	"sort"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"gonum.org/v1/gonum/spatial/r3"
)

// HitFraction is the share of one hit's energy assigned to a cluster.
type HitFraction struct {
	Hit      int     // Dense index into the Store
	ID       uint64  // Cell id
	Fraction float64 // In (0, 1]
}

// PFCluster is a particle-flow cluster built around one seed.
type PFCluster struct {
	SeedIndex int    // Cluster index of the seed
	SeedID    uint64 // Cell id of the seed hit
	SeedHit   int    // Dense index of the seed hit

	// Fractions lists every hit with a non-zero share, ascending cell id.
	Fractions []HitFraction

	Position          r3.Vec       // Log-weighted centroid, before depth correction
	CorrectedPosition r3.Vec       // Position after depth correction
	Energy            float64      // Sum of fractional hit energies (GeV)
	Layer             l1hits.Layer // Layer holding most of the cluster energy
	Iterations        int          // EM iterations run (0 for single-seed topo-clusters)
	Converged         bool
}

// Fraction returns the share of hit id assigned to the cluster, or 0.
func (c *PFCluster) Fraction(id uint64) float64 {
	k := sort.Search(len(c.Fractions), func(i int) bool { return c.Fractions[i].ID >= id })
	if k < len(c.Fractions) && c.Fractions[k].ID == id {
		return c.Fractions[k].Fraction
	}
	return 0
}

// Eta returns the pseudorapidity of the uncorrected position.
func (c *PFCluster) Eta() float64 { return l1hits.Eta(c.Position) }

// Phi returns the azimuth of the uncorrected position.
func (c *PFCluster) Phi() float64 { return l1hits.Phi(c.Position) }
