package eventio

import (
	"fmt"
	"math"

	"github.com/banshee-data/pfcluster/internal/calo/l4fit"
	"github.com/banshee-data/pfcluster/internal/calo/pipeline"
	"github.com/banshee-data/pfcluster/internal/overclean"
)

// FractionRecord is one hit share of a cluster.
type FractionRecord struct {
	ID       uint64  `json:"id"`
	Fraction float64 `json:"fraction"`
}

// ClusterRecord is one particle-flow cluster on the wire.
type ClusterRecord struct {
	Index      int              `json:"index"`
	Seed       uint64           `json:"seed"`
	Energy     float64          `json:"energy"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"`
	Z          float64          `json:"z"`
	CorrX      float64          `json:"corr_x"`
	CorrY      float64          `json:"corr_y"`
	CorrZ      float64          `json:"corr_z"`
	Eta        *float64         `json:"eta,omitempty"`
	Phi        *float64         `json:"phi,omitempty"`
	Layer      string           `json:"layer"`
	Iterations int              `json:"iterations"`
	Converged  bool             `json:"converged"`
	Fractions  []FractionRecord `json:"fractions"`
}

// ClusterResult is the output line of one clustered event.
type ClusterResult struct {
	RunID        string          `json:"run_id,omitempty"`
	Event        uint64          `json:"event"`
	Clusters     []ClusterRecord `json:"clusters"`
	TopoClusters int             `json:"topo_clusters"`
	NonConverged int             `json:"non_converged"`
	Fingerprint  string          `json:"fingerprint"`
}

// NewClusterRecord converts a cluster.
func NewClusterRecord(c *l4fit.PFCluster) ClusterRecord {
	rec := ClusterRecord{
		Index:      c.SeedIndex,
		Seed:       c.SeedID,
		Energy:     c.Energy,
		X:          c.Position.X,
		Y:          c.Position.Y,
		Z:          c.Position.Z,
		CorrX:      c.CorrectedPosition.X,
		CorrY:      c.CorrectedPosition.Y,
		CorrZ:      c.CorrectedPosition.Z,
		Eta:        finite(c.Eta()),
		Phi:        finite(c.Phi()),
		Layer:      c.Layer.String(),
		Iterations: c.Iterations,
		Converged:  c.Converged,
		Fractions:  make([]FractionRecord, len(c.Fractions)),
	}
	for i, f := range c.Fractions {
		rec.Fractions[i] = FractionRecord{ID: f.ID, Fraction: f.Fraction}
	}
	return rec
}

// finite returns nil for values JSON cannot carry, such as the
// pseudorapidity of a position on the beam axis.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NewClusterResult converts the clustering result of one event.
func NewClusterResult(runID string, event uint64, res pipeline.Result) ClusterResult {
	out := ClusterResult{
		RunID:        runID,
		Event:        event,
		Clusters:     make([]ClusterRecord, len(res.Clusters)),
		TopoClusters: len(res.TopoClusters),
		NonConverged: res.NonConverged,
		Fingerprint:  fmt.Sprintf("%016x", res.Fingerprint()),
	}
	for i := range res.Clusters {
		out.Clusters[i] = NewClusterRecord(&res.Clusters[i])
	}
	return out
}

// FilterResult is the output line of one filtered event.
type FilterResult struct {
	RunID   string                `json:"run_id,omitempty"`
	Event   uint64                `json:"event"`
	Flag    bool                  `json:"flag"`
	Missing bool                  `json:"missing,omitempty"`
	Trigger *overclean.RemovedHit `json:"trigger,omitempty"`
}

// NewFilterResult converts a filter decision on rec.
func NewFilterResult(runID string, event uint64, rec *overclean.CleaningRecord, d overclean.Decision) FilterResult {
	out := FilterResult{RunID: runID, Event: event, Flag: d.Flag, Missing: rec == nil}
	if rec != nil && d.Trigger >= 0 && d.Trigger < len(rec.Hits) {
		h := rec.Hits[d.Trigger]
		out.Trigger = &h
	}
	return out
}
