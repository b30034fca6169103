// Package overclean decides whether an event lost a genuine energy deposit
// to hit cleaning and should be sent back for re-reconstruction.
package overclean

import (
	"math"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/l2seeds"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"go.trai.ch/zerr"
)

const (
	DefaultEnergyCut = 130.0
	DefaultTimingCut = 0.0
)

// ErrInvalidParams is returned when filter thresholds fail validation.
var ErrInvalidParams = zerr.New("invalid over-cleaning filter parameters")

// RemovedHit is a hit dropped by cleaning.
type RemovedHit struct {
	Energy float64 `json:"energy"` // GeV
	Time   float64 `json:"time"`   // ns relative to the bunch crossing
}

// CleaningRecord lists the hits cleaning removed from the inspected region.
// A nil record means the record was not produced for the event.
type CleaningRecord struct {
	Hits []RemovedHit
}

// RecordFromHits builds a record from the store hits at the given indices.
func RecordFromHits(s *l1hits.Store, indices []int) *CleaningRecord {
	rec := &CleaningRecord{Hits: make([]RemovedHit, 0, len(indices))}
	for _, i := range indices {
		h := s.Hit(i)
		rec.Hits = append(rec.Hits, RemovedHit{Energy: h.Energy, Time: h.Time})
	}
	return rec
}

// RecordFromSeeds builds a record from the hits the seed finder cleaned.
func RecordFromSeeds(s *l1hits.Store, res l2seeds.Result) *CleaningRecord {
	return RecordFromHits(s, res.Cleaned)
}

// Decision is the per-event filter outcome.
type Decision struct {
	Flag    bool
	Trigger int // Index into the record of the hit that set Flag, -1 if none
}

// Filter flags events where cleaning removed an energetic in-time hit.
type Filter struct {
	EnergyCut float64 // GeV
	TimingCut float64 // ns; 0 disables the timing requirement
	Verbose   bool
}

// DefaultFilter returns the default thresholds with verbose reporting.
func DefaultFilter() Filter {
	return Filter{EnergyCut: DefaultEnergyCut, TimingCut: DefaultTimingCut, Verbose: true}
}

// Validate checks the thresholds.
func (f Filter) Validate() error {
	if math.IsNaN(f.EnergyCut) || math.IsInf(f.EnergyCut, 0) {
		return zerr.With(ErrInvalidParams, "parameter", "EnergyCut")
	}
	if math.IsNaN(f.TimingCut) || math.IsInf(f.TimingCut, 0) || f.TimingCut < 0 {
		return zerr.With(ErrInvalidParams, "parameter", "TimingCut")
	}
	return nil
}

// InTime reports whether t passes the timing requirement.
func (f Filter) InTime(t float64) bool {
	return f.TimingCut == 0 || math.Abs(t) <= f.TimingCut
}

// Decide returns the decision for one event. The first removed hit above
// the energy cut and in time sets the flag.
func (f Filter) Decide(rec *CleaningRecord) Decision {
	if rec == nil {
		monitoring.Logf("overclean: no cleaned hits in input")
		return Decision{Trigger: -1}
	}
	for i, h := range rec.Hits {
		if f.Verbose {
			monitoring.Logf("overclean: hit with E=%.3f and time=%.3f was cleaned", h.Energy, h.Time)
		}
		if h.Energy > f.EnergyCut && f.InTime(h.Time) {
			if f.Verbose {
				monitoring.Logf("overclean: hit %d was over-cleaned, event sent to re-reconstruction", i)
			}
			return Decision{Flag: true, Trigger: i}
		}
	}
	return Decision{Trigger: -1}
}
