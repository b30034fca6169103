package l2seeds

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"
)

func mustFinder(t *testing.T, p Params) *Finder {
	t.Helper()
	f, err := NewFinder(p)
	require.NoError(t, err)
	return f
}

func seedIDs(r Result) []uint64 {
	ids := make([]uint64, len(r.Seeds))
	for i, s := range r.Seeds {
		ids[i] = s.ID
	}
	return ids
}

func TestFind_LocalMaxima(t *testing.T) {
	t.Parallel()

	s := testutil.MustStore(t, testutil.Line([]float64{0.5, 2, 1, 3, 0.2}, 1, l1hits.LayerHCALBarrel1))
	res := mustFinder(t, DefaultParams()).Find(s)

	// Ordered by decreasing energy: id 4 (3 GeV) then id 2 (2 GeV).
	assert.Equal(t, []uint64{4, 2}, seedIDs(res))
	for k, seed := range res.Seeds {
		assert.Equal(t, k, seed.Index)
		assert.Equal(t, s.Hit(seed.Hit).ID, seed.ID)
	}
	assert.Empty(t, res.Cleaned)
}

func TestFind_TieBrokenByLowerID(t *testing.T) {
	t.Parallel()

	s := testutil.MustStore(t, testutil.Line([]float64{2, 2}, 1, l1hits.LayerHCALBarrel1))
	res := mustFinder(t, DefaultParams()).Find(s)
	assert.Equal(t, []uint64{1}, seedIDs(res))
}

func TestFind_EqualEnergySeedsOrderedByID(t *testing.T) {
	t.Parallel()

	// Two separated maxima of equal energy.
	s := testutil.MustStore(t, testutil.Line([]float64{3, 0.1, 3}, 1, l1hits.LayerHCALBarrel1))
	res := mustFinder(t, DefaultParams()).Find(s)
	assert.Equal(t, []uint64{1, 3}, seedIDs(res))
}

func TestFind_RegionThresholds(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.SeedBarrel = 1.0
	p.SeedEndcap = 5.0
	f := mustFinder(t, p)

	barrel := testutil.MustStore(t, testutil.Line([]float64{2}, 1, l1hits.LayerECALBarrel))
	endcap := testutil.MustStore(t, testutil.Line([]float64{2}, 1, l1hits.LayerECALEndcap))

	assert.Len(t, f.Find(barrel).Seeds, 1)
	assert.Empty(t, f.Find(endcap).Seeds)
}

func TestFind_ThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	s := testutil.MustStore(t, testutil.Line([]float64{1.4}, 1, l1hits.LayerHCALEndcap))
	res := mustFinder(t, DefaultParams()).Find(s)
	require.Len(t, res.Seeds, 1)
	assert.GreaterOrEqual(t, res.Seeds[0].Energy, DefaultSeedThreshold)
}

func TestFind_CleansIsolatedSeed(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.CleanBarrel = 5
	p.MinS4S1Barrel = 0.05
	f := mustFinder(t, p)

	// 10 GeV spike with 0.1 GeV around it: surrounding fraction 0.02 < 0.05.
	s := testutil.MustStore(t, testutil.Line([]float64{0.1, 10, 0.1, 0.3, 2, 0.3}, 1, l1hits.LayerHCALBarrel1))
	res := f.Find(s)

	assert.Equal(t, []uint64{5}, seedIDs(res))
	require.Len(t, res.Cleaned, 1)
	assert.Equal(t, uint64(2), s.Hit(res.Cleaned[0]).ID)
	assert.True(t, res.IsCleaned(res.Cleaned[0]))
	assert.False(t, res.IsCleaned(0))
}

func TestFind_NotCleanedWhenSurrounded(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.CleanBarrel = 5
	p.MinS4S1Barrel = 0.05
	s := testutil.MustStore(t, testutil.Line([]float64{1, 10, 1}, 1, l1hits.LayerHCALBarrel1))
	res := mustFinder(t, p).Find(s)
	assert.Equal(t, []uint64{2}, seedIDs(res))
	assert.Empty(t, res.Cleaned)
}

func TestFind_GridSeedsAreLocalMaxima(t *testing.T) {
	t.Parallel()

	s := testutil.MustStore(t, testutil.Grid([][]float64{
		{0.2, 0.5, 0.2, 0.1},
		{0.5, 4.0, 0.9, 0.3},
		{0.2, 0.9, 1.2, 2.5},
		{0.1, 0.3, 0.8, 0.4},
	}, 5, l1hits.LayerHCALBarrel1, true))
	res := mustFinder(t, DefaultParams()).Find(s)

	require.Len(t, res.Seeds, 2)
	for _, seed := range res.Seeds {
		for _, j := range s.Neighbours(seed.Hit) {
			assert.Greater(t, seed.Energy, s.Energy(j), "seed %d not a local max", seed.ID)
		}
	}
	assert.Equal(t, 4.0, res.Seeds[0].Energy)
	assert.Equal(t, 2.5, res.Seeds[1].Energy)
}

func TestFind_Empty(t *testing.T) {
	t.Parallel()

	s := testutil.MustStore(t, nil)
	res := mustFinder(t, DefaultParams()).Find(s)
	assert.Empty(t, res.Seeds)
	assert.Empty(t, res.Cleaned)
}

func TestNewFinder_InvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Params)
		param  string
	}{
		{"negative barrel seed", func(p *Params) { p.SeedBarrel = -1 }, "thresh_Seed_Barrel"},
		{"nan endcap seed", func(p *Params) { p.SeedEndcap = math.NaN() }, "thresh_Seed_Endcap"},
		{"inf clean", func(p *Params) { p.CleanEndcap = math.Inf(1) }, "thresh_Clean_Endcap"},
		{"negative s4s1", func(p *Params) { p.MinS4S1Barrel = -0.1 }, "minS4S1_Barrel"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultParams()
			tt.mutate(&p)
			_, err := NewFinder(p)
			require.Error(t, err)
			require.ErrorContains(t, err, ErrInvalidParams.Error())

			var zErr *zerr.Error
			require.True(t, errors.As(err, &zErr), "expected *zerr.Error, got %T", err)
			assert.Equal(t, tt.param, zErr.Metadata()["parameter"])
		})
	}
}
