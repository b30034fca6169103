// Package testutil provides shared test utilities and hit fixtures.
//
// This package centralises the calorimeter grids used across the clustering
// layer tests so that every package exercises the same geometry.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"gonum.org/v1/gonum/spatial/r3"
)

// GridRadius is the transverse distance of fixture grids from the beam axis.
const GridRadius = 150.0

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test if got and want differ by more than tol.
func AssertClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %.9g, want %.9g (tol %g)", name, got, want, tol)
	}
}

// GridID returns the cell id used by Grid for row r, column c.
func GridID(r, c, cols int) uint64 {
	return uint64(r*cols + c + 1)
}

// Grid builds hits on a flat rows×cols grid at x = GridRadius with the given
// cell pitch. Cell (r, c) sits at y = c*pitch, z = r*pitch. Negative energies
// mark absent cells. Side-sharing cells are neighbours; corner cells are
// added when diagonal is true.
func Grid(energies [][]float64, pitch float64, layer l1hits.Layer, diagonal bool) []l1hits.Hit {
	rows := len(energies)
	if rows == 0 {
		return nil
	}
	cols := len(energies[0])
	var hits []l1hits.Hit
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			e := energies[r][c]
			if e < 0 {
				continue
			}
			var nb []uint64
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if !diagonal && dr != 0 && dc != 0 {
						continue
					}
					rr, cc := r+dr, c+dc
					if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
						continue
					}
					nb = append(nb, GridID(rr, cc, cols))
				}
			}
			hits = append(hits, l1hits.Hit{
				ID:         GridID(r, c, cols),
				Position:   r3.Vec{X: GridRadius, Y: float64(c) * pitch, Z: float64(r) * pitch},
				Energy:     e,
				Layer:      layer,
				Neighbours: nb,
			})
		}
	}
	return hits
}

// RandomGrid returns rows×cols energies drawn uniformly from [0, max) by a
// generator seeded with seed, for use with Grid.
func RandomGrid(seed int64, rows, cols int, max float64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	g := make([][]float64, rows)
	for r := range g {
		g[r] = make([]float64, cols)
		for c := range g[r] {
			g[r][c] = rng.Float64() * max
		}
	}
	return g
}

// Line builds a single row of hits, see Grid.
func Line(energies []float64, pitch float64, layer l1hits.Layer) []l1hits.Hit {
	return Grid([][]float64{energies}, pitch, layer, false)
}

// MustStore builds a Store or fails the test.
func MustStore(t *testing.T, hits []l1hits.Hit) *l1hits.Store {
	t.Helper()
	s, err := l1hits.NewStore(hits)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}
