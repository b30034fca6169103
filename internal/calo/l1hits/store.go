package l1hits

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDuplicateHit is returned when two hits share a cell identifier.
	ErrDuplicateHit = errors.New("duplicate hit id")
	// ErrInvalidEnergy is returned for negative, NaN or infinite energies.
	ErrInvalidEnergy = errors.New("invalid hit energy")
	// ErrInvalidLayer is returned for hits without a known layer.
	ErrInvalidLayer = errors.New("invalid hit layer")
)

// Store is the immutable per-event hit collection. Hits are held in
// ascending id order and addressed by dense index; the adjacency relation
// is resolved to indices once at construction.
type Store struct {
	hits       []Hit
	index      map[uint64]int
	neighbours [][]int
}

// NewStore validates hits and builds the adjacency index. Neighbour ids that
// do not correspond to a hit in this event are dropped, self references are
// ignored and the relation is made symmetric.
func NewStore(hits []Hit) (*Store, error) {
	s := &Store{
		hits:  make([]Hit, len(hits)),
		index: make(map[uint64]int, len(hits)),
	}
	copy(s.hits, hits)
	sort.Slice(s.hits, func(i, j int) bool { return s.hits[i].ID < s.hits[j].ID })

	for i := range s.hits {
		h := &s.hits[i]
		if _, dup := s.index[h.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateHit, h.ID)
		}
		if h.Energy < 0 || math.IsNaN(h.Energy) || math.IsInf(h.Energy, 0) {
			return nil, fmt.Errorf("%w: hit %d has energy %v", ErrInvalidEnergy, h.ID, h.Energy)
		}
		if !h.Layer.Valid() {
			return nil, fmt.Errorf("%w: hit %d has layer %v", ErrInvalidLayer, h.ID, h.Layer)
		}
		s.index[h.ID] = i
	}

	adj := make([]map[int]struct{}, len(s.hits))
	for i := range adj {
		adj[i] = make(map[int]struct{}, len(s.hits[i].Neighbours))
	}
	for i, h := range s.hits {
		for _, nid := range h.Neighbours {
			j, ok := s.index[nid]
			if !ok || j == i {
				continue
			}
			adj[i][j] = struct{}{}
			adj[j][i] = struct{}{}
		}
	}

	s.neighbours = make([][]int, len(s.hits))
	for i, set := range adj {
		nb := make([]int, 0, len(set))
		for j := range set {
			nb = append(nb, j)
		}
		sort.Ints(nb)
		s.neighbours[i] = nb

		// Keep the public neighbour list consistent with the resolved relation.
		ids := make([]uint64, len(nb))
		for k, j := range nb {
			ids[k] = s.hits[j].ID
		}
		s.hits[i].Neighbours = ids
	}

	return s, nil
}

// Len returns the number of hits.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.hits)
}

// Hit returns the hit at dense index i. The returned Neighbours slice is
// shared with the store and must not be modified.
func (s *Store) Hit(i int) Hit {
	return s.hits[i]
}

// Energy returns the energy of the hit at index i.
func (s *Store) Energy(i int) float64 {
	return s.hits[i].Energy
}

// Index returns the dense index of the hit with the given cell id.
func (s *Store) Index(id uint64) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[id]
	return i, ok
}

// Neighbours returns the dense indices adjacent to hit i, ascending.
// The slice is shared with the store and must not be modified.
func (s *Store) Neighbours(i int) []int {
	return s.neighbours[i]
}

// IsNeighbour reports whether hits i and j are adjacent.
func (s *Store) IsNeighbour(i, j int) bool {
	nb := s.neighbours[i]
	k := sort.SearchInts(nb, j)
	return k < len(nb) && nb[k] == j
}

// Hits returns a copy of the hit slice in id order.
func (s *Store) Hits() []Hit {
	if s == nil {
		return nil
	}
	out := make([]Hit, len(s.hits))
	copy(out, s.hits)
	return out
}

// TotalEnergy sums the energy of the given hit indices.
func (s *Store) TotalEnergy(indices []int) float64 {
	var sum float64
	for _, i := range indices {
		sum += s.hits[i].Energy
	}
	return sum
}
