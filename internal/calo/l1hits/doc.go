// Package l1hits owns Layer 1 (Hits) of the calorimeter clustering model.
//
// Responsibilities: the per-event hit collection, detector layer and region
// tags, and the adjacency relation supplied by the geometry service.
// Key types: Hit, Store, Layer, Region.
//
// Dependency rule: L1 depends on nothing else in internal/calo.
// A Store is immutable once built and is safe for concurrent readers.
package l1hits
