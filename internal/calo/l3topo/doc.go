// Package l3topo owns Layer 3 (Topological clusters) of the calorimeter
// clustering model.
//
// Responsibilities: hop-bounded expansion of every seed through the
// neighbour graph and merging of touching expansions with a disjoint-set.
// Key types: TopoCluster, Builder, DisjointSet.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3topo
