// Package l4fit owns Layer 4 (Particle-flow clusters) of the calorimeter
// clustering model.
//
// Responsibilities: sharing hit energy between the seeds of a topo-cluster
// with a Gaussian shower model (expectation-maximisation), and computing
// log-weighted cluster positions and energies.
// Key types: PFCluster, Fitter, Params.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
// Fitting one topo-cluster touches only that topo-cluster's data, so
// different topo-clusters may be fitted concurrently.
package l4fit
