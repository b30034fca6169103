// Package l5depth owns Layer 5 (Depth correction) of the calorimeter
// clustering model.
//
// Responsibilities: moving a cluster's position along its line of sight
// from the origin to approximate the depth of shower maximum.
// Key types: Corrector, Mode.
//
// Dependency rule: L5 may depend on L1-L4, but never on the pipeline.
package l5depth
