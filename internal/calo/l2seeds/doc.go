// Package l2seeds owns Layer 2 (Seeds) of the calorimeter clustering model.
//
// Responsibilities: selecting local energy maxima above the region seed
// threshold, and rejecting isolated energetic seeds as noise ("cleaning").
// Key types: Seed, Finder, Params.
//
// Dependency rule: L2 may depend on L1 only.
package l2seeds
