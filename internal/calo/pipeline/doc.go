// Package pipeline is the composition root of the calorimeter clustering
// engine. It runs the layers in order for one event:
//
//	l1hits.Store -> l2seeds.Finder -> l3topo.Builder -> l4fit.Fitter -> l5depth.Corrector
//
// Topo-clusters are disjoint, so the fit of each one runs on its own
// worker and writes into its own result slot. The cluster collection is
// ordered by seed index whatever the worker count.
package pipeline
