package pipeline

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/banshee-data/pfcluster/internal/calo/pipeline")

var (
	// nonConvergedCounter counts multi-seed fits that hit the iteration cap.
	nonConvergedCounter metric.Int64Counter
	// iterationsHistogram records EM iterations per multi-seed topo-cluster.
	iterationsHistogram metric.Int64Histogram
	// clustersHistogram records particle-flow clusters per event.
	clustersHistogram metric.Int64Histogram
)

func init() {
	// Instrument creation only fails on malformed names or options.
	var err error
	nonConvergedCounter, err = meter.Int64Counter(
		"pfcluster.fit.nonconverged",
		metric.WithDescription("how many topo-cluster fits stopped at the iteration cap"),
	)
	if err != nil {
		panic(fmt.Sprintf("pipeline: failed to init 'pfcluster.fit.nonconverged' instrument: %v", err))
	}
	iterationsHistogram, err = meter.Int64Histogram(
		"pfcluster.fit.iterations",
		metric.WithDescription("expectation-maximisation iterations per multi-seed topo-cluster"),
	)
	if err != nil {
		panic(fmt.Sprintf("pipeline: failed to init 'pfcluster.fit.iterations' instrument: %v", err))
	}
	clustersHistogram, err = meter.Int64Histogram(
		"pfcluster.event.clusters",
		metric.WithDescription("particle-flow clusters per event"),
	)
	if err != nil {
		panic(fmt.Sprintf("pipeline: failed to init 'pfcluster.event.clusters' instrument: %v", err))
	}
}
