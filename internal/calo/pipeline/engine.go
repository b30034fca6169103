package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/l2seeds"
	"github.com/banshee-data/pfcluster/internal/calo/l3topo"
	"github.com/banshee-data/pfcluster/internal/calo/l4fit"
	"github.com/banshee-data/pfcluster/internal/calo/l5depth"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidWorkers is returned for a negative worker count.
var ErrInvalidWorkers = zerr.New("invalid worker count")

// Config gathers the parameters of every layer.
type Config struct {
	Seeds   l2seeds.Params
	Topo    l3topo.Params
	Fit     l4fit.Params
	Depth   l5depth.Corrector
	Workers int // Concurrent topo-cluster fits; 0 uses GOMAXPROCS
}

// DefaultConfig returns the HCAL defaults.
func DefaultConfig() Config {
	return Config{
		Seeds: l2seeds.DefaultParams(),
		Topo:  l3topo.DefaultParams(),
		Fit:   l4fit.DefaultParams(),
		Depth: l5depth.DefaultCorrector(),
	}
}

// Engine clusters events. It holds only validated configuration and may be
// shared between goroutines.
type Engine struct {
	finder  *l2seeds.Finder
	builder *l3topo.Builder
	fitter  *l4fit.Fitter
	depth   l5depth.Corrector
	workers int
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	finder, err := l2seeds.NewFinder(cfg.Seeds)
	if err != nil {
		return nil, err
	}
	builder, err := l3topo.NewBuilder(cfg.Topo)
	if err != nil {
		return nil, err
	}
	fitter, err := l4fit.NewFitter(cfg.Fit)
	if err != nil {
		return nil, err
	}
	if err := cfg.Depth.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers < 0 {
		return nil, zerr.With(ErrInvalidWorkers, "parameter", "workers")
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		finder:  finder,
		builder: builder,
		fitter:  fitter,
		depth:   cfg.Depth,
		workers: workers,
	}, nil
}

// Workers returns the fit concurrency.
func (e *Engine) Workers() int { return e.workers }

// Result is the clustering output of one event.
type Result struct {
	Seeds        l2seeds.Result
	TopoClusters []l3topo.TopoCluster
	Clusters     []l4fit.PFCluster // Ordered by SeedIndex
	NonConverged int               // Multi-seed fits stopped at the iteration cap
}

// Energy returns the summed cluster energy.
func (r Result) Energy() float64 {
	var e float64
	for i := range r.Clusters {
		e += r.Clusters[i].Energy
	}
	return e
}

// Run clusters the hits of one event. The only error is cancellation of ctx.
func (e *Engine) Run(ctx context.Context, s *l1hits.Store) (Result, error) {
	var res Result
	res.Seeds = e.finder.Find(s)
	res.TopoClusters = e.builder.Build(s, res.Seeds)

	slots := make([][]l4fit.PFCluster, len(res.TopoClusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range res.TopoClusters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cls := e.fitter.Fit(s, res.TopoClusters[i])
			for k := range cls {
				e.depth.Apply(&cls[k])
			}
			slots[i] = cls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("fit topo-clusters: %w", err)
	}

	for i, cls := range slots {
		if len(res.TopoClusters[i].Seeds) > 1 && len(cls) > 0 {
			iterationsHistogram.Record(ctx, int64(cls[0].Iterations))
			if !cls[0].Converged {
				res.NonConverged++
			}
		}
		res.Clusters = append(res.Clusters, cls...)
	}
	sort.Slice(res.Clusters, func(a, b int) bool {
		return res.Clusters[a].SeedIndex < res.Clusters[b].SeedIndex
	})

	if res.NonConverged > 0 {
		nonConvergedCounter.Add(ctx, int64(res.NonConverged))
	}
	clustersHistogram.Record(ctx, int64(len(res.Clusters)))
	monitoring.Debugf("pipeline: %d hits, %d seeds, %d topo-clusters, %d clusters, %d non-converged",
		s.Len(), len(res.Seeds.Seeds), len(res.TopoClusters), len(res.Clusters), res.NonConverged)
	return res, nil
}

// RunHits builds the event store from hits and clusters it.
func (e *Engine) RunHits(ctx context.Context, hits []l1hits.Hit) (*l1hits.Store, Result, error) {
	s, err := l1hits.NewStore(hits)
	if err != nil {
		return nil, Result{}, fmt.Errorf("build hit store: %w", err)
	}
	res, err := e.Run(ctx, s)
	return s, res, err
}

// Fingerprint hashes the cluster collection. Equal results hash equal.
func (r Result) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putf := func(f float64) { put(math.Float64bits(f)) }

	put(uint64(len(r.Clusters)))
	for i := range r.Clusters {
		c := &r.Clusters[i]
		put(c.SeedID)
		putf(c.Energy)
		putf(c.Position.X)
		putf(c.Position.Y)
		putf(c.Position.Z)
		putf(c.CorrectedPosition.X)
		putf(c.CorrectedPosition.Y)
		putf(c.CorrectedPosition.Z)
		put(uint64(c.Layer))
		put(uint64(len(c.Fractions)))
		for _, f := range c.Fractions {
			put(f.ID)
			putf(f.Fraction)
		}
	}
	return h.Sum64()
}
