package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/pfcluster/internal/calo/pipeline"
	"github.com/banshee-data/pfcluster/internal/config"
	"github.com/banshee-data/pfcluster/internal/eventio"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type clusterOptions struct {
	config  string
	input   string
	output  string
	workers int
}

func newClusterCmd(a *app) *cobra.Command {
	o := &clusterOptions{}
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster every event of an input stream",
		Long: `Reads JSON-lines events, clusters each one and writes one JSON line of
clusters per event. Inputs and outputs ending in .gz or .zst are compressed.

Example:
  pfcluster cluster --config config/pfcluster.defaults.json --input events.jsonl.zst --output clusters.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCluster(cmd, o)
		},
	}
	cmd.Flags().StringVarP(&o.config, "config", "c", config.DefaultClusteringPath, "Clustering configuration (.json, .yaml, .toml)")
	cmd.Flags().StringVarP(&o.input, "input", "i", "-", "Input event stream")
	cmd.Flags().StringVarP(&o.output, "output", "o", "-", "Output cluster stream")
	cmd.Flags().IntVar(&o.workers, "workers", -1, "Concurrent topo-cluster fits, overrides the configuration when >= 0")
	return cmd
}

// loadEngine loads the clustering configuration and builds the engine.
func (a *app) loadEngine(path string, workers int) (*pipeline.Engine, error) {
	cfg, err := config.LoadClusteringConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	ec := cfg.EngineConfig()
	if workers >= 0 {
		ec.Workers = workers
	}
	if cfg.GetVerbose() {
		monitoring.SetVerbose(true)
	}
	engine, err := pipeline.New(ec)
	if err != nil {
		return nil, err
	}
	a.log().Info("clustering configured",
		zap.String("config", path),
		zap.Int("workers", engine.Workers()),
		zap.Int("nNeighbours", ec.Topo.MaxHops),
		zap.Float64("showerSigma", ec.Fit.ShowerSigma),
		zap.Stringer("depthCor_Mode", ec.Depth.Mode),
	)
	return engine, nil
}

func (a *app) runCluster(cmd *cobra.Command, o *clusterOptions) error {
	ctx := cmd.Context()
	engine, err := a.loadEngine(o.config, o.workers)
	if err != nil {
		return err
	}

	r, err := eventio.Open(o.input)
	if err != nil {
		return err
	}
	defer r.Close()

	out := o.output
	var w *eventio.Writer
	if out == "-" {
		w = eventio.NewWriter(cmd.OutOrStdout())
	} else if w, err = eventio.Create(out); err != nil {
		return err
	}

	var events, clusters, nonConverged int
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Close()
			return err
		}
		hits, err := ev.ToHits()
		if err != nil {
			w.Close()
			return err
		}
		_, res, err := engine.RunHits(ctx, hits)
		if err != nil {
			w.Close()
			return fmt.Errorf("event %d: %w", ev.Event, err)
		}
		if err := w.Write(eventio.NewClusterResult(a.runID, ev.Event, res)); err != nil {
			w.Close()
			return err
		}

		events++
		clusters += len(res.Clusters)
		nonConverged += res.NonConverged
		a.log().Debug("event clustered",
			zap.Uint64("event", ev.Event),
			zap.Int("hits", len(hits)),
			zap.Int("topo_clusters", len(res.TopoClusters)),
			zap.Int("clusters", len(res.Clusters)),
			zap.Int("non_converged", res.NonConverged),
		)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}

	a.log().Info("clustering complete",
		zap.Int("events", events),
		zap.Int("clusters", clusters),
		zap.Int("non_converged", nonConverged),
	)
	return nil
}
