package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/config"
	"github.com/banshee-data/pfcluster/internal/eventio"
	"github.com/banshee-data/pfcluster/internal/overclean"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type filterOptions struct {
	config string
	input  string
	output string
	derive string
}

func newFilterCmd(a *app) *cobra.Command {
	o := &filterOptions{}
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Flag events whose cleaning removed an energetic in-time hit",
		Long: `Reads JSON-lines events and writes one decision per event. The decision
uses the event's "cleaned" record; events without one are not flagged unless
--derive names a clustering configuration, in which case the record is
rebuilt from the seed finder's isolated-hit cleaning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFilter(cmd, o)
		},
	}
	cmd.Flags().StringVarP(&o.config, "config", "c", config.DefaultFilterPath, "Filter configuration (.json, .yaml, .toml)")
	cmd.Flags().StringVarP(&o.input, "input", "i", "-", "Input event stream")
	cmd.Flags().StringVarP(&o.output, "output", "o", "-", "Output decision stream")
	cmd.Flags().StringVar(&o.derive, "derive", "", "Clustering configuration used to rebuild missing cleaning records")
	return cmd
}

func (a *app) runFilter(cmd *cobra.Command, o *filterOptions) error {
	cfg, err := config.LoadFilterConfig(o.config)
	if err != nil {
		return fmt.Errorf("load %s: %w", o.config, err)
	}
	filter := cfg.Filter()
	a.log().Info("filter configured",
		zap.Float64("EnergyCut", filter.EnergyCut),
		zap.Float64("TimingCut", filter.TimingCut),
		zap.Bool("verbose", filter.Verbose),
	)

	var derive func(hits []l1hits.Hit) (*overclean.CleaningRecord, error)
	if o.derive != "" {
		engine, err := a.loadEngine(o.derive, -1)
		if err != nil {
			return err
		}
		derive = func(hits []l1hits.Hit) (*overclean.CleaningRecord, error) {
			s, res, err := engine.RunHits(cmd.Context(), hits)
			if err != nil {
				return nil, err
			}
			return overclean.RecordFromSeeds(s, res.Seeds), nil
		}
	}

	r, err := eventio.Open(o.input)
	if err != nil {
		return err
	}
	defer r.Close()

	var w *eventio.Writer
	if o.output == "-" {
		w = eventio.NewWriter(cmd.OutOrStdout())
	} else if w, err = eventio.Create(o.output); err != nil {
		return err
	}

	var events, flagged, missing int
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Close()
			return err
		}

		rec := ev.CleaningRecord()
		if rec == nil && derive != nil {
			hits, err := ev.ToHits()
			if err != nil {
				w.Close()
				return err
			}
			if rec, err = derive(hits); err != nil {
				w.Close()
				return fmt.Errorf("event %d: %w", ev.Event, err)
			}
		}
		if rec == nil {
			missing++
		}

		d := filter.Decide(rec)
		if d.Flag {
			flagged++
		}
		if err := w.Write(eventio.NewFilterResult(a.runID, ev.Event, rec, d)); err != nil {
			w.Close()
			return err
		}
		events++
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", o.output, err)
	}

	a.log().Info("filter complete",
		zap.Int("events", events),
		zap.Int("flagged", flagged),
		zap.Int("missing_records", missing),
	)
	return nil
}
