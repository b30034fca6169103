package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/pfcluster/internal/config"
	"github.com/banshee-data/pfcluster/internal/display"
	"github.com/banshee-data/pfcluster/internal/eventio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type displayOptions struct {
	config string
	input  string
	event  uint64
	png    string
	html   string
}

func newDisplayCmd(a *app) *cobra.Command {
	o := &displayOptions{}
	cmd := &cobra.Command{
		Use:   "display",
		Short: "Draw the clustering of one event",
		Long: `Clusters one event of the input stream and draws its hits, topo-clusters
and cluster positions in the (eta, phi) plane as a PNG, an interactive HTML
page, or both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDisplay(cmd, o)
		},
	}
	cmd.Flags().StringVarP(&o.config, "config", "c", config.DefaultClusteringPath, "Clustering configuration (.json, .yaml, .toml)")
	cmd.Flags().StringVarP(&o.input, "input", "i", "-", "Input event stream")
	cmd.Flags().Uint64VarP(&o.event, "event", "e", 0, "Event number to draw")
	cmd.Flags().StringVar(&o.png, "png", "", "PNG output path")
	cmd.Flags().StringVar(&o.html, "html", "", "HTML output path")
	return cmd
}

func (a *app) runDisplay(cmd *cobra.Command, o *displayOptions) error {
	if o.png == "" && o.html == "" {
		return errors.New("at least one of --png or --html is required")
	}
	engine, err := a.loadEngine(o.config, -1)
	if err != nil {
		return err
	}

	r, err := eventio.Open(o.input)
	if err != nil {
		return err
	}
	defer r.Close()

	var ev *eventio.Event
	for {
		ev, err = r.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("event %d not found in %s", o.event, o.input)
		}
		if err != nil {
			return err
		}
		if ev.Event == o.event {
			break
		}
	}

	hits, err := ev.ToHits()
	if err != nil {
		return err
	}
	s, res, err := engine.RunHits(cmd.Context(), hits)
	if err != nil {
		return fmt.Errorf("event %d: %w", ev.Event, err)
	}

	sc := display.NewScene(fmt.Sprintf("event %d", ev.Event), s, res)
	if o.png != "" {
		if err := sc.SavePNG(o.png); err != nil {
			return err
		}
	}
	if o.html != "" {
		if err := sc.SaveHTML(o.html); err != nil {
			return err
		}
	}
	a.log().Info("display written",
		zap.Uint64("event", ev.Event),
		zap.Int("clusters", len(res.Clusters)),
		zap.String("png", o.png),
		zap.String("html", o.html),
	)
	return nil
}
