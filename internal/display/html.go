package display

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders the scene as an interactive go-echarts scatter. Hits are
// coloured by energy; clusters are drawn as a separate series.
func (sc Scene) WriteHTML(w io.Writer) error {
	etaMin, etaMax, phiMin, phiMax := sc.bounds()

	hits := make([]opts.ScatterData, 0, len(sc.Hits))
	maxE := 0.0
	for _, h := range sc.Hits {
		maxE = math.Max(maxE, h.Energy)
		hits = append(hits, opts.ScatterData{
			Name:  fmt.Sprintf("hit %d", h.ID),
			Value: []interface{}{h.Eta, h.Phi, h.Energy},
		})
	}
	if maxE == 0 {
		maxE = 1
	}

	clusters := make([]opts.ScatterData, 0, len(sc.Clusters))
	for _, m := range sc.Clusters {
		clusters = append(clusters, opts.ScatterData{
			Name:       fmt.Sprintf("cluster seed %d", m.Seed),
			Value:      []interface{}{m.Eta, m.Phi, m.Energy},
			Symbol:     "diamond",
			SymbolSize: 14,
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: sc.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: sc.Title, Subtitle: fmt.Sprintf("hits=%d topo=%d clusters=%d", len(sc.Hits), sc.Topos, len(sc.Clusters))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: etaMin, Max: etaMax, Name: "eta", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: phiMin, Max: phiMax, Name: "phi (rad)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxE),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("hits", hits, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("clusters", clusters,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(unclustered)}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
