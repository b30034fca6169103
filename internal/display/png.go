package display

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 8 * vg.Inch
)

// glyphRadius scales a glyph with the square root of energy.
func glyphRadius(e, emax float64) vg.Length {
	if emax <= 0 || e <= 0 {
		return vg.Points(1.5)
	}
	return vg.Points(1.5 + 6*math.Sqrt(e/emax))
}

// Plot builds the gonum plot of the scene: one scatter per topo-cluster,
// unclustered hits in grey and cluster positions as crosses.
func (sc Scene) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = sc.Title
	p.X.Label.Text = "eta"
	p.Y.Label.Text = "phi (rad)"
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = sc.bounds()
	p.Add(plotter.NewGrid())

	emax := 0.0
	for _, h := range sc.Hits {
		emax = math.Max(emax, h.Energy)
	}

	groups := make([][]Point, sc.Topos+1) // last group is unclustered
	for _, h := range sc.Hits {
		g := h.Topo
		if g < 0 || g >= sc.Topos {
			g = sc.Topos
		}
		groups[g] = append(groups[g], h)
	}

	colors := topoPalette(sc.Topos)
	for g, pts := range groups {
		if len(pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(pts))
		for i, h := range pts {
			xys[i] = plotter.XY{X: h.Eta, Y: h.Phi}
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("hit scatter: %w", err)
		}
		c := color.Color(unclustered)
		if g < sc.Topos {
			c = colors[g]
		}
		s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			shape := draw.GlyphDrawer(draw.CircleGlyph{})
			if pts[i].Seed {
				shape = draw.SquareGlyph{}
			}
			return draw.GlyphStyle{Color: c, Radius: glyphRadius(pts[i].Energy, emax), Shape: shape}
		}
		p.Add(s)
		if g < sc.Topos {
			p.Legend.Add(fmt.Sprintf("topo %d", g), s)
		} else {
			p.Legend.Add("unclustered", s)
		}
	}

	if len(sc.Clusters) > 0 {
		xys := make(plotter.XYs, len(sc.Clusters))
		for i, m := range sc.Clusters {
			xys[i] = plotter.XY{X: m.Eta, Y: m.Phi}
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("cluster scatter: %w", err)
		}
		s.GlyphStyle = draw.GlyphStyle{Color: color.Black, Radius: vg.Points(5), Shape: draw.CrossGlyph{}}
		p.Add(s)
		p.Legend.Add("clusters", s)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the scene as a PNG of the given size to w.
func (sc Scene) WritePNG(w io.Writer, width, height vg.Length) error {
	p, err := sc.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG renders the scene to path at the default size.
func (sc Scene) SavePNG(path string) error {
	p, err := sc.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, filepath.Clean(path)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// SaveHTML renders the interactive scatter to path.
func (sc Scene) SaveHTML(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := sc.WriteHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
