package display

import (
	"fmt"
	"image/color"
	"math"
)

// unclustered is the colour of hits outside every topo-cluster.
var unclustered = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// goldenHue is the hue step between consecutive topo-clusters. Neighbouring
// topo indices usually sit next to each other in eta/phi, so consecutive
// colours are kept far apart on the wheel.
const goldenHue = 0.6180339887498949

// topoPalette returns one colour per topo-cluster. Lightness alternates
// between two levels so that hues that end up close are still told apart
// against the grey of unclustered hits.
func topoPalette(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := range colors {
		hue := math.Mod(float64(i)*goldenHue, 1)
		light := 0.45
		if i%2 == 1 {
			light = 0.62
		}
		colors[i] = hslColor(hue, 0.75, light)
	}
	return colors
}

// hexColor formats c as #rrggbb.
func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

// hslColor converts hue, saturation and lightness in [0, 1] to an opaque
// RGBA colour.
func hslColor(h, s, l float64) color.RGBA {
	chroma := (1 - math.Abs(2*l-1)) * s
	sector := math.Mod(h, 1) * 6
	x := chroma * (1 - math.Abs(math.Mod(sector, 2)-1))

	var r, g, b float64
	switch {
	case sector < 1:
		r, g = chroma, x
	case sector < 2:
		r, g = x, chroma
	case sector < 3:
		g, b = chroma, x
	case sector < 4:
		g, b = x, chroma
	case sector < 5:
		r, b = x, chroma
	default:
		r, b = chroma, x
	}
	m := l - chroma/2
	channel := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return color.RGBA{R: channel(r), G: channel(g), B: channel(b), A: 255}
}
