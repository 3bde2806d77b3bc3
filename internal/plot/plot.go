// Package plot renders the collected series as one overlay figure: every
// setting's histogram is drawn as a dashed step line in its configured
// color on a shared axis, with the setting labels in the legend.
package plot

import (
	"fmt"
	"image/color"
	"sort"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"

	"github.com/hepsim/stringsweep/internal/hist"
)

// palette maps the recognized color names to their RGB values.
var palette = map[string]color.NRGBA{
	"steelblue":  {R: 0x46, G: 0x82, B: 0xB4, A: 0xFF},
	"seagreen":   {R: 0x2E, G: 0x8B, B: 0x57, A: 0xFF},
	"indianred":  {R: 0xCD, G: 0x5C, B: 0x5C, A: 0xFF},
	"goldenrod":  {R: 0xDA, G: 0xA5, B: 0x20, A: 0xFF},
	"slateblue":  {R: 0x6A, G: 0x5A, B: 0xCD, A: 0xFF},
	"firebrick":  {R: 0xB2, G: 0x22, B: 0x22, A: 0xFF},
	"darkorange": {R: 0xFF, G: 0x8C, B: 0x00, A: 0xFF},
	"teal":       {R: 0x00, G: 0x80, B: 0x80, A: 0xFF},
	"black":      {R: 0x00, G: 0x00, B: 0x00, A: 0xFF},
}

// KnownColor reports whether name is in the palette.
func KnownColor(name string) bool {
	_, ok := palette[name]
	return ok
}

// ColorNames returns the palette names in sorted order.
func ColorNames() []string {
	names := make([]string, 0, len(palette))
	for name := range palette {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Renderer accumulates series onto one frame and writes the figure.
type Renderer struct {
	p *hplot.Plot
}

// NewFrame creates an empty frame with the given title and axis labels.
func NewFrame(title, xLabel, yLabel string) *Renderer {
	p := hplot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(hplot.NewGrid())
	p.Legend.Top = true
	return &Renderer{p: p}
}

// AddSeries draws h as a dashed step line in the named color and registers
// label in the legend. It fails for a color name outside the palette.
func (r *Renderer) AddSeries(h *hist.Histogram, colorName, label string) error {
	c, ok := palette[colorName]
	if !ok {
		return fmt.Errorf("unknown plot color %q", colorName)
	}

	hh := hplot.NewH1D(toH1D(h))
	hh.FillColor = nil
	hh.LineStyle.Color = c
	hh.LineStyle.Width = vg.Points(1.5)
	hh.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	r.p.Add(hh)
	r.p.Legend.Add(label, hh)
	return nil
}

// Save writes the figure to path; the format follows the file extension.
func (r *Renderer) Save(path string) error {
	const width = 15 * vg.Centimeter
	if err := r.p.Save(width, -1, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// toH1D copies the accumulated counts into an hbook histogram with the same
// geometry, for drawing.
func toH1D(h *hist.Histogram) *hbook.H1D {
	out := hbook.NewH1D(h.Bins(), h.Lo(), h.Hi())
	for i, c := range h.Counts() {
		if c > 0 {
			out.Fill(h.BinCenter(i), float64(c))
		}
	}
	if u := h.Underflow(); u > 0 {
		out.Fill(h.Lo()-h.BinWidth(), float64(u))
	}
	if o := h.Overflow(); o > 0 {
		out.Fill(h.Hi()+h.BinWidth(), float64(o))
	}
	return out
}
