package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// seriesSlot is the horizontal room given to one series inside a category
// at 100% category width.
const seriesSlot = 12 * vg.Millimeter

// PlotSurface draws a chart as a static PNG image.
type PlotSurface struct {
	Width  vg.Length
	Height vg.Length

	png []byte
}

// NewPlotSurface returns a PNG surface with the default dashboard size.
func NewPlotSurface() *PlotSurface {
	return &PlotSurface{Width: 8 * vg.Inch, Height: 4 * vg.Inch}
}

// Draw renders c into the surface's PNG buffer, replacing any previous image.
func (ps *PlotSurface) Draw(c BarChart) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.Y.Label.Text = c.YAxisTitle
	p.Legend.Top = true
	p.NominalX(c.Categories...)

	n := len(c.Series)
	for i, s := range c.Series {
		if len(s.Values) == 0 {
			continue
		}
		slot := seriesSlot * vg.Length(s.CategoryPercentage)
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), slot*vg.Length(s.BarPercentage))
		if err != nil {
			return fmt.Errorf("failed to create bars for %s: %w", s.Name, err)
		}

		fill, err := ParseColor(s.Fill)
		if err != nil {
			return err
		}
		border, err := ParseColor(s.Border)
		if err != nil {
			return err
		}
		bars.Color = fill
		bars.LineStyle.Color = border
		bars.LineStyle.Width = vg.Points(s.BorderWidth)
		// Center the group of bars on the category tick.
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * slot

		p.Add(bars)
		p.Legend.Add(s.Name, bars)
	}

	if c.BeginAtZero {
		p.Y.Min = 0
	}
	p.Add(plotter.NewGrid())

	writer, err := p.WriterTo(ps.Width, ps.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	ps.png = buf.Bytes()
	return nil
}

// PNG returns the last drawn image, or nil if nothing was drawn.
func (ps *PlotSurface) PNG() []byte {
	return ps.png
}

// Base64 returns the last drawn image encoded for an img data URI.
func (ps *PlotSurface) Base64() string {
	if len(ps.png) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(ps.png)
}
