package report

import (
	"fmt"

	"github.com/user/cis-bias-go/internal/chart"
	"github.com/user/cis-bias-go/internal/kpi"
)

// Element is a text element of the dashboard page.
type Element struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Class string `json:"class"`
}

// SetText replaces the element's text content.
func (e *Element) SetText(text string) { e.Text = text }

// SetClass replaces the element's CSS class attribute.
func (e *Element) SetClass(class string) { e.Class = class }

// Page is the dashboard's output surface: the KPI element plus the chart
// area. A Page is built fresh for every load and written by a single loader.
type Page struct {
	KPI         *Element
	Chart       *chart.BarChart
	Interactive *chart.EChartsSurface
	Static      *chart.PlotSurface
}

// NewPage returns a page with its placeholders in the state they have before
// any data is loaded.
func NewPage() *Page {
	return &Page{
		KPI:         &Element{ID: kpi.ElementID, Text: "--", Class: "value"},
		Interactive: chart.NewEChartsSurface(),
		Static:      chart.NewPlotSurface(),
	}
}

// Draw draws c on both the interactive and the static surface.
func (p *Page) Draw(c chart.BarChart) error {
	if err := p.Interactive.Draw(c); err != nil {
		return err
	}
	if err := p.Static.Draw(c); err != nil {
		return fmt.Errorf("failed to draw static chart: %w", err)
	}
	p.Chart = &c
	return nil
}

// Drawn reports whether a chart has been drawn onto the page.
func (p *Page) Drawn() bool {
	return p.Chart != nil
}
