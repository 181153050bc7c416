package chart

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// tooltipFormatter lists every series at the hovered category as
// "<series>: <value>%".
const tooltipFormatter = `function (params) {
  var lines = [params[0].axisValueLabel];
  params.forEach(function (p) {
    lines.push(p.marker + p.seriesName + ': ' + p.value + '%');
  });
  return lines.join('<br/>');
}`

// EChartsSurface draws a chart as an interactive HTML document.
type EChartsSurface struct {
	PageTitle string
	Height    string

	html []byte
}

// NewEChartsSurface returns an interactive surface with the dashboard defaults.
func NewEChartsSurface() *EChartsSurface {
	return &EChartsSurface{PageTitle: "Dashboard CIS", Height: "480px"}
}

// Draw renders c into the surface's HTML buffer, replacing any previous chart.
func (es *EChartsSurface) Draw(c BarChart) error {
	bar := charts.NewBar()

	yAxis := opts.YAxis{Name: c.YAxisTitle}
	if c.BeginAtZero {
		yAxis.Min = 0
	}
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: es.PageTitle,
			ChartID:   ElementID,
			Width:     "100%",
			Height:    es.Height,
		}),
		charts.WithTitleOpts(opts.Title{Title: c.Title, Subtitle: c.Subtitle}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "top"}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "axis",
			Formatter: opts.FuncOpts(tooltipFormatter),
		}),
		charts.WithYAxisOpts(yAxis),
	)

	bar.SetXAxis(c.Categories)
	for _, s := range c.Series {
		items := make([]opts.BarData, 0, len(s.Values))
		for _, v := range s.Values {
			items = append(items, opts.BarData{Value: v})
		}
		bar.AddSeries(s.Name, items,
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color:       s.Fill,
				BorderColor: s.Border,
				BorderWidth: float32(s.BorderWidth),
			}),
			charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: percent(1 - s.CategoryPercentage)}),
			withBarWidth(percent(barBandShare(s, len(c.Series)))),
		)
	}

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return fmt.Errorf("failed to render interactive chart: %w", err)
	}
	es.html = buf.Bytes()
	return nil
}

// HTML returns the last drawn chart page, or nil if nothing was drawn.
func (es *EChartsSurface) HTML() []byte {
	return es.html
}

// barBandShare is the fraction of a category band taken by one bar of s when
// n series share the band.
func barBandShare(s Series, n int) float64 {
	if n == 0 {
		return 0
	}
	return s.CategoryPercentage * s.BarPercentage / float64(n)
}

func withBarWidth(width string) charts.SeriesOpts {
	return func(s *charts.SingleSeries) {
		s.BarWidth = width
	}
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}
