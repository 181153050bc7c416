// Package chart builds the grouped bar chart comparing the three vote
// estimates and draws it onto an output surface.
package chart

import (
	"fmt"
	"strconv"

	"github.com/user/cis-bias-go/internal/models"
)

const (
	// ElementID identifies the chart drawing surface on the dashboard page.
	ElementID = "mainChart"

	YAxisTitle = "Estimación de Voto (%)"
)

// Series is one named, styled sequence of bars, one value per category.
type Series struct {
	Name               string    `json:"name"`
	Values             []float64 `json:"values"`
	Fill               string    `json:"fill"`
	Border             string    `json:"border"`
	BorderWidth        float64   `json:"border_width"`
	BarPercentage      float64   `json:"bar_percentage"`
	CategoryPercentage float64   `json:"category_percentage"`
}

// Tooltip returns the hover text for the i-th bar of the series.
func (s Series) Tooltip(i int) string {
	return fmt.Sprintf("%s: %s%%", s.Name, strconv.FormatFloat(s.Values[i], 'f', -1, 64))
}

// BarChart is a fully configured grouped bar chart, independent of any
// rendering backend.
type BarChart struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Categories  []string `json:"categories"`
	Series      []Series `json:"series"`
	YAxisTitle  string   `json:"y_axis_title"`
	BeginAtZero bool     `json:"begin_at_zero"`
}

// Surface is anything a BarChart can be drawn onto.
type Surface interface {
	Draw(c BarChart) error
}

// Build configures the dashboard chart from a payload. The series values are
// passed through untouched.
func Build(p *models.Payload) BarChart {
	title := "Estimación de voto"
	var subtitle string
	if p.Meta != nil {
		if p.Meta.StudyID != "" {
			title = fmt.Sprintf("Estimación de voto · Estudio %s", p.Meta.StudyID)
		}
		subtitle = p.Meta.Month
	}

	return BarChart{
		Title:      title,
		Subtitle:   subtitle,
		Categories: p.Labels,
		Series: []Series{
			{
				Name:               "Voto Directo (SIN COCINA)",
				Values:             p.Datasets.Raw,
				Fill:               "#e5e7eb",
				Border:             "#d1d5db",
				BorderWidth:        1,
				BarPercentage:      0.6,
				CategoryPercentage: 0.8,
			},
			{
				Name:               "CIS Oficial (Tezanos)",
				Values:             p.Datasets.Official,
				Fill:               "rgba(59, 130, 246, 0.2)",
				Border:             "#3b82f6",
				BorderWidth:        2,
				BarPercentage:      0.6,
				CategoryPercentage: 0.8,
			},
			{
				Name:               "Estimación Benedicto-Gemini",
				Values:             p.Datasets.Benedicto,
				Fill:               "rgba(16, 185, 129, 0.8)",
				Border:             "#059669",
				BorderWidth:        2,
				BarPercentage:      0.7, // wider so the adjusted estimate stands out
				CategoryPercentage: 0.8,
			},
		},
		YAxisTitle:  YAxisTitle,
		BeginAtZero: true,
	}
}

// Render builds the chart for p and draws it onto s.
func Render(p *models.Payload, s Surface) error {
	if err := s.Draw(Build(p)); err != nil {
		return fmt.Errorf("failed to draw chart: %w", err)
	}
	return nil
}
