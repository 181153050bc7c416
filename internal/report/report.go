package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/cis-bias-go/internal/chart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/dashboard.html.tmpl
var templateFS embed.FS

const templateName = "dashboard.html.tmpl"

// ReportAdapter defines the interface for writing a loaded page in different formats.
type ReportAdapter interface {
	PrepareData(page *Page) error
	Write(outputFilePath string) error
}

// --- JSON Report Adapter ---

// JSONReportAdapter writes a snapshot of the page state as JSON.
type JSONReportAdapter struct {
	reportData []byte
}

type pageSnapshot struct {
	KPI   *Element        `json:"kpi"`
	Chart *chart.BarChart `json:"chart,omitempty"`
}

// PrepareData marshals the page's KPI element and chart configuration.
func (jra *JSONReportAdapter) PrepareData(page *Page) error {
	jsonData, err := json.MarshalIndent(pageSnapshot{KPI: page.KPI, Chart: page.Chart}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal page to JSON: %w", err)
	}
	jra.reportData = jsonData
	return nil
}

// Write saves the JSON report data to the specified output file.
func (jra *JSONReportAdapter) Write(outputFilePath string) error {
	return writeFile(outputFilePath, jra.reportData)
}

// --- HTML Report Adapter ---

// HTMLReportAdapter renders the dashboard page as a standalone HTML document.
type HTMLReportAdapter struct {
	Now func() time.Time

	reportBuf bytes.Buffer
}

// FuncMap returns the functions available to the dashboard template.
func FuncMap() template.FuncMap {
	title := cases.Title(language.Spanish)
	return template.FuncMap{
		"ToUpper":    strings.ToUpper,
		"Capitalize": title.String,
		"Tooltip": func(s chart.Series, i int) string {
			if i >= len(s.Values) {
				return ""
			}
			return s.Tooltip(i)
		},
		"Value": func(s chart.Series, i int) float64 {
			if i >= len(s.Values) {
				return 0
			}
			return s.Values[i]
		},
		"Percent": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 1, 64) + "%"
		},
		"FormatDateTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05 MST")
		},
	}
}

// PrepareData renders the page into the adapter's buffer.
func (hra *HTMLReportAdapter) PrepareData(page *Page) error {
	tmpl, err := template.New(templateName).Funcs(FuncMap()).ParseFS(templateFS, "templates/"+templateName)
	if err != nil {
		return fmt.Errorf("failed to parse HTML template %s: %w", templateName, err)
	}

	now := time.Now
	if hra.Now != nil {
		now = hra.Now
	}

	templateData := struct {
		KPI         *Element
		ChartID     string
		Chart       *chart.BarChart
		ChartHTML   string
		ChartPNG    template.URL
		GeneratedAt time.Time
	}{
		KPI:         page.KPI,
		ChartID:     chart.ElementID,
		Chart:       page.Chart,
		GeneratedAt: now().UTC(),
	}
	if page.Interactive != nil {
		templateData.ChartHTML = string(page.Interactive.HTML())
	}
	if page.Static != nil {
		if b64 := page.Static.Base64(); b64 != "" {
			templateData.ChartPNG = template.URL("data:image/png;base64," + b64)
		}
	}

	hra.reportBuf.Reset()
	if err := tmpl.Execute(&hra.reportBuf, templateData); err != nil {
		return fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return nil
}

// WriteTo copies the rendered page to w.
func (hra *HTMLReportAdapter) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(hra.reportBuf.Bytes())
	return int64(n), err
}

// Write saves the HTML report data to the specified output file.
func (hra *HTMLReportAdapter) Write(outputFilePath string) error {
	return writeFile(outputFilePath, hra.reportBuf.Bytes())
}

// --- PNG Report Adapter ---

// PNGReportAdapter writes the static chart image of a drawn page.
type PNGReportAdapter struct {
	image []byte
}

// PrepareData takes the page's static chart. The page must have been drawn.
func (pra *PNGReportAdapter) PrepareData(page *Page) error {
	if !page.Drawn() || page.Static == nil || len(page.Static.PNG()) == 0 {
		return errors.New("page has no chart to export")
	}
	pra.image = page.Static.PNG()
	return nil
}

// Write saves the chart image to the specified output file.
func (pra *PNGReportAdapter) Write(outputFilePath string) error {
	return writeFile(outputFilePath, pra.image)
}

// NewAdapter returns the adapter for format: "html", "json" or "png".
func NewAdapter(format string) (ReportAdapter, error) {
	switch format {
	case "html":
		return &HTMLReportAdapter{}, nil
	case "json":
		return &JSONReportAdapter{}, nil
	case "png":
		return &PNGReportAdapter{}, nil
	}
	return nil, fmt.Errorf("invalid report format '%s'. Must be 'html', 'json' or 'png'", format)
}

func writeFile(outputFilePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outputFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for report file %s: %w", outputFilePath, err)
	}
	return os.WriteFile(outputFilePath, data, 0644)
}
