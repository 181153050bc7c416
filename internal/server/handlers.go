// Package server exposes the estimate payload and the dashboard over HTTP.
package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/user/cis-bias-go/internal/estimate"
	"github.com/user/cis-bias-go/internal/fetcher"
	"github.com/user/cis-bias-go/internal/models"
	"github.com/user/cis-bias-go/internal/report"
	"k8s.io/klog/v2"
)

// internalOrigin is the origin the dashboard pages fetch /api/data from.
// Requests to it are served by the same echo instance and never reach the
// network, whatever Host the client sent.
const internalOrigin = "http://cis-dashboard.internal"

type Handler struct {
	studyPath  string
	catalogDir string
	now        func() time.Time
}

// NewHandler serves the study at studyPath by default. Other studies are
// looked up by id in catalogDir through the "study" query parameter.
func NewHandler(studyPath, catalogDir string) *Handler {
	return &Handler{studyPath: studyPath, catalogDir: catalogDir, now: time.Now}
}

// New returns an echo instance with the dashboard routes and middleware.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	h.RegisterRoutes(e)
	return e
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.GetDashboard)
	e.GET("/chart", h.GetChart)
	e.GET("/report/download", h.DownloadReport)

	api := e.Group("/api")
	api.GET("/data", h.GetData)
	api.GET("/studies", h.GetStudies)
}

// studyFile resolves a study id to its file. An empty id is the default study.
func (h *Handler) studyFile(id string) (string, error) {
	if id == "" {
		return h.studyPath, nil
	}
	catalog, err := estimate.LoadCatalog(h.catalogDir)
	if err != nil {
		return "", err
	}
	return catalog.Path(id)
}

func (h *Handler) compute(c echo.Context) models.Payload {
	path, err := h.studyFile(c.QueryParam("study"))
	if err != nil {
		return estimate.Failure(err)
	}
	return estimate.ComputeFile(path, h.now())
}

// --- HANDLERS ---

// GetData computes the estimate payload. Failures are reported inside the
// payload with a 200 status.
func (h *Handler) GetData(c echo.Context) error {
	payload := h.compute(c)
	if !payload.Succeeded() {
		klog.FromContext(c.Request().Context()).Error(nil, "Estimate failed", "study", c.QueryParam("study"), "message", payload.Message)
	}
	return c.JSON(http.StatusOK, payload)
}

// GetStudies lists the studies of the catalog, most recent first.
func (h *Handler) GetStudies(c echo.Context) error {
	catalog, err := estimate.LoadCatalog(h.catalogDir)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, catalog.Studies())
}

// loadPage runs the dashboard load against this server's data endpoint.
func (h *Handler) loadPage(c echo.Context) (*report.Page, error) {
	client := &http.Client{Transport: inProcessTransport{handler: c.Echo()}}
	f, err := fetcher.New(internalOrigin, client)
	if err != nil {
		return nil, err
	}
	if id := c.QueryParam("study"); id != "" {
		f = f.WithQuery(url.Values{"study": {id}})
	}
	page := report.NewPage()
	// Load failures are logged by the fetcher and leave the page placeholders.
	_ = f.Load(c.Request().Context(), page.KPI, page)
	return page, nil
}

// GetDashboard renders the full dashboard page.
func (h *Handler) GetDashboard(c echo.Context) error {
	page, err := h.loadPage(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	adapter := &report.HTMLReportAdapter{Now: h.now}
	if err := adapter.PrepareData(page); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	var buf bytes.Buffer
	if _, err := adapter.WriteTo(&buf); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// GetChart renders only the interactive chart.
func (h *Handler) GetChart(c echo.Context) error {
	page, err := h.loadPage(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !page.Drawn() {
		return c.String(http.StatusServiceUnavailable, "Gráfico no disponible.")
	}
	return c.HTMLBlob(http.StatusOK, page.Interactive.HTML())
}

// DownloadReport serves the computed payload as a JSON attachment.
func (h *Handler) DownloadReport(c echo.Context) error {
	payload := h.compute(c)
	if !payload.Succeeded() {
		return c.String(http.StatusNotFound, "Informe no generado. Ejecute el análisis primero.")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, reportFileName(&payload)))
	return c.JSONPretty(http.StatusOK, payload, "  ")
}

func reportFileName(p *models.Payload) string {
	if p.Meta != nil && p.Meta.StudyID != "" {
		return fmt.Sprintf("analisis_%s.json", p.Meta.StudyID)
	}
	return "analisis.json"
}
