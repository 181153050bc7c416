package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/user/cis-bias-go/internal/chart"
	"github.com/user/cis-bias-go/internal/kpi"
	"github.com/user/cis-bias-go/internal/models"
	"k8s.io/klog/v2"
)

type fakeElement struct {
	text  string
	class string
	calls int
}

func (f *fakeElement) SetText(text string)   { f.text = text; f.calls++ }
func (f *fakeElement) SetClass(class string) { f.class = class; f.calls++ }

type fakeSurface struct {
	charts []chart.BarChart
}

func (f *fakeSurface) Draw(c chart.BarChart) error {
	f.charts = append(f.charts, c)
	return nil
}

// newTestContext returns a context whose logger records error diagnostics.
func newTestContext(t *testing.T) (context.Context, *[]string) {
	t.Helper()
	var errs []string
	logger := funcr.New(func(prefix, args string) {
		if strings.Contains(args, `"error"`) || strings.Contains(args, `"err"`) {
			errs = append(errs, args)
		}
	}, funcr.Options{LogCaller: funcr.None, Verbosity: 2})
	return klog.NewContext(context.Background(), logger), &errs
}

func serveJSON(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Endpoint {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	f, err := New(baseURL, nil)
	if err != nil {
		t.Fatalf("New(%q) error = %v", baseURL, err)
	}
	return f
}

const successBody = `{
  "status": "success",
  "labels": ["PSOE", "PP", "VOX"],
  "datasets": {
    "raw": [27.1, 18.2, 10.3],
    "official": [25.0, 22.0, 12.2],
    "benedicto": [22.3, 22.0, 15.1]
  }
}`

func TestNew(t *testing.T) {
	f := newFetcher(t, "http://localhost:5000/dashboard/")
	if f.URL() != "http://localhost:5000/api/data" {
		t.Errorf("URL() = %q", f.URL())
	}
	if _, err := New("localhost:5000", nil); err == nil {
		t.Error("New() expected error for relative base URL")
	}
}

func TestWithQuery(t *testing.T) {
	f := newFetcher(t, "http://localhost:5000/")
	q := f.WithQuery(url.Values{"study": {"3536"}})
	if q.URL() != "http://localhost:5000/api/data?study=3536" {
		t.Errorf("URL() = %q", q.URL())
	}
	if f.URL() != "http://localhost:5000/api/data" {
		t.Errorf("WithQuery modified the original fetcher: %q", f.URL())
	}
	if got := f.WithQuery(nil).URL(); got != f.URL() {
		t.Errorf("empty query URL() = %q", got)
	}
}

func TestLoadSuccess(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, successBody)
	ctx, errs := newTestContext(t)

	el := &fakeElement{text: "--", class: "value"}
	surface := &fakeSurface{}
	if err := newFetcher(t, srv.URL).Load(ctx, el, surface); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if el.text != "+2.7%" || el.class != kpi.ClassPositive {
		t.Errorf("KPI = %q/%q, want +2.7%%/%s", el.text, el.class, kpi.ClassPositive)
	}
	if len(surface.charts) != 1 {
		t.Fatalf("chart drawn %d times, want 1", len(surface.charts))
	}
	c := surface.charts[0]
	if len(c.Categories) != 3 || len(c.Series) != 3 {
		t.Errorf("chart shape = %d categories, %d series", len(c.Categories), len(c.Series))
	}
	for _, s := range c.Series {
		if len(s.Values) != 3 {
			t.Errorf("series %q has %d values, want 3", s.Name, len(s.Values))
		}
	}
	if len(*errs) != 0 {
		t.Errorf("unexpected diagnostics: %v", *errs)
	}
}

func TestLoadMissingLabelStillDrawsChart(t *testing.T) {
	body := `{"status":"success","labels":["PSOE","VOX"],"datasets":{"raw":[1,2],"official":[3,4],"benedicto":[5,6]}}`
	srv := serveJSON(t, http.StatusOK, body)
	ctx, _ := newTestContext(t)

	el := &fakeElement{text: "--", class: "value"}
	surface := &fakeSurface{}
	if err := newFetcher(t, srv.URL).Load(ctx, el, surface); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if el.calls != 0 || el.text != "--" {
		t.Errorf("KPI element modified: %+v", el)
	}
	if len(surface.charts) != 1 {
		t.Errorf("chart drawn %d times, want 1", len(surface.charts))
	}
}

func TestLoadFailures(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantStatus bool
	}{
		{
			name:       "application error",
			status:     http.StatusOK,
			body:       `{"status":"error","message":"No such file: 3540_avance.xlsx"}`,
			wantStatus: true,
		},
		{
			name:   "malformed JSON",
			status: http.StatusOK,
			body:   `{"status": "success", "labels": [`,
		},
		{
			name:   "html error page",
			status: http.StatusInternalServerError,
			body:   `<html><body>Internal Server Error</body></html>`,
		},
		{
			name:   "mismatched series",
			status: http.StatusOK,
			body:   `{"status":"success","labels":["PSOE","PP"],"datasets":{"raw":[1,2],"official":[3],"benedicto":[5,6]}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serveJSON(t, tc.status, tc.body)
			ctx, errs := newTestContext(t)

			el := &fakeElement{text: "--", class: "value"}
			surface := &fakeSurface{}
			err := newFetcher(t, srv.URL).Load(ctx, el, surface)
			if err == nil {
				t.Fatal("Load() expected error")
			}

			var statusErr *StatusError
			if got := errors.As(err, &statusErr); got != tc.wantStatus {
				t.Errorf("errors.As(StatusError) = %v, want %v (err: %v)", got, tc.wantStatus, err)
			}
			if el.calls != 0 {
				t.Error("KPI element was modified on failure")
			}
			if len(surface.charts) != 0 {
				t.Error("chart was drawn on failure")
			}
			if len(*errs) == 0 {
				t.Error("no diagnostic was logged")
			}
		})
	}
}

func TestLoadNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	ctx, errs := newTestContext(t)
	el := &fakeElement{}
	surface := &fakeSurface{}
	if err := newFetcher(t, baseURL).Load(ctx, el, surface); err == nil {
		t.Fatal("Load() expected error for closed server")
	}
	if len(*errs) != 1 || !strings.Contains((*errs)[0], "Network error") {
		t.Errorf("diagnostics = %v, want one network error", *errs)
	}
	if el.calls != 0 || len(surface.charts) != 0 {
		t.Error("targets touched after network error")
	}
}

func TestFetchStatusErrorKeepsPayload(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, `{"status":"error","message":"boom"}`)
	payload, err := newFetcher(t, srv.URL).Fetch(logr.NewContext(context.Background(), logr.Discard()))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Fetch() error = %v, want *StatusError", err)
	}
	if statusErr.Message != "boom" {
		t.Errorf("Message = %q, want boom", statusErr.Message)
	}
	if payload == nil || payload.Status != models.StatusError {
		t.Errorf("payload = %+v, want error status", payload)
	}
}
