// Package fetcher loads the dashboard payload and dispatches it to the KPI
// updater and the chart renderer.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/user/cis-bias-go/internal/chart"
	"github.com/user/cis-bias-go/internal/kpi"
	"github.com/user/cis-bias-go/internal/models"
	"k8s.io/klog/v2"
)

// Endpoint is the fixed path of the data endpoint, relative to the page origin.
const Endpoint = "/api/data"

// StatusError is returned when the endpoint answers with a non-success payload.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payload status %q: %s", e.Status, e.Message)
}

// Fetcher retrieves the payload from a single endpoint. It never retries.
type Fetcher struct {
	client   *http.Client
	endpoint string
}

// New returns a Fetcher for the data endpoint under baseURL. A nil client
// means http.DefaultClient.
func New(baseURL string, client *http.Client) (*Fetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	ref, _ := url.Parse(Endpoint)
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, endpoint: base.ResolveReference(ref).String()}, nil
}

// WithQuery returns a copy of f whose requests carry q. The endpoint path
// stays fixed.
func (f *Fetcher) WithQuery(q url.Values) *Fetcher {
	u, _ := url.Parse(f.endpoint)
	u.RawQuery = q.Encode()
	return &Fetcher{client: f.client, endpoint: u.String()}
}

// URL returns the resolved endpoint address.
func (f *Fetcher) URL() string {
	return f.endpoint
}

// Fetch performs one GET against the endpoint and decodes the payload.
// A payload whose status is not "success" is returned together with a
// *StatusError.
func (f *Fetcher) Fetch(ctx context.Context) (*models.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", f.endpoint, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", f.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", f.endpoint, err)
	}

	// The server reports application errors inside the JSON body, so the
	// body is decoded whatever the HTTP status.
	var payload models.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("endpoint %s returned %s: %w", f.endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("invalid JSON from %s: %w", f.endpoint, err)
	}

	if !payload.Succeeded() {
		return &payload, &StatusError{Status: payload.Status, Message: payload.Message}
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("malformed payload from %s: %w", f.endpoint, err)
	}
	return &payload, nil
}

// Load fetches the payload and, on success, updates the KPI element and then
// draws the chart. On failure a diagnostic is logged, neither target is
// touched, and the error is returned.
func (f *Fetcher) Load(ctx context.Context, el kpi.Element, surface chart.Surface) error {
	log := klog.FromContext(ctx)

	payload, err := f.Fetch(ctx)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			log.Error(err, "Error fetching data", "endpoint", f.endpoint, "message", statusErr.Message)
		} else {
			log.Error(err, "Network error", "endpoint", f.endpoint)
		}
		return err
	}

	if kpi.Update(payload, el) {
		log.V(2).Info("updated KPI", "element", kpi.ElementID)
	} else {
		log.V(2).Info("PSOE or PP missing from labels, KPI left unchanged", "labels", payload.Labels)
	}

	if err := chart.Render(payload, surface); err != nil {
		log.Error(err, "Chart rendering failed", "element", chart.ElementID)
		return err
	}
	log.V(2).Info("rendered chart", "categories", len(payload.Labels))
	return nil
}
