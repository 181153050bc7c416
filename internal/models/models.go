package models

import (
	"errors"
	"fmt"
	"time"
)

// StatusSuccess is the only status value that marks a payload as usable.
const StatusSuccess = "success"

// StatusError is the status the estimate engine reports on failure.
const StatusError = "error"

// ErrMismatchedSeries is returned when labels and datasets are not co-indexed.
var ErrMismatchedSeries = errors.New("labels and datasets have different lengths")

// Payload is the document served at /api/data and consumed by the dashboard.
type Payload struct {
	Status   string   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Labels   []string `json:"labels"`
	Datasets Datasets `json:"datasets"`
	Meta     *Meta    `json:"meta,omitempty"`
}

// Datasets holds the three series, each positionally aligned with Payload.Labels.
type Datasets struct {
	Raw       []float64 `json:"raw"`
	Official  []float64 `json:"official"`
	Benedicto []float64 `json:"benedicto"`
}

// Meta describes the study a payload was computed from.
type Meta struct {
	StudyID       string             `json:"study_id"`
	Month         string             `json:"month"`
	KFactors      map[string]float64 `json:"k_factors,omitempty"`
	EngineVersion string             `json:"engine_version,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at,omitempty"`
}

// Succeeded reports whether the payload carries usable data.
func (p *Payload) Succeeded() bool {
	return p.Status == StatusSuccess
}

// Validate checks that every series has one value per label.
func (p *Payload) Validate() error {
	n := len(p.Labels)
	series := []struct {
		name   string
		values []float64
	}{
		{"raw", p.Datasets.Raw},
		{"official", p.Datasets.Official},
		{"benedicto", p.Datasets.Benedicto},
	}
	for _, s := range series {
		if len(s.values) != n {
			return fmt.Errorf("%w: %d labels, %s has %d values", ErrMismatchedSeries, n, s.name, len(s.values))
		}
	}
	return nil
}

// IndexOf returns the position of label in Labels, or -1.
func (p *Payload) IndexOf(label string) int {
	for i, l := range p.Labels {
		if l == label {
			return i
		}
	}
	return -1
}
