// Package estimate computes the dashboard payload from a CIS study: the
// direct vote, the official estimate and a recall-corrected estimate.
package estimate

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/user/cis-bias-go/internal/models"
	"gopkg.in/yaml.v3"
)

const EngineVersion = "0.1.0-go"

// Study is the input of one estimate, usually read from a YAML file.
type Study struct {
	ID      string   `yaml:"study_id"`
	Month   string   `yaml:"month"`
	Parties []string `yaml:"parties"`

	// PreviousResult is the share each party got at the last general election.
	PreviousResult map[string]float64 `yaml:"previous_result"`
	// RecalledVote is the share of respondents recalling a vote for the party
	// at that election.
	RecalledVote map[string]float64 `yaml:"recalled_vote"`
	// Fidelity is a per-party loyalty adjustment, 1.0 when absent.
	Fidelity map[string]float64 `yaml:"fidelity"`
	// DirectVote is the vote intention plus sympathy published by the CIS.
	DirectVote map[string]float64 `yaml:"direct_vote"`
	// Official is the CIS published estimate.
	Official map[string]float64 `yaml:"official"`
}

var partyAliases = map[string]string{
	"CCA":                "CC",
	"COALICIÓN CANARIA":  "CC",
	"PNV":                "EAJ-PNV",
	"BILDU":              "EH BILDU",
	"SE ACABÓ LA FIESTA": "SALF",
}

// NormalizeParty maps a party name as printed in CIS tables to its label.
func NormalizeParty(name string) string {
	key := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(name, "*", "")))
	if alias, ok := partyAliases[key]; ok {
		return alias
	}
	if strings.Contains(key, "FIESTA") {
		return "SALF"
	}
	return key
}

func normalizeKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[NormalizeParty(k)] = v
	}
	return out
}

// LoadStudy reads and validates a study file.
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read study file %s: %w", path, err)
	}
	return ParseStudy(data)
}

// ParseStudy decodes a YAML study and normalizes its party names.
func ParseStudy(data []byte) (*Study, error) {
	var s Study
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse study: %w", err)
	}
	if len(s.Parties) == 0 {
		return nil, fmt.Errorf("study %q lists no parties", s.ID)
	}

	for i, p := range s.Parties {
		s.Parties[i] = NormalizeParty(p)
	}
	s.PreviousResult = normalizeKeys(s.PreviousResult)
	s.RecalledVote = normalizeKeys(s.RecalledVote)
	s.Fidelity = normalizeKeys(s.Fidelity)
	s.DirectVote = normalizeKeys(s.DirectVote)
	s.Official = normalizeKeys(s.Official)

	for _, p := range s.Parties {
		if _, ok := s.PreviousResult[p]; !ok {
			return nil, fmt.Errorf("study %q: no previous result for %s", s.ID, p)
		}
		if _, ok := s.RecalledVote[p]; !ok {
			return nil, fmt.Errorf("study %q: no recalled vote for %s", s.ID, p)
		}
	}
	return &s, nil
}

// KFactors returns, per party, the ratio between the real previous result and
// the recalled vote. Recall below one point is clamped to one.
func (s *Study) KFactors() map[string]float64 {
	k := make(map[string]float64, len(s.Parties))
	for _, p := range s.Parties {
		k[p] = s.PreviousResult[p] / math.Max(s.RecalledVote[p], 1.0)
	}
	return k
}

// Adjusted returns the recall-corrected estimate, renormalized to 100 and
// rounded to one decimal.
func (s *Study) Adjusted() map[string]float64 {
	k := s.KFactors()
	raw := make(map[string]float64, len(s.Parties))
	total := 0.0
	for _, p := range s.Parties {
		fidelity, ok := s.Fidelity[p]
		if !ok {
			fidelity = 1.0
		}
		raw[p] = s.DirectVote[p] * k[p] * fidelity
		total += raw[p]
	}

	final := make(map[string]float64, len(raw))
	for p, v := range raw {
		final[p] = math.Round(v*100/math.Max(total, 1.0)*10) / 10
	}
	return final
}

// Compute builds the payload for s. Parties without a published figure get 0.
func Compute(s *Study, now time.Time) models.Payload {
	adjusted := s.Adjusted()

	payload := models.Payload{
		Status: models.StatusSuccess,
		Labels: append([]string(nil), s.Parties...),
		Datasets: models.Datasets{
			Raw:       make([]float64, 0, len(s.Parties)),
			Official:  make([]float64, 0, len(s.Parties)),
			Benedicto: make([]float64, 0, len(s.Parties)),
		},
		Meta: &models.Meta{
			StudyID:       s.ID,
			Month:         s.Month,
			KFactors:      s.KFactors(),
			EngineVersion: EngineVersion,
			GeneratedAt:   now.UTC(),
		},
	}
	for _, p := range s.Parties {
		payload.Datasets.Raw = append(payload.Datasets.Raw, s.DirectVote[p])
		payload.Datasets.Official = append(payload.Datasets.Official, s.Official[p])
		payload.Datasets.Benedicto = append(payload.Datasets.Benedicto, adjusted[p])
	}
	return payload
}

// Failure wraps err in an error payload.
func Failure(err error) models.Payload {
	return models.Payload{Status: models.StatusError, Message: err.Error()}
}

// ComputeFile loads the study at path and computes its payload. Any failure
// is reported inside the payload.
func ComputeFile(path string, now time.Time) models.Payload {
	s, err := LoadStudy(path)
	if err != nil {
		return Failure(err)
	}
	return Compute(s, now)
}
