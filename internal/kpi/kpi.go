// Package kpi computes the headline bias figure shown next to the chart.
package kpi

import (
	"fmt"
	"math"
	"math/big"

	"github.com/user/cis-bias-go/internal/models"
)

const (
	// ElementID identifies the page element holding the PSOE bias.
	ElementID = "bias-psoe"

	ClassPositive = "value positive"
	ClassWarning  = "value warning"
)

// Element is the page element the KPI is written into.
type Element interface {
	SetText(text string)
	SetClass(class string)
}

// Bias is the difference between the official estimate and the adjusted one,
// in percentage points, rounded to one decimal.
type Bias struct {
	Party string
	Value float64
}

// Text renders the bias with an explicit sign for positive values.
func (b Bias) Text() string {
	if b.Value > 0 {
		return fmt.Sprintf("+%.1f%%", b.Value)
	}
	return fmt.Sprintf("%.1f%%", b.Value)
}

// Class returns the CSS class for the bias. Zero counts as a warning.
func (b Bias) Class() string {
	if b.Value > 0 {
		return ClassPositive
	}
	return ClassWarning
}

// PSOEBias computes the official-minus-adjusted difference for PSOE. It
// reports false unless both PSOE and PP are present in the payload labels.
func PSOEBias(p *models.Payload) (Bias, bool) {
	psoeIdx := p.IndexOf("PSOE")
	ppIdx := p.IndexOf("PP")
	if psoeIdx == -1 || ppIdx == -1 {
		return Bias{}, false
	}
	if psoeIdx >= len(p.Datasets.Official) || psoeIdx >= len(p.Datasets.Benedicto) {
		return Bias{}, false
	}

	diff := p.Datasets.Official[psoeIdx] - p.Datasets.Benedicto[psoeIdx]
	return Bias{Party: "PSOE", Value: round1(diff)}, true
}

// Update writes the PSOE bias into el. The element is left untouched when the
// bias cannot be computed.
func Update(p *models.Payload, el Element) bool {
	bias, ok := PSOEBias(p)
	if !ok {
		return false
	}
	el.SetText(bias.Text())
	el.SetClass(bias.Class())
	return true
}

// round1 rounds to one decimal the exact binary value of v, halves away from
// zero. 0.35 is stored as 0.34999... and rounds to 0.3; 0.25 is exact and
// rounds to 0.3. The sign is kept, so small negatives give -0.
func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	x := new(big.Float).SetPrec(256).SetFloat64(math.Abs(v))
	x.Mul(x, big.NewFloat(10))
	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}
	r, _ := new(big.Float).SetInt(n).Float64()
	return math.Copysign(r/10, v)
}
