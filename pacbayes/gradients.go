package pacbayes

import (
	"fmt"
	"math"

	"pacbayes_lib/utils"

	"gonum.org/v1/gonum/floats"
)

// Gradients is an explicit accumulator for the three learned parameter
// blocks. The training loop owns it and zeroes it at batch boundaries.
type Gradients struct {
	Mean   []float64
	Sigma  []float64
	Lambda float64
}

// NewGradients allocates a zeroed accumulator for D parameters.
func NewGradients(d int) *Gradients {
	return &Gradients{Mean: make([]float64, d), Sigma: make([]float64, d)}
}

// Zero resets every entry.
func (g *Gradients) Zero() {
	for i := range g.Mean {
		g.Mean[i] = 0
	}
	for i := range g.Sigma {
		g.Sigma[i] = 0
	}
	g.Lambda = 0
}

// Add accumulates o into g.
func (g *Gradients) Add(o *Gradients) error {
	if len(o.Mean) != len(g.Mean) || len(o.Sigma) != len(g.Sigma) {
		return &utils.ConfigurationError{
			Field:  "gradients",
			Reason: fmt.Sprintf("cannot add %d/%d entries into %d/%d", len(o.Mean), len(o.Sigma), len(g.Mean), len(g.Sigma)),
		}
	}
	floats.Add(g.Mean, o.Mean)
	floats.Add(g.Sigma, o.Sigma)
	g.Lambda += o.Lambda
	return nil
}

// Sum overwrites dst with the sum of parts.
func Sum(dst *Gradients, parts ...*Gradients) error {
	dst.Zero()
	for _, p := range parts {
		if err := dst.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// CheckFinite reports the first NaN or Inf entry as a NumericDomainError.
func (g *Gradients) CheckFinite() error {
	if bad(g.Lambda) {
		return &utils.NumericDomainError{Op: "gradient of prior log-std", Value: g.Lambda}
	}
	if floats.HasNaN(g.Mean) || floats.HasNaN(g.Sigma) {
		return &utils.NumericDomainError{Op: "gradient (NaN)", Value: math.NaN()}
	}
	for _, block := range [][]float64{g.Mean, g.Sigma} {
		for _, v := range block {
			if math.IsInf(v, 0) {
				return &utils.NumericDomainError{Op: "gradient (Inf)", Value: v}
			}
		}
	}
	return nil
}

func bad(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
