// Package pacbayes optimizes and certifies a PAC-Bayes bound for a
// Gaussian posterior over the weights of a classifier.
//
// The posterior is N(Mean, diag(exp(2·SigmaRaw))); the prior is
// N(Params0, λ·I) with λ = clamp(exp(2·LambdaRaw), 0, bound).
package pacbayes

import (
	"fmt"
	"math"

	"pacbayes_lib/utils"
)

// Posterior holds the learned parameters and the fixed prior mean.
type Posterior struct {
	Params0   []float64 // trained point estimate, prior mean
	Mean      []float64 // posterior mean (flat_params)
	SigmaRaw  []float64 // posterior log-std; variance is exp(2·SigmaRaw)
	LambdaRaw float64   // prior log-std; variance is exp(2·LambdaRaw), clamped
}

// NewPosterior centres the posterior on the trained weights, starts the
// posterior log-std at |wᵢ| and the prior log-std at lambdaInit.
func NewPosterior(weights []float64, lambdaInit float64) (*Posterior, error) {
	if len(weights) == 0 {
		return nil, &utils.ConfigurationError{Field: "weights", Reason: "empty weight vector"}
	}
	p := &Posterior{
		Params0:   append([]float64(nil), weights...),
		Mean:      append([]float64(nil), weights...),
		SigmaRaw:  make([]float64, len(weights)),
		LambdaRaw: lambdaInit,
	}
	for i, w := range weights {
		p.SigmaRaw[i] = math.Abs(w)
	}
	return p, nil
}

// Dim is the parameter count D.
func (p *Posterior) Dim() int { return len(p.Mean) }

// Validate checks that every vector has length D.
func (p *Posterior) Validate() error {
	d := len(p.Mean)
	if d == 0 {
		return &utils.ConfigurationError{Field: "posterior", Reason: "empty mean"}
	}
	if len(p.SigmaRaw) != d || len(p.Params0) != d {
		return &utils.ConfigurationError{
			Field:  "posterior",
			Reason: fmt.Sprintf("mean has %d entries, sigma %d, prior mean %d", d, len(p.SigmaRaw), len(p.Params0)),
		}
	}
	return nil
}

// Variances returns exp(2·SigmaRaw).
func (p *Posterior) Variances() []float64 {
	out := make([]float64, len(p.SigmaRaw))
	for i, s := range p.SigmaRaw {
		out[i] = math.Exp(2 * s)
	}
	return out
}

// SampleInto writes Mean + noise ⊙ exp(SigmaRaw) into dst.
func (p *Posterior) SampleInto(dst, noise []float64) {
	for i, m := range p.Mean {
		dst[i] = m + noise[i]*math.Exp(p.SigmaRaw[i])
	}
}

// Clone deep-copies the posterior.
func (p *Posterior) Clone() *Posterior {
	return &Posterior{
		Params0:   append([]float64(nil), p.Params0...),
		Mean:      append([]float64(nil), p.Mean...),
		SigmaRaw:  append([]float64(nil), p.SigmaRaw...),
		LambdaRaw: p.LambdaRaw,
	}
}
