package pacbayes

import (
	"fmt"

	"pacbayes_lib/utils"

	"gonum.org/v1/gonum/floats"
)

// GradientCoupler routes the gradient of the sampled loss with respect to
// the sampled weights back to the posterior parameters:
//
//	Mean  += g
//	Sigma += g ⊙ noise
type GradientCoupler struct{}

// Couple adds the sampled-loss contribution into dst. dst is normally a
// buffer of its own that is later combined with the BRE gradients by Sum.
func (GradientCoupler) Couple(dst *Gradients, g, noise []float64) error {
	if len(g) != len(dst.Mean) || len(noise) != len(dst.Sigma) {
		return &utils.ConfigurationError{
			Field:  "coupler",
			Reason: fmt.Sprintf("gradient %d, noise %d, accumulator %d", len(g), len(noise), len(dst.Mean)),
		}
	}
	floats.Add(dst.Mean, g)
	scaled := make([]float64, len(g))
	floats.MulTo(scaled, g, noise)
	floats.Add(dst.Sigma, scaled)
	return nil
}
