package pacbayes

import (
	"fmt"
	"math"

	"pacbayes_lib/utils"

	"gonum.org/v1/gonum/floats"
)

// KLDivergence is KL(N(w, diag σ) ‖ N(w₀, λI)):
//
//	(‖σ‖₁/λ + ‖w−w₀‖²/λ − D + D·ln λ − Σ ln σᵢ) / 2
func KLDivergence(lambda float64, sigma, w, w0 []float64) (float64, error) {
	if err := checkKLDomain(lambda, sigma, w, w0); err != nil {
		return 0, err
	}
	d := float64(len(sigma))
	tr := floats.Sum(sigma) / lambda
	l2 := sqDist(w, w0) / lambda
	logdetPrior := d * math.Log(lambda)
	logdetPost := 0.0
	for _, s := range sigma {
		logdetPost += math.Log(s)
	}
	return (tr + l2 - d + logdetPrior - logdetPost) / 2, nil
}

// KLGradient returns the partial derivatives of KLDivergence with respect
// to λ, every σᵢ and every wᵢ.
func KLGradient(lambda float64, sigma, w, w0 []float64) (dLambda float64, dSigma, dW []float64, err error) {
	if err := checkKLDomain(lambda, sigma, w, w0); err != nil {
		return 0, nil, nil, err
	}
	d := float64(len(sigma))
	dSigma = make([]float64, len(sigma))
	for i, s := range sigma {
		dSigma[i] = (1/lambda - 1/s) / 2
	}
	dW = make([]float64, len(w))
	floats.SubTo(dW, w, w0)
	floats.Scale(1/lambda, dW)
	dLambda = (-(floats.Sum(sigma)+sqDist(w, w0))/(lambda*lambda) + d/lambda) / 2
	return dLambda, dSigma, dW, nil
}

func checkKLDomain(lambda float64, sigma, w, w0 []float64) error {
	if len(sigma) != len(w) || len(w) != len(w0) {
		return &utils.ConfigurationError{
			Field:  "kl",
			Reason: fmt.Sprintf("sigma, w, w0 have lengths %d, %d, %d", len(sigma), len(w), len(w0)),
		}
	}
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return &utils.NumericDomainError{Op: "kl: prior variance", Value: lambda}
	}
	for _, s := range sigma {
		if !(s > 0) || math.IsInf(s, 0) {
			return &utils.NumericDomainError{Op: "kl: posterior variance", Value: s}
		}
	}
	return nil
}

func sqDist(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	d := floats.Distance(a, b, 2)
	return d * d
}
