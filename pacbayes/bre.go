package pacbayes

import (
	"math"

	"pacbayes_lib/utils"

	"gonum.org/v1/gonum/floats"
)

// BRE computes the bound regularization term
//
//	sqrt((KL + 2·ln(P·ln(bound/λ)) + ln(π²m/(6δ))) / (2(m−1)))
//
// where the middle term pays for choosing λ on a grid of Precision
// candidates below Bound.
type BRE struct {
	Precision float64 // P
	ConfParam float64 // δ
	Bound     float64 // prior variance ceiling
	DataSize  int     // m
}

// BREResult is one evaluation of the term and its ingredients.
type BREResult struct {
	Value  float64
	KL     float64
	Lambda float64 // transformed prior variance
	LogLog float64
}

// NewBRE validates the hyperparameters.
func NewBRE(precision, confParam, bound float64, dataSize int) (*BRE, error) {
	b := &BRE{Precision: precision, ConfParam: confParam, Bound: bound, DataSize: dataSize}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks 0<δ<1, m≥2, P>0 and bound>0.
func (b *BRE) Validate() error {
	return utils.ValidateBoundParams(b.ConfParam, b.Precision, b.Bound, b.DataSize)
}

// PriorVariance maps the raw prior parameter to clamp(exp(2·λ_raw), 0, bound).
func (b *BRE) PriorVariance(lambdaRaw float64) float64 {
	return math.Min(math.Max(math.Exp(2*lambdaRaw), 0), b.Bound)
}

// LogLog is the quantization correction 2·ln(P·ln(bound/λ)). It is
// undefined for λ ≥ bound.
func (b *BRE) LogLog(lambda float64) (float64, error) {
	if !(lambda > 0) || !(lambda < b.Bound) {
		return 0, &utils.NumericDomainError{Op: "bre: ln(bound/λ) with λ outside (0, bound)", Value: lambda}
	}
	return 2 * math.Log(b.Precision*math.Log(b.Bound/lambda)), nil
}

// LogTerm is the confidence term ln(π²m/(6δ)).
func (b *BRE) LogTerm() float64 {
	return math.Log(math.Pi * math.Pi * float64(b.DataSize) / (6 * b.ConfParam))
}

// Radicand returns KL + LogLog + LogTerm, the numerator of the BRE term.
func (b *BRE) Radicand(kl, lambda float64) (float64, error) {
	ll, err := b.LogLog(lambda)
	if err != nil {
		return 0, err
	}
	s := kl + ll + b.LogTerm()
	if !(s >= 0) || math.IsInf(s, 0) {
		return 0, &utils.NumericDomainError{Op: "bre: radicand", Value: s}
	}
	return s, nil
}

// Term evaluates the BRE term for a given KL and prior variance.
func (b *BRE) Term(kl, lambda float64) (float64, error) {
	s, err := b.Radicand(kl, lambda)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(s / (2 * float64(b.DataSize-1))), nil
}

// Evaluate computes the BRE term at the current posterior. If grads is
// not nil it is overwritten with the gradient of the term with respect to
// Mean, SigmaRaw and LambdaRaw.
func (b *BRE) Evaluate(post *Posterior, grads *Gradients) (BREResult, error) {
	if err := post.Validate(); err != nil {
		return BREResult{}, err
	}
	lambda := b.PriorVariance(post.LambdaRaw)
	sigma := post.Variances()
	kl, err := KLDivergence(lambda, sigma, post.Mean, post.Params0)
	if err != nil {
		return BREResult{}, err
	}
	ll, err := b.LogLog(lambda)
	if err != nil {
		return BREResult{}, err
	}
	value, err := b.Term(kl, lambda)
	if err != nil {
		return BREResult{}, err
	}
	res := BREResult{Value: value, KL: kl, Lambda: lambda, LogLog: ll}
	if grads == nil {
		return res, nil
	}
	if !(value > 0) {
		return res, &utils.NumericDomainError{Op: "bre: gradient at zero", Value: value}
	}

	dKLdLambda, dKLdSigma, dKLdW, err := KLGradient(lambda, sigma, post.Mean, post.Params0)
	if err != nil {
		return res, err
	}
	if len(grads.Mean) != post.Dim() || len(grads.Sigma) != post.Dim() {
		return res, &utils.ConfigurationError{Field: "gradients", Reason: "buffer does not match posterior dimension"}
	}
	grads.Zero()
	// d bre / d radicand
	outer := 1 / (4 * float64(b.DataSize-1) * value)

	floats.AddScaled(grads.Mean, outer, dKLdW)
	for i, s := range sigma {
		// dσ/dσ_raw = 2σ
		grads.Sigma[i] += outer * dKLdSigma[i] * 2 * s
	}
	dLogLog := -2 / (lambda * math.Log(b.Bound/lambda))
	// λ sits strictly inside (0, bound) here, so the clamp passes the
	// gradient of exp(2·λ_raw) through unchanged.
	grads.Lambda += outer * (dKLdLambda + dLogLog) * 2 * lambda
	return res, nil
}
