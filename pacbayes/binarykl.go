package pacbayes

import (
	"math"

	"pacbayes_lib/utils"
)

// inverseKLIters halves [q, 1] until the bracket is below float64 spacing.
const inverseKLIters = 100

// BinaryKL is kl(q‖p) between Bernoulli(q) and Bernoulli(p), with 0·ln 0 = 0.
func BinaryKL(q, p float64) float64 {
	kl := 0.0
	if q > 0 {
		if p <= 0 {
			return math.Inf(1)
		}
		kl += q * math.Log(q/p)
	}
	if q < 1 {
		if p >= 1 {
			return math.Inf(1)
		}
		kl += (1 - q) * math.Log((1-q)/(1-p))
	}
	return kl
}

// InverseKL returns the largest p in [q, 1] with kl(q‖p) ≤ c. It is the
// upper confidence limit on a Bernoulli mean given empirical mean q.
func InverseKL(q, c float64) (float64, error) {
	if !(q >= 0 && q <= 1) {
		return 0, &utils.NumericDomainError{Op: "inverse kl: empirical rate", Value: q}
	}
	if !(c >= 0) || math.IsInf(c, 0) {
		return 0, &utils.NumericDomainError{Op: "inverse kl: budget", Value: c}
	}
	if BinaryKL(q, 1) <= c {
		return 1, nil
	}
	lo, hi := q, 1.0
	for i := 0; i < inverseKLIters && hi-lo > 0; i++ {
		mid := (lo + hi) / 2
		if mid == lo || mid == hi {
			break
		}
		if BinaryKL(q, mid) > c {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo, nil
}
