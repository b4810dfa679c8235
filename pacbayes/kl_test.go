package pacbayes

import (
	"errors"
	"math"
	"testing"

	"pacbayes_lib/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestKLZeroAtPrior(t *testing.T) {
	for _, d := range []int{1, 2, 7, 100} {
		for _, lambda := range []float64{0.01, 1, 3.5} {
			w := make([]float64, d)
			for i := range w {
				w[i] = float64(i) * 0.3
			}
			kl, err := KLDivergence(lambda, fill(d, lambda), w, append([]float64(nil), w...))
			require.NoError(t, err)
			assert.InDelta(t, 0, kl, 1e-12, "d=%d lambda=%g", d, lambda)
		}
	}
}

func TestKLScenarioA(t *testing.T) {
	kl, err := KLDivergence(1.0, []float64{1, 1}, []float64{0, 0}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, kl)
}

func TestKLIncreasesWithMeanDistance(t *testing.T) {
	sigma := []float64{0.5, 0.5, 0.5}
	w0 := []float64{0, 0, 0}
	prev := 0.0
	for i, shift := range []float64{0.1, 0.2, 0.5, 1, 3} {
		kl, err := KLDivergence(0.5, sigma, fill(3, shift), w0)
		require.NoError(t, err)
		assert.Greater(t, kl, 0.0)
		if i > 0 {
			assert.Greater(t, kl, prev)
		}
		prev = kl
	}
}

func TestKLDomainErrors(t *testing.T) {
	w := []float64{1, 2}
	var numErr *utils.NumericDomainError
	_, err := KLDivergence(0, []float64{1, 1}, w, w)
	assert.True(t, errors.As(err, &numErr))
	_, err = KLDivergence(-1, []float64{1, 1}, w, w)
	assert.True(t, errors.As(err, &numErr))
	_, err = KLDivergence(1, []float64{1, 0}, w, w)
	assert.True(t, errors.As(err, &numErr))
	_, err = KLDivergence(1, []float64{1, math.NaN()}, w, w)
	assert.True(t, errors.As(err, &numErr))

	var cfgErr *utils.ConfigurationError
	_, err = KLDivergence(1, []float64{1}, w, w)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestKLGradientMatchesFiniteDifference(t *testing.T) {
	w0 := []float64{0.1, -0.4, 0.3}
	// x = [λ, σ..., w...]
	x := []float64{0.2, 0.05, 0.3, 0.7, 0.5, -0.1, 0.9}
	f := func(x []float64) float64 {
		kl, err := KLDivergence(x[0], x[1:4], x[4:7], w0)
		if err != nil {
			panic(err)
		}
		return kl
	}
	want := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})

	dLambda, dSigma, dW, err := KLGradient(x[0], x[1:4], x[4:7], w0)
	require.NoError(t, err)
	got := append(append([]float64{dLambda}, dSigma...), dW...)
	assert.InDeltaSlice(t, want, got, 1e-5)
}
