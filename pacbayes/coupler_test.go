package pacbayes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoupleSigmaIsGradTimesNoise(t *testing.T) {
	g := []float64{0.5, -1.25, 3, 0}
	noise := []float64{1.5, 0.2, -0.7, 9}
	dst := NewGradients(4)
	require.NoError(t, GradientCoupler{}.Couple(dst, g, noise))
	for i := range g {
		assert.InDelta(t, g[i]*noise[i], dst.Sigma[i], 1e-6)
		assert.InDelta(t, g[i], dst.Mean[i], 1e-6)
	}
	assert.Equal(t, 0.0, dst.Lambda)
}

func TestCoupleAccumulates(t *testing.T) {
	dst := NewGradients(2)
	dst.Mean[0], dst.Sigma[1] = 1, 2
	require.NoError(t, GradientCoupler{}.Couple(dst, []float64{1, 1}, []float64{3, 4}))
	assert.Equal(t, []float64{2, 1}, dst.Mean)
	assert.Equal(t, []float64{3, 6}, dst.Sigma)
}

func TestCoupleLengthMismatch(t *testing.T) {
	assert.Error(t, GradientCoupler{}.Couple(NewGradients(2), []float64{1}, []float64{1, 2}))
}

func TestSumIsOrderIndependent(t *testing.T) {
	bre := &Gradients{Mean: []float64{0.1, 0.2}, Sigma: []float64{-0.3, 0.4}, Lambda: 0.7}
	nn := NewGradients(2)
	require.NoError(t, GradientCoupler{}.Couple(nn, []float64{1, -2}, []float64{0.5, 0.25}))

	a, b := NewGradients(2), NewGradients(2)
	require.NoError(t, Sum(a, bre, nn))
	require.NoError(t, Sum(b, nn, bre))
	assert.Equal(t, a, b)
	assert.InDeltaSlice(t, []float64{1.1, -1.8}, a.Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{0.2, -0.1}, a.Sigma, 1e-12)
	assert.InDelta(t, 0.7, a.Lambda, 1e-12)
}

func TestCheckFinite(t *testing.T) {
	g := NewGradients(2)
	assert.NoError(t, g.CheckFinite())
	g.Sigma[1] = 1 / zero()
	assert.Error(t, g.CheckFinite())
	g.Zero()
	g.Lambda = 0 / zero()
	assert.Error(t, g.CheckFinite())
}

func zero() float64 { return 0 }
