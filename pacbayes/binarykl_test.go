package pacbayes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryKL(t *testing.T) {
	assert.Equal(t, 0.0, BinaryKL(0.3, 0.3))
	assert.InDelta(t, math.Log(2), BinaryKL(0, 0.5), 1e-15)
	assert.InDelta(t, 0.5*math.Log(0.5/0.25)+0.5*math.Log(0.5/0.75), BinaryKL(0.5, 0.25), 1e-15)
	assert.True(t, math.IsInf(BinaryKL(0.5, 1), 1))
	assert.True(t, math.IsInf(BinaryKL(0.5, 0), 1))
}

func TestInverseKL(t *testing.T) {
	for _, tc := range []struct{ q, c float64 }{
		{0, 0.01}, {0.1, 0.05}, {0.3, 0.001}, {0.9, 0.2}, {0.02, 1e-4},
	} {
		p, err := InverseKL(tc.q, tc.c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, tc.q)
		assert.InDelta(t, tc.c, BinaryKL(tc.q, p), 1e-9, "%+v", tc)
	}
	p, err := InverseKL(0.4, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)

	p, err = InverseKL(0.5, 100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func TestInverseKLZeroErrorFloor(t *testing.T) {
	c := math.Log(2/0.01) / 1000
	p, err := InverseKL(0, c)
	require.NoError(t, err)
	assert.InDelta(t, 0.005284306039497477, p, 1e-12)
	assert.InDelta(t, 1-math.Exp(-c), p, 1e-12)
}

func TestInverseKLDomain(t *testing.T) {
	_, err := InverseKL(-0.1, 1)
	assert.Error(t, err)
	_, err = InverseKL(0.1, math.NaN())
	assert.Error(t, err)
}
