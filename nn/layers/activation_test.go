package layers

import (
	"testing"

	"pacbayes_lib/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReLUForwardBackward(t *testing.T) {
	a, err := NewActivation("ReLU")
	require.NoError(t, err)

	x := &tensor.Tensor{Data: []float64{-1, 0, 2, 3}, Shape: []int{2, 2}}
	y, err := a.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2, 3}, y.Data)
	assert.Equal(t, x.Shape, y.Shape)

	g, err := a.Backward(&tensor.Tensor{Data: []float64{1, 1, 1, 1}, Shape: []int{2, 2}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1}, g.Data)
}

func TestSigmoidDerivative(t *testing.T) {
	a, err := NewActivation("Sigmoid")
	require.NoError(t, err)
	_, err = a.Forward(tensor.NewWithData([]float64{0}))
	require.NoError(t, err)
	g, err := a.Backward(tensor.NewWithData([]float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, g.Data[0], 1e-12)
}

func TestUnsupportedActivation(t *testing.T) {
	_, err := NewActivation("ReLU3")
	require.Error(t, err)
}

func TestActivationBackwardShapeMismatch(t *testing.T) {
	a, _ := NewActivation("ReLU")
	_, err := a.Forward(tensor.New(3))
	require.NoError(t, err)
	_, err = a.Backward(tensor.New(2))
	require.Error(t, err)
}
