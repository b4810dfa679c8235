package layers

import (
	"testing"

	"pacbayes_lib/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

func TestLinearForwardBatch(t *testing.T) {
	l := NewLinear(2, 3)
	copy(l.W.Data, []float64{1, 2, 3, 4, 5, 6})
	copy(l.B.Data, []float64{0.5, -0.5, 1})

	// two samples as columns: (1,0) and (0,1)
	x := &tensor.Tensor{Data: []float64{1, 0, 0, 1}, Shape: []int{2, 2}}
	y, err := l.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, y.Shape)
	assert.Equal(t, []float64{1.5, 2.5, 2.5, 3.5, 6, 7}, y.Data)
}

func TestLinearForwardVector(t *testing.T) {
	l := NewLinear(3, 1)
	copy(l.W.Data, []float64{1, 1, 1})
	y, err := l.Forward(tensor.NewWithData([]float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{6}, y.Data)
}

func TestLinearRejectsWrongInput(t *testing.T) {
	l := NewLinear(3, 2)
	_, err := l.Forward(tensor.New(4, 1))
	require.Error(t, err)
	_, err = NewLinear(3, 2).Backward(tensor.New(2, 1))
	require.Error(t, err, "backward without forward must fail")
}

// sum of outputs weighted by c gives dL/dy = c, so the analytic weight
// gradient can be compared against finite differences.
func TestLinearBackwardMatchesFiniteDifferences(t *testing.T) {
	l := NewLinear(3, 2)
	copy(l.W.Data, []float64{0.1, -0.2, 0.3, 0.4, 0.5, -0.6})
	copy(l.B.Data, []float64{0.01, -0.02})
	x := &tensor.Tensor{Data: []float64{1, 2, -1, 0.5, 3, -2}, Shape: []int{3, 2}}
	c := []float64{1, -2, 0.5, 3}

	loss := func(w []float64) float64 {
		probe := l.Clone()
		copy(probe.W.Data, w)
		y, err := probe.Forward(x)
		require.NoError(t, err)
		s := 0.0
		for i, v := range y.Data {
			s += c[i] * v
		}
		return s
	}

	_, err := l.Forward(x)
	require.NoError(t, err)
	gradIn, err := l.Backward(&tensor.Tensor{Data: c, Shape: []int{2, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, gradIn.Shape)

	want := fd.Gradient(nil, loss, l.W.Data, &fd.Settings{Formula: fd.Central})
	assert.InDeltaSlice(t, want, l.GradW.Data, 1e-6)
	assert.InDeltaSlice(t, []float64{1 + -2, 0.5 + 3}, l.GradB.Data, 1e-12)
}

func TestLinearCloneIsIndependent(t *testing.T) {
	l := NewLinear(2, 2)
	c := l.Clone()
	c.W.Data[0] = 5
	assert.Equal(t, 0.0, l.W.Data[0])
	assert.Equal(t, "Linear_2_2", c.Tag())
}
