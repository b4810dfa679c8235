package layers

import (
	"fmt"

	"pacbayes_lib/tensor"

	"gonum.org/v1/gonum/floats"
)

// Linear is a fully-connected layer y = Wx + B over column batches.
// Inputs are shaped (inDim, batchSize), outputs (outDim, batchSize).
type Linear struct {
	W, B         *tensor.Tensor
	GradW, GradB *tensor.Tensor

	lastInput *tensor.Tensor
}

// NewLinear(inDim→outDim) allocates zeroed weights and gradient buffers.
func NewLinear(inDim, outDim int) *Linear {
	return &Linear{
		W:     tensor.New(outDim, inDim),
		B:     tensor.New(outDim),
		GradW: tensor.New(outDim, inDim),
		GradB: tensor.New(outDim),
	}
}

// InDim is the input width.
func (l *Linear) InDim() int { return l.W.Shape[1] }

// OutDim is the output width.
func (l *Linear) OutDim() int { return l.W.Shape[0] }

// Forward computes y = Wx + B for x shaped (inDim) or (inDim, batchSize).
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) == 1 {
		x = &tensor.Tensor{Data: x.Data, Shape: []int{x.Shape[0], 1}}
	}
	if len(x.Shape) != 2 || x.Shape[0] != l.InDim() {
		return nil, fmt.Errorf("%s: expected input (%d, batch), got %v", l.Tag(), l.InDim(), x.Shape)
	}
	l.lastInput = x
	wx, err := tensor.MatMul(l.W, x)
	if err != nil {
		return nil, err
	}
	batch := x.Shape[1]
	for j := 0; j < l.OutDim(); j++ {
		row := wx.Data[j*batch : (j+1)*batch]
		floats.AddConst(l.B.Data[j], row)
	}
	return wx, nil
}

// Backward stores dL/dW and dL/dB (summed over the batch, overwriting the
// previous contents) and returns dL/dx.
func (l *Linear) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	input := l.lastInput
	if input == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", l.Tag())
	}
	batch := input.Shape[1]
	if len(gradOut.Data) != l.OutDim()*batch {
		return nil, fmt.Errorf("%s: gradOut has %d values, want %d", l.Tag(), len(gradOut.Data), l.OutDim()*batch)
	}
	g := &tensor.Tensor{Data: gradOut.Data, Shape: []int{l.OutDim(), batch}}

	// dL/dW = gradOut * input^T
	inputT, err := tensor.Transpose(input)
	if err != nil {
		return nil, err
	}
	gradW, err := tensor.MatMul(g, inputT)
	if err != nil {
		return nil, err
	}
	copy(l.GradW.Data, gradW.Data)
	for j := 0; j < l.OutDim(); j++ {
		l.GradB.Data[j] = floats.Sum(g.Data[j*batch : (j+1)*batch])
	}

	// dL/dx = W^T * gradOut
	wT, err := tensor.Transpose(l.W)
	if err != nil {
		return nil, err
	}
	return tensor.MatMul(wT, g)
}

// Params returns the parameter blocks in layout order: weight, bias.
func (l *Linear) Params() []*tensor.Tensor { return []*tensor.Tensor{l.W, l.B} }

// Grads returns the gradient buffers matching Params.
func (l *Linear) Grads() []*tensor.Tensor { return []*tensor.Tensor{l.GradW, l.GradB} }

// ParamNames names the blocks returned by Params.
func (l *Linear) ParamNames() []string { return []string{"weight", "bias"} }

// Clone returns a copy with its own weights and gradient buffers.
func (l *Linear) Clone() *Linear {
	return &Linear{W: l.W.Clone(), B: l.B.Clone(), GradW: l.GradW.Clone(), GradB: l.GradB.Clone()}
}

func (l *Linear) Tag() string {
	return fmt.Sprintf("Linear_%d_%d", l.InDim(), l.OutDim())
}
