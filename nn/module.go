package nn

import (
	"fmt"

	"pacbayes_lib/nn/layers"
	"pacbayes_lib/tensor"
)

// Module defines a single layer/unit in the network.
type Module interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	// Backward computes gradients and propagates them.
	// It takes the gradient of the loss with respect to the module's output,
	// and returns the gradient of the loss with respect to the module's input.
	// Parameter gradients are overwritten, not accumulated.
	Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error)
	// Params and Grads return parallel slices of parameter blocks.
	Params() []*tensor.Tensor
	Grads() []*tensor.Tensor
	ParamNames() []string
	Tag() string
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := x
	for _, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NumParams sums the sizes of all parameter blocks.
func (s *Sequential) NumParams() int {
	n := 0
	for _, layer := range s.Layers {
		for _, p := range layer.Params() {
			n += p.Size()
		}
	}
	return n
}

// Clone deep-copies every layer. Only the layer types this package builds
// are supported.
func (s *Sequential) Clone() (*Sequential, error) {
	out := &Sequential{Layers: make([]Module, len(s.Layers))}
	for i, layer := range s.Layers {
		switch l := layer.(type) {
		case *layers.Linear:
			out.Layers[i] = l.Clone()
		case *layers.Activation:
			out.Layers[i] = l.Clone()
		default:
			return nil, fmt.Errorf("cannot clone layer %d of type %T", i, layer)
		}
	}
	return out, nil
}
