package layers

import (
	"fmt"
	"math"

	"pacbayes_lib/tensor"
)

// ActivationFunc holds an elementwise function and its derivative.
type ActivationFunc struct {
	Name  string
	F     func(x float64) float64
	Deriv func(x float64) float64
}

// SupportedActivations lists the activations a network may use.
var SupportedActivations = map[string]ActivationFunc{
	"ReLU": {
		Name: "ReLU",
		F:    func(x float64) float64 { return math.Max(x, 0) },
		Deriv: func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	},
	"Sigmoid": {
		Name: "Sigmoid",
		F:    func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		Deriv: func(x float64) float64 {
			s := 1 / (1 + math.Exp(-x))
			return s * (1 - s)
		},
	},
}

// Activation is a parameter-free elementwise layer.
type Activation struct {
	fn        ActivationFunc
	lastInput *tensor.Tensor
}

// NewActivation creates a new activation layer.
func NewActivation(name string) (*Activation, error) {
	fn, ok := SupportedActivations[name]
	if !ok {
		return nil, fmt.Errorf("unsupported activation: %s", name)
	}
	return &Activation{fn: fn}, nil
}

// Forward applies the activation to each element.
func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	a.lastInput = x
	y := tensor.New(x.Shape...)
	for i, v := range x.Data {
		y.Data[i] = a.fn.F(v)
	}
	return y, nil
}

// Backward multiplies gradOut by the derivative at the cached input.
func (a *Activation) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	input := a.lastInput
	if input == nil {
		return nil, fmt.Errorf("%s: no cached input for backward pass", a.Tag())
	}
	if len(input.Data) != len(gradOut.Data) {
		return nil, fmt.Errorf("shape mismatch in Activation.Backward: input.Shape=%v, gradOut.Shape=%v", input.Shape, gradOut.Shape)
	}
	gradIn := tensor.New(input.Shape...)
	for i, v := range input.Data {
		gradIn.Data[i] = gradOut.Data[i] * a.fn.Deriv(v)
	}
	return gradIn, nil
}

func (a *Activation) Params() []*tensor.Tensor { return nil }
func (a *Activation) Grads() []*tensor.Tensor  { return nil }
func (a *Activation) ParamNames() []string     { return nil }
func (a *Activation) Clone() *Activation       { return &Activation{fn: a.fn} }
func (a *Activation) Tag() string              { return a.fn.Name }
