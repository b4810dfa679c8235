package pacbayes

import (
	"fmt"

	"pacbayes_lib/data"
	"pacbayes_lib/nn"
	"pacbayes_lib/tensor"
	"pacbayes_lib/utils"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SampleResult is one stochastic forward/backward pass.
type SampleResult struct {
	Loss       float64
	WeightGrad []float64 // dL/dw at the sampled weights
	Noise      []float64 // standard normal draw used for the sample
}

// StochasticEvaluator draws one weight sample from the posterior per call
// and evaluates the network on it. It owns a private clone of the base
// network, so the caller's weights are never overwritten.
type StochasticEvaluator struct {
	net    *nn.Network
	src    *rand.PCGSource
	normal distuv.Normal
	sample []float64
}

// NewStochasticEvaluator clones base and seeds the noise stream.
func NewStochasticEvaluator(base *nn.Network, seed uint64) (*StochasticEvaluator, error) {
	net, err := base.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone network: %w", err)
	}
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &StochasticEvaluator{
		net:    net,
		src:    src,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		sample: make([]float64, net.NumParams()),
	}, nil
}

// Reseed restarts the noise stream.
func (e *StochasticEvaluator) Reseed(seed uint64) { e.src.Seed(seed) }

func (e *StochasticEvaluator) draw(post *Posterior) ([]float64, error) {
	if post.Dim() != e.net.NumParams() {
		return nil, &utils.ConfigurationError{
			Field:  "posterior",
			Reason: fmt.Sprintf("posterior has %d parameters, network has %d", post.Dim(), e.net.NumParams()),
		}
	}
	noise := make([]float64, post.Dim())
	for i := range noise {
		noise[i] = e.normal.Rand()
	}
	post.SampleInto(e.sample, noise)
	return noise, nil
}

// Sample draws fresh noise, evaluates the cross-entropy of the sampled
// network on (x, labels) and backpropagates it.
func (e *StochasticEvaluator) Sample(post *Posterior, x *tensor.Tensor, labels []int) (SampleResult, error) {
	noise, err := e.draw(post)
	if err != nil {
		return SampleResult{}, err
	}
	loss, grad, err := e.net.LossAndGrad(e.sample, x, labels)
	if err != nil {
		return SampleResult{}, err
	}
	if bad(loss) {
		return SampleResult{}, &utils.NumericDomainError{Op: "sampled loss", Value: loss}
	}
	return SampleResult{Loss: loss, WeightGrad: grad, Noise: noise}, nil
}

// CountErrors draws one weight sample and counts its misclassifications
// over every batch of ds.
func (e *StochasticEvaluator) CountErrors(post *Posterior, ds *data.Dataset) (int, error) {
	if _, err := e.draw(post); err != nil {
		return 0, err
	}
	if err := e.net.SetWeights(e.sample); err != nil {
		return 0, err
	}
	wrong := 0
	for b := 0; b < ds.NumBatches(); b++ {
		x, labels := ds.Batch(b)
		n, err := e.net.Mistakes(x, labels)
		if err != nil {
			return 0, err
		}
		wrong += n
	}
	return wrong, nil
}
