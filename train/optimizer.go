// Package train runs the PAC-Bayes bound optimization over a dataset.
package train

import (
	"fmt"
	"math"

	"pacbayes_lib/pacbayes"
)

// Optimizer applies accumulated gradients to the posterior parameters.
type Optimizer interface {
	// Step updates Mean, SigmaRaw and LambdaRaw from grads.
	Step(post *pacbayes.Posterior, grads *pacbayes.Gradients, lr float64) error

	// Reset clears optimizer state (running averages, momentum).
	Reset()

	// Name returns the optimizer name
	Name() string
}

// block pairs a parameter slice with its gradient under a stable key.
type block struct {
	key   string
	param []float64
	grad  []float64
}

// blocks exposes the posterior as three parameter blocks. The scalar
// prior parameter is written back by the caller.
func blocks(post *pacbayes.Posterior, grads *pacbayes.Gradients) ([]block, []float64, error) {
	if len(grads.Mean) != post.Dim() || len(grads.Sigma) != post.Dim() {
		return nil, nil, fmt.Errorf("gradients have %d/%d entries, posterior %d", len(grads.Mean), len(grads.Sigma), post.Dim())
	}
	lambda := []float64{post.LambdaRaw}
	return []block{
		{key: "mean", param: post.Mean, grad: grads.Mean},
		{key: "sigma", param: post.SigmaRaw, grad: grads.Sigma},
		{key: "lambda", param: lambda, grad: []float64{grads.Lambda}},
	}, lambda, nil
}

// ============================================================================
// RMSprop
// ============================================================================

// RMSprop keeps a running average of squared gradients:
//
//	v = α·v + (1−α)·g²
//	p -= lr · g / (sqrt(v) + ε)
//
// With momentum the scaled step goes through a velocity buffer first.
type RMSprop struct {
	alpha    float64
	epsilon  float64
	momentum float64

	v   map[string][]float64
	buf map[string][]float64
}

func NewRMSprop(alpha, epsilon, momentum float64) *RMSprop {
	return &RMSprop{
		alpha:    alpha,
		epsilon:  epsilon,
		momentum: momentum,
		v:        make(map[string][]float64),
		buf:      make(map[string][]float64),
	}
}

func (opt *RMSprop) Step(post *pacbayes.Posterior, grads *pacbayes.Gradients, lr float64) error {
	bs, lambda, err := blocks(post, grads)
	if err != nil {
		return err
	}
	for _, b := range bs {
		if opt.v[b.key] == nil {
			opt.v[b.key] = make([]float64, len(b.param))
			if opt.momentum > 0 {
				opt.buf[b.key] = make([]float64, len(b.param))
			}
		}
		v := opt.v[b.key]
		for j, g := range b.grad {
			v[j] = opt.alpha*v[j] + (1-opt.alpha)*g*g
			step := g / (math.Sqrt(v[j]) + opt.epsilon)
			if opt.momentum > 0 {
				buf := opt.buf[b.key]
				buf[j] = opt.momentum*buf[j] + step
				step = buf[j]
			}
			b.param[j] -= lr * step
		}
	}
	post.LambdaRaw = lambda[0]
	return nil
}

func (opt *RMSprop) Reset() {
	opt.v = make(map[string][]float64)
	opt.buf = make(map[string][]float64)
}

func (opt *RMSprop) Name() string {
	if opt.momentum > 0 {
		return "RMSprop (momentum)"
	}
	return "RMSprop"
}

// ============================================================================
// SGD
// ============================================================================

// SGD is plain gradient descent with optional momentum.
type SGD struct {
	momentum float64
	velocity map[string][]float64
}

func NewSGD(momentum float64) *SGD {
	return &SGD{momentum: momentum, velocity: make(map[string][]float64)}
}

func (opt *SGD) Step(post *pacbayes.Posterior, grads *pacbayes.Gradients, lr float64) error {
	bs, lambda, err := blocks(post, grads)
	if err != nil {
		return err
	}
	for _, b := range bs {
		if opt.momentum == 0 {
			for j, g := range b.grad {
				b.param[j] -= lr * g
			}
			continue
		}
		vel := opt.velocity[b.key]
		if vel == nil {
			vel = make([]float64, len(b.param))
			opt.velocity[b.key] = vel
		}
		for j, g := range b.grad {
			vel[j] = opt.momentum*vel[j] + g
			b.param[j] -= lr * vel[j]
		}
	}
	post.LambdaRaw = lambda[0]
	return nil
}

func (opt *SGD) Reset() { opt.velocity = make(map[string][]float64) }

func (opt *SGD) Name() string {
	if opt.momentum > 0 {
		return "SGD (momentum)"
	}
	return "SGD"
}
