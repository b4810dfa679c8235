package pacbayes

import (
	"context"
	"fmt"
	"math"

	"pacbayes_lib/data"
	"pacbayes_lib/nn"
	"pacbayes_lib/utils"

	"github.com/sourcegraph/conc/pool"
)

// Noise streams. Training draws from the evaluator's own seed; each
// certification pass gets a stream that never overlaps with it.
const (
	StreamTrain uint64 = 1
	StreamTest  uint64 = 2
)

// MonteCarloEstimator certifies the error of the stochastic network by
// drawing Samples independent weight vectors from the posterior.
type MonteCarloEstimator struct {
	Samples    int
	DeltaPrime float64
	Seed       uint64
	Workers    int
}

// Validate checks N ≥ 1 and 0 < δ' < 1.
func (m *MonteCarloEstimator) Validate() error {
	if m.Samples < 1 {
		return &utils.ConfigurationError{Field: "mc_samples", Reason: fmt.Sprintf("must be at least 1, got %d", m.Samples)}
	}
	if !(m.DeltaPrime > 0 && m.DeltaPrime < 1) {
		return &utils.ConfigurationError{Field: "delta_prime", Reason: fmt.Sprintf("must be in (0,1), got %g", m.DeltaPrime)}
	}
	return nil
}

// ConfidenceBudget is ln(2/δ')/N, the KL budget of the sampling correction.
func (m *MonteCarloEstimator) ConfidenceBudget() float64 {
	return math.Log(2/m.DeltaPrime) / float64(m.Samples)
}

// EmpiricalError returns the misclassification rate averaged over all
// samples and all examples of ds. Sample i always uses the noise stream
// derived from (Seed, stream, i), so the result does not depend on the
// number of workers.
func (m *MonteCarloEstimator) EmpiricalError(ctx context.Context, base *nn.Network, post *Posterior, ds *data.Dataset, stream uint64) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if ds.Len() == 0 {
		return 0, &utils.ConfigurationError{Field: "dataset", Reason: "empty"}
	}
	workers := m.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > m.Samples {
		workers = m.Samples
	}

	counts := make([]int, workers)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(workers)
	for w := 0; w < workers; w++ {
		w := w
		p.Go(func(ctx context.Context) error {
			eval, err := NewStochasticEvaluator(base, 0)
			if err != nil {
				return err
			}
			for i := w; i < m.Samples; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				eval.Reseed(sampleSeed(m.Seed, stream, i))
				n, err := eval.CountErrors(post, ds)
				if err != nil {
					return fmt.Errorf("sample %d: %w", i, err)
				}
				counts[w] += n
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return float64(total) / (float64(m.Samples) * float64(ds.Len())), nil
}

// SNNError is the certified error of the stochastic network on ds:
// InverseKL(ê, ln(2/δ')/N).
func (m *MonteCarloEstimator) SNNError(ctx context.Context, base *nn.Network, post *Posterior, ds *data.Dataset, stream uint64) (float64, error) {
	emp, err := m.EmpiricalError(ctx, base, post, ds, stream)
	if err != nil {
		return 0, err
	}
	return InverseKL(emp, m.ConfidenceBudget())
}

// ComputeBound certifies the train error and turns it into the PAC-Bayes
// bound: the largest p with kl(snnTrain‖p) ≤ (KL + log_log + log_term)/(m−1).
func (m *MonteCarloEstimator) ComputeBound(ctx context.Context, base *nn.Network, post *Posterior, bre *BRE, train *data.Dataset) (snnTrain, pacBound, kl float64, err error) {
	res, err := bre.Evaluate(post, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	radicand, err := bre.Radicand(res.KL, res.Lambda)
	if err != nil {
		return 0, 0, 0, err
	}
	snnTrain, err = m.SNNError(ctx, base, post, train, StreamTrain)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("snn train error: %w", err)
	}
	pacBound, err = InverseKL(snnTrain, radicand/float64(bre.DataSize-1))
	if err != nil {
		return 0, 0, 0, err
	}
	return snnTrain, pacBound, res.KL, nil
}

// Certify runs ComputeBound on train and SNNError on test.
func (m *MonteCarloEstimator) Certify(ctx context.Context, model string, base *nn.Network, post *Posterior, bre *BRE, train, test *data.Dataset) (*Bound, error) {
	snnTrain, pac, kl, err := m.ComputeBound(ctx, base, post, bre, train)
	if err != nil {
		return nil, err
	}
	snnTest, err := m.SNNError(ctx, base, post, test, StreamTest)
	if err != nil {
		return nil, fmt.Errorf("snn test error: %w", err)
	}
	res, err := bre.Evaluate(post, nil)
	if err != nil {
		return nil, err
	}
	return &Bound{
		Model:         model,
		KL:            kl,
		BRE:           res.Value,
		SNNTrainError: snnTrain,
		SNNTestError:  snnTest,
		PACBound:      pac,
	}, nil
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func sampleSeed(seed, stream uint64, i int) uint64 {
	return splitmix64(splitmix64(seed^(stream<<56)) + uint64(i))
}
