package train

import (
	"fmt"
	"math"
	"time"

	"pacbayes_lib/data"
	"pacbayes_lib/pacbayes"
	"pacbayes_lib/utils"

	"gonum.org/v1/gonum/floats"
)

// Phase is the step of the per-batch protocol the orchestrator is in.
type Phase int

const (
	Idle Phase = iota
	ComputeBRE
	SampledLoss
	CoupleGradients
	OptimizerStep
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ComputeBRE:
		return "bre"
	case SampledLoss:
		return "sampled loss"
	case CoupleGradients:
		return "coupling"
	case OptimizerStep:
		return "optimizer step"
	case Done:
		return "done"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// EpochStats is the diagnostic series recorded after every epoch.
type EpochStats struct {
	Epoch     int
	BRELoss   float64 // BRE term at the last batch
	KL        float64
	NNLoss    float64 // mean sampled loss over the epoch
	NormMean  float64 // ‖Mean‖₂
	NormSigma float64 // ‖SigmaRaw‖₂
	AbsLambda float64 // |LambdaRaw|
	LR        float64
}

// Orchestrator minimizes BRE + sampled cross-entropy over the posterior.
type Orchestrator struct {
	BRE       *pacbayes.BRE
	Evaluator *pacbayes.StochasticEvaluator
	Optimizer Optimizer
	Scheduler LRScheduler
	Epochs    int
	Timing    *utils.TimingStats

	coupler pacbayes.GradientCoupler
	phase   Phase
}

// Phase reports where the last Run stopped.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Run trains post in place for o.Epochs passes over ds. Any non-finite
// loss or gradient aborts the run.
func (o *Orchestrator) Run(post *pacbayes.Posterior, ds *data.Dataset) ([]EpochStats, error) {
	if o.Epochs < 1 {
		return nil, &utils.ConfigurationError{Field: "epochs", Reason: fmt.Sprintf("must be at least 1, got %d", o.Epochs)}
	}
	if err := post.Validate(); err != nil {
		return nil, err
	}
	timing := o.Timing
	if timing == nil {
		timing = &utils.TimingStats{}
	}

	d := post.Dim()
	breGrads := pacbayes.NewGradients(d)
	nnGrads := pacbayes.NewGradients(d)
	total := pacbayes.NewGradients(d)

	o.phase = Idle
	stats := make([]EpochStats, 0, o.Epochs)
	prevLR := o.Scheduler.LR(1)
	for epoch := 1; epoch <= o.Epochs; epoch++ {
		lr := o.Scheduler.LR(epoch)
		utils.Printf(" \n Epoch %d :  \n", epoch)
		if lr != prevLR {
			utils.Printf("==> Changing Learning rate from %g to %g\n", prevLR, lr)
			prevLR = lr
		}

		var last pacbayes.BREResult
		nnSum := 0.0
		var window []float64
		seen := 0
		for b := 0; b < ds.NumBatches(); b++ {
			x, labels := ds.Batch(b)

			o.phase = ComputeBRE
			start := time.Now()
			res, err := o.BRE.Evaluate(post, breGrads)
			timing.BRETime += time.Since(start)
			if err != nil {
				return stats, o.fail(epoch, b, err)
			}
			last = res

			o.phase = SampledLoss
			start = time.Now()
			sample, err := o.Evaluator.Sample(post, x, labels)
			timing.ForwardPassTime += time.Since(start)
			if err != nil {
				return stats, o.fail(epoch, b, err)
			}

			o.phase = CoupleGradients
			start = time.Now()
			nnGrads.Zero()
			if err := o.coupler.Couple(nnGrads, sample.WeightGrad, sample.Noise); err != nil {
				return stats, o.fail(epoch, b, err)
			}
			if err := pacbayes.Sum(total, breGrads, nnGrads); err != nil {
				return stats, o.fail(epoch, b, err)
			}
			timing.CouplingTime += time.Since(start)
			if err := total.CheckFinite(); err != nil {
				return stats, o.fail(epoch, b, err)
			}

			o.phase = OptimizerStep
			start = time.Now()
			if err := o.Optimizer.Step(post, total, lr); err != nil {
				return stats, o.fail(epoch, b, err)
			}
			timing.UpdateTime += time.Since(start)

			nnSum += sample.Loss
			window = append(window, res.Value+sample.Loss)
			before := seen
			seen += len(labels)
			if pct := 100 * seen / o.BRE.DataSize; pct != 100*before/o.BRE.DataSize {
				utils.Printf("\r Progress: %d%%\t Mean loss : %.6f", pct, floats.Sum(window)/float64(len(window)))
				window = window[:0]
			}
		}

		st := EpochStats{
			Epoch:     epoch,
			BRELoss:   last.Value,
			KL:        last.KL,
			NNLoss:    nnSum / float64(ds.NumBatches()),
			NormMean:  floats.Norm(post.Mean, 2),
			NormSigma: floats.Norm(post.SigmaRaw, 2),
			AbsLambda: math.Abs(post.LambdaRaw),
			LR:        lr,
		}
		stats = append(stats, st)
		utils.Printf("\n BRE %.6f\t KL %.4f\t NN loss %.6f\n", st.BRELoss, st.KL, st.NNLoss)
	}
	o.phase = Done
	return stats, nil
}

func (o *Orchestrator) fail(epoch, batch int, err error) error {
	return fmt.Errorf("epoch %d batch %d (%s): %w", epoch, batch, o.phase, err)
}
