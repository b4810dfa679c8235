package train

import "fmt"

// LRScheduler gives the learning rate for a 1-indexed epoch.
type LRScheduler interface {
	LR(epoch int) float64
	Name() string
}

// Constant keeps the base rate for every epoch.
type Constant struct {
	Base float64
}

func (s Constant) LR(int) float64 { return s.Base }

func (s Constant) Name() string { return "Constant" }

// StepAtEpoch divides the base rate by Factor from epoch DropEpoch on.
type StepAtEpoch struct {
	Base      float64
	DropEpoch int
	Factor    float64
}

func (s StepAtEpoch) LR(epoch int) float64 {
	if s.DropEpoch > 0 && epoch >= s.DropEpoch && s.Factor > 0 {
		return s.Base / s.Factor
	}
	return s.Base
}

func (s StepAtEpoch) Name() string {
	return fmt.Sprintf("StepAtEpoch(%d, /%g)", s.DropEpoch, s.Factor)
}

// SchedulerFor returns StepAtEpoch when a drop epoch is configured and
// Constant otherwise.
func SchedulerFor(lr float64, dropEpoch int, factor float64) LRScheduler {
	if dropEpoch > 0 {
		return StepAtEpoch{Base: lr, DropEpoch: dropEpoch, Factor: factor}
	}
	return Constant{Base: lr}
}
