package pacbayes

import "fmt"

// Bound is the certified result of one run.
type Bound struct {
	Model         string
	KL            float64
	BRE           float64
	SNNTrainError float64
	SNNTestError  float64
	PACBound      float64
}

func (b *Bound) String() string {
	return fmt.Sprintf("%s: SNN train error %.4f, SNN test error %.4f, PAC-Bayes bound %.4f, KL %.2f",
		b.Model, b.SNNTrainError, b.SNNTestError, b.PACBound, b.KL)
}
