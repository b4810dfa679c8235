package nn

import (
	"fmt"
	"math"

	"pacbayes_lib/tensor"
)

// CrossEntropyLoss is softmax + negative log-likelihood, averaged over the
// batch. Logits are shaped (classes, batchSize).
type CrossEntropyLoss struct{}

// Forward returns the mean loss and dL/dlogits.
func (c *CrossEntropyLoss) Forward(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error) {
	classes, batch, err := logitDims(logits, labels)
	if err != nil {
		return 0, nil, err
	}
	grad := tensor.New(classes, batch)
	loss := 0.0
	col := tensor.New(classes)
	oneHot := tensor.New(classes)
	for b := 0; b < batch; b++ {
		for k := 0; k < classes; k++ {
			col.Data[k] = logits.Data[k*batch+b]
		}
		probs := Softmax(col)
		p := probs.Data[labels[b]]
		if p < 1e-300 {
			p = 1e-300
		}
		loss -= math.Log(p)

		oneHot.Zero()
		oneHot.Data[labels[b]] = 1
		g := c.Backward(probs, oneHot)
		for k := 0; k < classes; k++ {
			grad.Data[k*batch+b] = g.Data[k] / float64(batch)
		}
	}
	return loss / float64(batch), grad, nil
}

// Backward computes the gradient of the cross-entropy loss with softmax.
// grad = (softmax_output - one_hot_label)
func (c *CrossEntropyLoss) Backward(softmaxOut, oneHotLabel *tensor.Tensor) *tensor.Tensor {
	grad := tensor.New(len(softmaxOut.Data))
	for i := range grad.Data {
		grad.Data[i] = softmaxOut.Data[i] - oneHotLabel.Data[i]
	}
	return grad
}

// Softmax applies the softmax function to a tensor.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	maxLogit := logits.Data[0]
	for _, v := range logits.Data {
		if v > maxLogit {
			maxLogit = v
		}
	}
	expSum := 0.0
	exps := make([]float64, len(logits.Data))
	for i, v := range logits.Data {
		e := math.Exp(v - maxLogit)
		exps[i] = e
		expSum += e
	}
	softmax := tensor.New(len(logits.Data))
	for i, e := range exps {
		softmax.Data[i] = e / expSum
	}
	return softmax
}

// Argmax returns the predicted class of every column of logits.
// Ties go to the lowest class index.
func Argmax(logits *tensor.Tensor) []int {
	classes, batch := logits.Shape[0], 1
	if len(logits.Shape) == 2 {
		batch = logits.Shape[1]
	}
	pred := make([]int, batch)
	for b := 0; b < batch; b++ {
		best := logits.Data[b]
		for k := 1; k < classes; k++ {
			if v := logits.Data[k*batch+b]; v > best {
				best = v
				pred[b] = k
			}
		}
	}
	return pred
}

func logitDims(logits *tensor.Tensor, labels []int) (int, int, error) {
	if len(logits.Shape) != 2 {
		return 0, 0, fmt.Errorf("logits must be (classes, batch), got %v", logits.Shape)
	}
	classes, batch := logits.Shape[0], logits.Shape[1]
	if len(labels) != batch {
		return 0, 0, fmt.Errorf("got %d labels for a batch of %d", len(labels), batch)
	}
	for _, y := range labels {
		if y < 0 || y >= classes {
			return 0, 0, fmt.Errorf("label %d out of range for %d classes", y, classes)
		}
	}
	return classes, batch, nil
}
