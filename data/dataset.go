package data

import (
	"fmt"

	"pacbayes_lib/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dataset serves fixed-size, unshuffled batches of Lines. Batches are
// shaped (inputDim, batchSize) with one example per column; the last
// batch may be shorter.
type Dataset struct {
	Lines     Lines
	BatchSize int
	inputDim  int
}

// NewDataset validates lines and wraps them for batching.
func NewDataset(lines Lines, batchSize int) (*Dataset, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	dim := len(lines[0].Inputs)
	for i, l := range lines {
		if len(l.Inputs) != dim {
			return nil, fmt.Errorf("line %d has %d inputs, want %d", i, len(l.Inputs), dim)
		}
	}
	return &Dataset{Lines: lines, BatchSize: batchSize, inputDim: dim}, nil
}

// Len is the number of examples.
func (d *Dataset) Len() int { return len(d.Lines) }

// InputDim is the width of every example.
func (d *Dataset) InputDim() int { return d.inputDim }

// NumBatches is the number of batches in one pass.
func (d *Dataset) NumBatches() int {
	return (len(d.Lines) + d.BatchSize - 1) / d.BatchSize
}

// Batch returns the i-th batch as a column matrix and its labels.
func (d *Dataset) Batch(i int) (*tensor.Tensor, []int) {
	lines := LineSplitter(d.BatchSize, i, d.Lines)
	n := len(lines)
	x := tensor.New(d.inputDim, n)
	labels := make([]int, n)
	for b, l := range lines {
		for j, v := range l.Inputs {
			x.Set(v, j, b)
		}
		labels[b] = l.Label
	}
	return x, labels
}

// RandomizeLabels returns a copy of lines with labels drawn uniformly from
// {0, ..., classes-1}, for the random-label regime.
func RandomizeLabels(lines Lines, classes int, seed uint64) Lines {
	rng := rand.New(rand.NewSource(seed))
	out := make(Lines, len(lines))
	for i, l := range lines {
		out[i] = Line{Inputs: l.Inputs, Label: rng.Intn(classes)}
	}
	return out
}

// Synthetic draws n Gaussian examples of width dim labelled by the sign of
// their first coordinate, so a linear classifier can reach zero error.
func Synthetic(n, dim int, seed uint64) Lines {
	g := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	lines := make(Lines, n)
	for i := range lines {
		in := make([]float64, dim)
		for j := range in {
			in[j] = g.Rand()
		}
		label := 0
		if in[0] > 0 {
			label = 1
		}
		lines[i] = Line{Inputs: in, Label: label}
	}
	return lines
}
