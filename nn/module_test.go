package nn

import (
	"errors"
	"testing"

	"pacbayes_lib/nn/layers"
	"pacbayes_lib/tensor"
)

// dummy layer: adds a constant
type addLayer struct{ c float64 }

func (l *addLayer) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := x.Clone()
	for i := range out.Data {
		out.Data[i] += l.c
	}
	return out, nil
}
func (l *addLayer) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) { return gradOut, nil }
func (l *addLayer) Params() []*tensor.Tensor                                { return nil }
func (l *addLayer) Grads() []*tensor.Tensor                                 { return nil }
func (l *addLayer) ParamNames() []string                                    { return nil }
func (l *addLayer) Tag() string                                             { return "add" }

// dummy layer: error on forward
type errLayer struct{ addLayer }

func (l *errLayer) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return nil, errors.New("fail")
}

func TestSequentialPlain(t *testing.T) {
	a := tensor.New(1)
	a.Data[0] = 1
	seq := &Sequential{Layers: []Module{&addLayer{c: 2}, &addLayer{c: 3}}}
	out, err := seq.Forward(a)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[0] != 6 {
		t.Fatalf("expected 6, got %f", out.Data[0])
	}
}

func TestSequentialForwardError(t *testing.T) {
	seq := &Sequential{Layers: []Module{&addLayer{c: 0}, &errLayer{}}}
	if _, err := seq.Forward(tensor.New(1)); err == nil {
		t.Fatal("expected error from failing layer")
	}
}

func TestSequentialCloneRejectsUnknownLayer(t *testing.T) {
	seq := &Sequential{Layers: []Module{&addLayer{c: 1}}}
	if _, err := seq.Clone(); err == nil {
		t.Fatal("expected clone error for foreign layer type")
	}
}

func TestSequentialNumParams(t *testing.T) {
	act, _ := layers.NewActivation("ReLU")
	seq := &Sequential{Layers: []Module{layers.NewLinear(3, 4), act, layers.NewLinear(4, 2)}}
	if got, want := seq.NumParams(), 3*4+4+4*2+2; got != want {
		t.Fatalf("NumParams = %d, want %d", got, want)
	}
}

func TestCrossEntropyForward(t *testing.T) {
	// equal logits: loss = ln 2, grad = (0.5 - onehot)/batch
	logits := &tensor.Tensor{Data: []float64{0, 0, 0, 0}, Shape: []int{2, 2}}
	var ce CrossEntropyLoss
	loss, grad, err := ce.Forward(logits, []int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if d := loss - 0.6931471805599453; d > 1e-12 || d < -1e-12 {
		t.Fatalf("loss = %v, want ln 2", loss)
	}
	want := []float64{-0.25, 0.25, 0.25, -0.25}
	for i := range want {
		if d := grad.Data[i] - want[i]; d > 1e-12 || d < -1e-12 {
			t.Fatalf("grad = %v, want %v", grad.Data, want)
		}
	}
	if _, _, err := ce.Forward(logits, []int{0, 2}); err == nil {
		t.Fatal("expected out-of-range label error")
	}
}

func TestArgmax(t *testing.T) {
	logits := &tensor.Tensor{Data: []float64{1, 5, 3, 2}, Shape: []int{2, 2}}
	pred := Argmax(logits)
	if pred[0] != 1 || pred[1] != 0 {
		t.Fatalf("pred = %v, want [1 0]", pred)
	}
}
