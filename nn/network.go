package nn

import (
	"fmt"
	"math"

	"pacbayes_lib/nn/layers"
	"pacbayes_lib/tensor"
	"pacbayes_lib/utils"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Network is the base classifier: a Sequential model, its parameter
// layout and the training criterion.
type Network struct {
	seq    *Sequential
	layout *Layout
	loss   CrossEntropyLoss
}

// NewNetwork wraps seq and records its layout.
func NewNetwork(seq *Sequential) *Network {
	return &Network{seq: seq, layout: NewLayout(seq)}
}

// NewMLP builds arch[0] → arch[1] → ... → arch[len-1] with the named
// activation between linear layers and Xavier-normal weights.
func NewMLP(arch []int, activation string, seed uint64) (*Network, error) {
	if len(arch) < 2 {
		return nil, fmt.Errorf("architecture must have at least 2 layers, got %v", arch)
	}
	src := rand.NewSource(seed)
	seq := &Sequential{}
	for i := 0; i+1 < len(arch); i++ {
		lin := layers.NewLinear(arch[i], arch[i+1])
		init := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(arch[i]+arch[i+1])), Src: src}
		for j := range lin.W.Data {
			lin.W.Data[j] = init.Rand()
		}
		seq.Layers = append(seq.Layers, lin)
		if i+2 < len(arch) {
			act, err := layers.NewActivation(activation)
			if err != nil {
				return nil, err
			}
			seq.Layers = append(seq.Layers, act)
		}
	}
	return NewNetwork(seq), nil
}

// Layout returns the parameter schema.
func (n *Network) Layout() *Layout { return n.layout }

// NumParams is D.
func (n *Network) NumParams() int { return n.layout.Size() }

// Weights returns a copy of the current flat weight vector.
func (n *Network) Weights() []float64 { return n.layout.Flatten(n.seq) }

// SetWeights overwrites the network parameters with w.
func (n *Network) SetWeights(w []float64) error { return n.layout.Unflatten(n.seq, w) }

// Clone returns a network with its own parameter storage.
func (n *Network) Clone() (*Network, error) {
	seq, err := n.seq.Clone()
	if err != nil {
		return nil, err
	}
	if err := n.layout.Check(seq); err != nil {
		return nil, err
	}
	return &Network{seq: seq, layout: n.layout}, nil
}

// Logits runs a forward pass with the current weights.
func (n *Network) Logits(x *tensor.Tensor) (*tensor.Tensor, error) {
	return n.seq.Forward(x)
}

// Mistakes counts misclassified columns of x under the current weights.
func (n *Network) Mistakes(x *tensor.Tensor, labels []int) (int, error) {
	logits, err := n.Logits(x)
	if err != nil {
		return 0, err
	}
	if _, _, err := logitDims(logits, labels); err != nil {
		return 0, err
	}
	wrong := 0
	for b, p := range Argmax(logits) {
		if p != labels[b] {
			wrong++
		}
	}
	return wrong, nil
}

// LossAndGrad evaluates the mean cross-entropy of the network with weights
// w on one batch and returns it with dL/dw in layout order. The network's
// own weights are restored before returning.
func (n *Network) LossAndGrad(w []float64, x *tensor.Tensor, labels []int) (float64, []float64, error) {
	saved := n.Weights()
	if err := n.SetWeights(w); err != nil {
		return 0, nil, err
	}
	defer n.layout.Unflatten(n.seq, saved)

	logits, err := n.seq.Forward(x)
	if err != nil {
		return 0, nil, err
	}
	loss, grad, err := n.loss.Forward(logits, labels)
	if err != nil {
		return 0, nil, err
	}
	if _, err := n.seq.Backward(grad); err != nil {
		return 0, nil, err
	}
	return loss, n.layout.FlattenGrads(n.seq), nil
}

// LoadCheckpoint copies named weight blocks into the network. Every block
// of the layout must be present with the recorded shape.
func (n *Network) LoadCheckpoint(mw *utils.ModelWeights) error {
	w := make([]float64, n.layout.Size())
	for _, b := range n.layout.Blocks {
		key, part := splitBlockName(b.Name)
		lw, ok := mw.Layers[key]
		if !ok {
			return &utils.ConfigurationError{Field: "weights", Reason: fmt.Sprintf("checkpoint has no layer %q", key)}
		}
		wd := lw.Weight
		if part == "bias" {
			wd = lw.Bias
		}
		if wd == nil {
			return &utils.ConfigurationError{Field: "weights", Reason: fmt.Sprintf("checkpoint has no %s", b.Name)}
		}
		if !sameShape(wd.Shape, b.Shape) || len(wd.Data) != b.Size {
			return &utils.ConfigurationError{Field: "weights", Reason: fmt.Sprintf("%s has shape %v, network expects %v", b.Name, wd.Shape, b.Shape)}
		}
		copy(w[b.Offset:b.Offset+b.Size], wd.Data)
	}
	if len(mw.Layers) != n.countLayersWithParams() {
		return &utils.ConfigurationError{Field: "weights", Reason: fmt.Sprintf("checkpoint has %d layers, network has %d", len(mw.Layers), n.countLayersWithParams())}
	}
	return n.SetWeights(w)
}

// Checkpoint exports the current weights in the JSON checkpoint format.
func (n *Network) Checkpoint() *utils.ModelWeights {
	mw := &utils.ModelWeights{Version: utils.WeightsVersion, Layers: make(map[string]utils.LayerWeight)}
	for i, layer := range n.seq.Layers {
		if lin, ok := layer.(*layers.Linear); ok {
			mw.Layers[layerKey(i)] = utils.LayerWeight{
				Weight: utils.TensorToWeightData("weight", lin.W),
				Bias:   utils.TensorToWeightData("bias", lin.B),
			}
		}
	}
	return mw
}

func (n *Network) countLayersWithParams() int {
	c := 0
	for _, layer := range n.seq.Layers {
		if len(layer.Params()) > 0 {
			c++
		}
	}
	return c
}

func splitBlockName(name string) (layer, part string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}
