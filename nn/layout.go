package nn

import (
	"fmt"

	"pacbayes_lib/tensor"
	"pacbayes_lib/utils"
)

// LayoutVersion identifies the flattening order below. Bump it if the
// order of blocks ever changes.
const LayoutVersion = 1

// Block is one parameter tensor inside the flat weight vector.
type Block struct {
	Name   string // e.g. "linear_0.weight"
	Layer  int
	Shape  []int
	Offset int
	Size   int
}

// Layout is the fixed ordered list of parameter blocks of a network,
// built once at construction and reused for every flatten/unflatten.
type Layout struct {
	Version int
	Blocks  []Block
	size    int
}

// NewLayout records the parameter blocks of s in layer order.
func NewLayout(s *Sequential) *Layout {
	l := &Layout{Version: LayoutVersion}
	for i, layer := range s.Layers {
		names := layer.ParamNames()
		for j, p := range layer.Params() {
			l.Blocks = append(l.Blocks, Block{
				Name:   fmt.Sprintf("%s.%s", layerKey(i), names[j]),
				Layer:  i,
				Shape:  append([]int(nil), p.Shape...),
				Offset: l.size,
				Size:   p.Size(),
			})
			l.size += p.Size()
		}
	}
	return l
}

// Size is the total parameter count D.
func (l *Layout) Size() int { return l.size }

// Check verifies that s has exactly the blocks recorded in l.
func (l *Layout) Check(s *Sequential) error {
	k := 0
	for _, layer := range s.Layers {
		for _, p := range layer.Params() {
			if k >= len(l.Blocks) {
				return &utils.ConfigurationError{Field: "layout", Reason: "network has more parameter blocks than its layout"}
			}
			if !sameShape(l.Blocks[k].Shape, p.Shape) {
				return &utils.ConfigurationError{Field: "layout", Reason: fmt.Sprintf("block %s has shape %v, network has %v", l.Blocks[k].Name, l.Blocks[k].Shape, p.Shape)}
			}
			k++
		}
	}
	if k != len(l.Blocks) {
		return &utils.ConfigurationError{Field: "layout", Reason: fmt.Sprintf("network has %d parameter blocks, layout has %d", k, len(l.Blocks))}
	}
	return nil
}

// Flatten copies the parameters of s into a new vector of length Size.
func (l *Layout) Flatten(s *Sequential) []float64 {
	return l.gather(s, func(m Module) []*tensor.Tensor { return m.Params() })
}

// FlattenGrads copies the parameter gradients of s into a new vector.
func (l *Layout) FlattenGrads(s *Sequential) []float64 {
	return l.gather(s, func(m Module) []*tensor.Tensor { return m.Grads() })
}

// Unflatten writes w into the parameters of s, overwriting them.
func (l *Layout) Unflatten(s *Sequential, w []float64) error {
	if len(w) != l.size {
		return &utils.ConfigurationError{Field: "weights", Reason: fmt.Sprintf("vector has %d entries, network has %d parameters", len(w), l.size)}
	}
	off := 0
	for _, layer := range s.Layers {
		for _, p := range layer.Params() {
			copy(p.Data, w[off:off+p.Size()])
			off += p.Size()
		}
	}
	return nil
}

func (l *Layout) gather(s *Sequential, blocks func(Module) []*tensor.Tensor) []float64 {
	out := make([]float64, 0, l.size)
	for _, layer := range s.Layers {
		for _, p := range blocks(layer) {
			out = append(out, p.Data...)
		}
	}
	return out
}

func layerKey(i int) string { return fmt.Sprintf("linear_%d", i) }

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
