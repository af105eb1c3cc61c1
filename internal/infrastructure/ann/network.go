// Package ann implements a small fully connected feed-forward network with
// dropout, trained by mini-batch Adam on mean squared error.
package ann

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShape is returned when an input does not match the network input width
	ErrShape = errors.New("ann: input shape mismatch")

	// ErrEmptyDataset is returned when a training or validation set is empty
	ErrEmptyDataset = errors.New("ann: empty dataset")

	// ErrDiverged is returned when the loss becomes NaN or infinite
	ErrDiverged = errors.New("ann: loss is not finite")
)

// Activation names a layer activation function
type Activation string

const (
	ReLU   Activation = "relu"
	Linear Activation = "linear"
)

func (a Activation) apply(z float64) float64 {
	if a == ReLU {
		return math.Max(z, 0)
	}
	return z
}

func (a Activation) derivative(z float64) float64 {
	if a == ReLU {
		if z > 0 {
			return 1
		}
		return 0
	}
	return 1
}

// LayerSpec describes one dense layer to build
type LayerSpec struct {
	Units      int
	Activation Activation
	Dropout    float64 // fraction of this layer's outputs dropped during training
}

// Layer is a dense layer. Weights are stored row-major, Outputs x Inputs.
type Layer struct {
	Inputs     int        `json:"inputs"`
	Outputs    int        `json:"outputs"`
	Weights    []float64  `json:"weights"`
	Biases     []float64  `json:"biases"`
	Activation Activation `json:"activation"`
	Dropout    float64    `json:"dropout,omitempty"`
}

func (l *Layer) weightMatrix() *mat.Dense {
	return mat.NewDense(l.Outputs, l.Inputs, l.Weights)
}

// Network is a stack of dense layers ending in a single linear output
type Network struct {
	Layers []*Layer `json:"layers"`
}

// New builds a network with Glorot-uniform weights and zero biases.
func New(inputs int, specs []LayerSpec, rng *rand.Rand) (*Network, error) {
	if inputs <= 0 {
		return nil, fmt.Errorf("ann: input width must be positive, got %d", inputs)
	}
	if len(specs) == 0 {
		return nil, errors.New("ann: at least one layer is required")
	}

	n := &Network{Layers: make([]*Layer, 0, len(specs))}
	fanIn := inputs
	for i, spec := range specs {
		if spec.Units <= 0 {
			return nil, fmt.Errorf("ann: layer %d has %d units", i, spec.Units)
		}
		if spec.Dropout < 0 || spec.Dropout >= 1 {
			return nil, fmt.Errorf("ann: layer %d dropout %.2f out of [0,1)", i, spec.Dropout)
		}
		act := spec.Activation
		if act == "" {
			act = Linear
		}

		limit := math.Sqrt(6 / float64(fanIn+spec.Units))
		weights := make([]float64, spec.Units*fanIn)
		for j := range weights {
			weights[j] = (rng.Float64()*2 - 1) * limit
		}

		n.Layers = append(n.Layers, &Layer{
			Inputs:     fanIn,
			Outputs:    spec.Units,
			Weights:    weights,
			Biases:     make([]float64, spec.Units),
			Activation: act,
			Dropout:    spec.Dropout,
		})
		fanIn = spec.Units
	}

	if last := n.Layers[len(n.Layers)-1]; last.Outputs != 1 {
		return nil, fmt.Errorf("ann: output layer must have 1 unit, got %d", last.Outputs)
	}
	return n, nil
}

// InputWidth returns the expected feature count.
func (n *Network) InputWidth() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[0].Inputs
}

// Validate checks that layer shapes chain together and weights are finite.
func (n *Network) Validate() error {
	if len(n.Layers) == 0 {
		return errors.New("ann: network has no layers")
	}
	for i, l := range n.Layers {
		if l.Inputs <= 0 || l.Outputs <= 0 {
			return fmt.Errorf("ann: layer %d has shape %dx%d", i, l.Outputs, l.Inputs)
		}
		if len(l.Weights) != l.Inputs*l.Outputs || len(l.Biases) != l.Outputs {
			return fmt.Errorf("ann: layer %d parameter count does not match shape", i)
		}
		if i > 0 && n.Layers[i-1].Outputs != l.Inputs {
			return fmt.Errorf("ann: layer %d expects %d inputs, previous layer emits %d", i, l.Inputs, n.Layers[i-1].Outputs)
		}
		for _, w := range l.Weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return fmt.Errorf("ann: layer %d has non-finite weights", i)
			}
		}
	}
	if n.Layers[len(n.Layers)-1].Outputs != 1 {
		return errors.New("ann: output layer must have 1 unit")
	}
	return nil
}

// Predict runs inference (dropout disabled) and returns the scalar output.
func (n *Network) Predict(x []float64) (float64, error) {
	if len(x) != n.InputWidth() {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrShape, len(x), n.InputWidth())
	}
	out, _ := n.forward(x, nil)
	return out, nil
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{Layers: make([]*Layer, len(n.Layers))}
	for i, l := range n.Layers {
		cl := *l
		cl.Weights = append([]float64(nil), l.Weights...)
		cl.Biases = append([]float64(nil), l.Biases...)
		c.Layers[i] = &cl
	}
	return c
}

// copyFrom overwrites parameters with those of src, which must share the shape.
func (n *Network) copyFrom(src *Network) {
	for i, l := range n.Layers {
		copy(l.Weights, src.Layers[i].Weights)
		copy(l.Biases, src.Layers[i].Biases)
	}
}

// pass keeps the intermediate values of one forward pass for backpropagation
type pass struct {
	inputs []*mat.VecDense
	pre    []*mat.VecDense
	masks  [][]float64
}

// forward evaluates the network. A non-nil rng enables dropout (training mode).
func (n *Network) forward(x []float64, rng *rand.Rand) (float64, *pass) {
	p := &pass{
		inputs: make([]*mat.VecDense, len(n.Layers)),
		pre:    make([]*mat.VecDense, len(n.Layers)),
		masks:  make([][]float64, len(n.Layers)),
	}

	in := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for i, l := range n.Layers {
		p.inputs[i] = in

		z := mat.NewVecDense(l.Outputs, nil)
		z.MulVec(l.weightMatrix(), in)
		z.AddVec(z, mat.NewVecDense(l.Outputs, l.Biases))
		p.pre[i] = z

		out := mat.NewVecDense(l.Outputs, nil)
		for j := 0; j < l.Outputs; j++ {
			out.SetVec(j, l.Activation.apply(z.AtVec(j)))
		}

		if rng != nil && l.Dropout > 0 {
			keep := 1 - l.Dropout
			mask := make([]float64, l.Outputs)
			for j := range mask {
				if rng.Float64() < keep {
					mask[j] = 1 / keep
				}
				out.SetVec(j, out.AtVec(j)*mask[j])
			}
			p.masks[i] = mask
		}
		in = out
	}
	return in.AtVec(0), p
}

// backward accumulates parameter gradients for one sample given dLoss/dOutput.
func (n *Network) backward(p *pass, grad float64, g *gradients) {
	delta := mat.NewVecDense(1, []float64{grad})
	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := n.Layers[i]
		for j := 0; j < l.Outputs; j++ {
			d := delta.AtVec(j)
			if mask := p.masks[i]; mask != nil {
				d *= mask[j]
			}
			delta.SetVec(j, d*l.Activation.derivative(p.pre[i].AtVec(j)))
		}

		g.weights[i].RankOne(g.weights[i], 1, delta, p.inputs[i])
		for j := 0; j < l.Outputs; j++ {
			g.biases[i][j] += delta.AtVec(j)
		}

		if i > 0 {
			prev := mat.NewVecDense(l.Inputs, nil)
			prev.MulVec(l.weightMatrix().T(), delta)
			delta = prev
		}
	}
}

// gradients mirrors the network parameters
type gradients struct {
	weights []*mat.Dense
	biases  [][]float64
}

func newGradients(n *Network) *gradients {
	g := &gradients{
		weights: make([]*mat.Dense, len(n.Layers)),
		biases:  make([][]float64, len(n.Layers)),
	}
	for i, l := range n.Layers {
		g.weights[i] = mat.NewDense(l.Outputs, l.Inputs, nil)
		g.biases[i] = make([]float64, l.Outputs)
	}
	return g
}

func (g *gradients) zero() {
	for i := range g.weights {
		g.weights[i].Zero()
		clear(g.biases[i])
	}
}
