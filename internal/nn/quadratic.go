package nn

import (
	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/tensor"
)

// QuadraticConfig configures a Quadratic layer.
type QuadraticConfig struct {
	WeightInit Initializer // default: GlorotUniform
	QuadInit   Initializer // default: GlorotUniform
	BiasInit   Initializer // default: Zeros
}

// Quadratic is a dense layer with an additional second-order term:
//
//	output = (x⊙x)·Q + x·W + b
//
// Q and W have shape (in, out); b has shape (1, out).
type Quadratic struct {
	base
	config QuadraticConfig

	weights, quad, biases    *tensor.Tensor
	dWeights, dQuad, dBiases *tensor.Tensor
	squared                  *tensor.Tensor // x⊙x, cached by Forward
	linear                   *tensor.Tensor // x·W, (batch, out)
	scratch                  *tensor.Tensor // (batch, in)
}

// NewQuadratic declares a quadratic layer mapping in features to out features.
func NewQuadratic(in, out int, config QuadraticConfig) *Quadratic {
	return &Quadratic{
		base:   base{shape: Shape{InputSize: in, OutputSize: out}},
		config: config,
	}
}

// Kind implements Layer.
func (l *Quadratic) Kind() Kind { return KindQuadratic }

// Materialize implements Layer.
func (l *Quadratic) Materialize(io Buffers, rng RNG) error {
	if err := l.bind(io); err != nil {
		return err
	}
	in, out, n := l.shape.InputSize, l.shape.OutputSize, io.Input.Rows
	w, b := [2]int{in, out}, [2]int{1, out}
	ts, err := allocate(w, w, b, w, w, b, [2]int{n, in}, [2]int{n, out}, [2]int{n, in})
	if err != nil {
		return err
	}
	l.weights, l.quad, l.biases = ts[0], ts[1], ts[2]
	l.dWeights, l.dQuad, l.dBiases = ts[3], ts[4], ts[5]
	l.squared, l.linear, l.scratch = ts[6], ts[7], ts[8]

	for _, p := range []struct {
		t    *tensor.Tensor
		init Initializer
	}{
		{l.weights, l.config.WeightInit.or(GlorotUniform)},
		{l.quad, l.config.QuadInit.or(GlorotUniform)},
		{l.biases, l.config.BiasInit.or(Zeros)},
	} {
		if err := Fill(p.t, p.init, in, out, rng); err != nil {
			l.Release()
			return err
		}
	}
	return nil
}

// Forward implements Layer.
func (l *Quadratic) Forward(bool) {
	in := l.io.Input
	for i, v := range in.Data {
		l.squared.Data[i] = v * v
	}

	out := l.io.Output.Dense()
	out.Mul(l.squared.Dense(), l.quad.Dense())

	lin := l.linear.Dense()
	lin.Mul(in.Dense(), l.weights.Dense())
	out.Add(out, lin)

	for i := 0; i < l.io.Output.Rows; i++ {
		floats.Add(l.io.Output.Row(i), l.biases.Data)
	}
}

// Backward implements Layer.
//
//	dQ     = (x⊙x)ᵀ·dOut
//	dW     = xᵀ·dOut
//	db     = colsum(dOut)
//	dInput = dOut·Wᵀ + 2x⊙(dOut·Qᵀ)
func (l *Quadratic) Backward() {
	x, dOut := l.io.Input, l.io.DOutput

	l.dQuad.Dense().Mul(l.squared.Dense().T(), dOut.Dense())
	l.dWeights.Dense().Mul(x.Dense().T(), dOut.Dense())

	l.dBiases.Zero()
	for i := 0; i < dOut.Rows; i++ {
		floats.Add(l.dBiases.Data, dOut.Row(i))
	}

	l.io.DInput.Dense().Mul(dOut.Dense(), l.weights.Dense().T())
	l.scratch.Dense().Mul(dOut.Dense(), l.quad.Dense().T())
	for i, v := range x.Data {
		l.io.DInput.Data[i] += 2 * v * l.scratch.Data[i]
	}
}

// Params implements Trainable.
func (l *Quadratic) Params() []Param {
	return []Param{
		{Name: "weights", Value: l.weights, Grad: l.dWeights},
		{Name: "biases", Value: l.biases, Grad: l.dBiases},
		{Name: "quad", Value: l.quad, Grad: l.dQuad},
	}
}

// Weights returns the (in, out) linear weights.
func (l *Quadratic) Weights() *tensor.Tensor { return l.weights }

// Quad returns the (in, out) second-order weights.
func (l *Quadratic) Quad() *tensor.Tensor { return l.quad }

// Biases returns the (1, out) bias tensor.
func (l *Quadratic) Biases() *tensor.Tensor { return l.biases }

// Release implements Layer.
func (l *Quadratic) Release() {
	release(l.weights, l.quad, l.biases, l.dWeights, l.dQuad, l.dBiases, l.squared, l.linear, l.scratch)
	l.weights, l.quad, l.biases = nil, nil, nil
	l.dWeights, l.dQuad, l.dBiases = nil, nil, nil
	l.squared, l.linear, l.scratch = nil, nil, nil
}
