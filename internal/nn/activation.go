package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// activation is the shared declaration of size-preserving element-wise layers.
type activation struct {
	base
}

func newActivation(size int) activation {
	return activation{base: base{shape: Shape{InputSize: size, OutputSize: size}}}
}

func (a *activation) materialize(io Buffers) error {
	if a.shape.InputSize != a.shape.OutputSize {
		return shapeErrorf("activation: input %d != output %d", a.shape.InputSize, a.shape.OutputSize)
	}
	return a.bind(io)
}

// Release implements Layer. Activations own no tensors.
func (a *activation) Release() {}

// ReLU applies f(x) = max(0, x).
type ReLU struct{ activation }

// NewReLU declares a ReLU layer over size features.
func NewReLU(size int) *ReLU { return &ReLU{newActivation(size)} }

// Kind implements Layer.
func (l *ReLU) Kind() Kind { return KindReLU }

// Materialize implements Layer.
func (l *ReLU) Materialize(io Buffers, _ RNG) error { return l.materialize(io) }

// Forward implements Layer.
func (l *ReLU) Forward(bool) {
	out := l.io.Output.Data
	for i, x := range l.io.Input.Data {
		out[i] = math.Max(0, x)
	}
}

// Backward implements Layer.
func (l *ReLU) Backward() {
	dIn, dOut := l.io.DInput.Data, l.io.DOutput.Data
	for i, x := range l.io.Input.Data {
		if x > 0 {
			dIn[i] = dOut[i]
		} else {
			dIn[i] = 0
		}
	}
}

// LeakyReLU applies f(x) = x for x >= 0 and rate·x otherwise.
type LeakyReLU struct {
	activation
	rate float64
}

// NewLeakyReLU declares a leaky ReLU layer. A zero rate defaults to 0.01.
func NewLeakyReLU(size int, rate float64) *LeakyReLU {
	if rate == 0 {
		rate = 0.01
	}
	return &LeakyReLU{activation: newActivation(size), rate: rate}
}

// Kind implements Layer.
func (l *LeakyReLU) Kind() Kind { return KindLeakyReLU }

// Rate returns the negative slope.
func (l *LeakyReLU) Rate() float64 { return l.rate }

// SetRate sets the negative slope.
func (l *LeakyReLU) SetRate(rate float64) { l.rate = rate }

// Materialize implements Layer.
func (l *LeakyReLU) Materialize(io Buffers, _ RNG) error { return l.materialize(io) }

// Forward implements Layer.
func (l *LeakyReLU) Forward(bool) {
	out := l.io.Output.Data
	for i, x := range l.io.Input.Data {
		if x < 0 {
			out[i] = l.rate * x
		} else {
			out[i] = x
		}
	}
}

// Backward implements Layer.
func (l *LeakyReLU) Backward() {
	dIn, dOut := l.io.DInput.Data, l.io.DOutput.Data
	for i, x := range l.io.Input.Data {
		if x > 0 {
			dIn[i] = dOut[i]
		} else {
			dIn[i] = l.rate * dOut[i]
		}
	}
}

// Sigmoid applies σ(x) = 1/(1+exp(-x)).
type Sigmoid struct{ activation }

// NewSigmoid declares a sigmoid layer over size features.
func NewSigmoid(size int) *Sigmoid { return &Sigmoid{newActivation(size)} }

// Kind implements Layer.
func (l *Sigmoid) Kind() Kind { return KindSigmoid }

// Materialize implements Layer.
func (l *Sigmoid) Materialize(io Buffers, _ RNG) error { return l.materialize(io) }

// Forward implements Layer.
func (l *Sigmoid) Forward(bool) {
	out := l.io.Output.Data
	for i, x := range l.io.Input.Data {
		out[i] = sigmoid(x)
	}
}

// Backward implements Layer. Uses σ'(x) = σ(x)(1-σ(x)) recomputed from the input.
func (l *Sigmoid) Backward() {
	dIn, dOut := l.io.DInput.Data, l.io.DOutput.Data
	for i, x := range l.io.Input.Data {
		s := sigmoid(x)
		dIn[i] = dOut[i] * s * (1 - s)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Tanh applies the hyperbolic tangent.
type Tanh struct{ activation }

// NewTanh declares a tanh layer over size features.
func NewTanh(size int) *Tanh { return &Tanh{newActivation(size)} }

// Kind implements Layer.
func (l *Tanh) Kind() Kind { return KindTanh }

// Materialize implements Layer.
func (l *Tanh) Materialize(io Buffers, _ RNG) error { return l.materialize(io) }

// Forward implements Layer.
func (l *Tanh) Forward(bool) {
	out := l.io.Output.Data
	for i, x := range l.io.Input.Data {
		out[i] = math.Tanh(x)
	}
}

// Backward implements Layer.
func (l *Tanh) Backward() {
	dIn, dOut := l.io.DInput.Data, l.io.DOutput.Data
	for i, y := range l.io.Output.Data {
		dIn[i] = dOut[i] * (1 - y*y)
	}
}

// Softmax normalizes each row into a probability distribution.
//
// Forward subtracts the row maximum before exponentiating. Backward applies
// the full Jacobian: dIn_i = s_i·(dOut_i - Σ_j dOut_j·s_j).
//
// When a Softmax is the last layer of a model trained with categorical
// cross-entropy, the model skips this Backward and the loss writes the
// combined gradient directly.
type Softmax struct{ activation }

// NewSoftmax declares a softmax layer over size features.
func NewSoftmax(size int) *Softmax { return &Softmax{newActivation(size)} }

// Kind implements Layer.
func (l *Softmax) Kind() Kind { return KindSoftmax }

// Materialize implements Layer.
func (l *Softmax) Materialize(io Buffers, _ RNG) error { return l.materialize(io) }

// Forward implements Layer.
func (l *Softmax) Forward(bool) {
	for n := 0; n < l.io.Input.Rows; n++ {
		in, out := l.io.Input.Row(n), l.io.Output.Row(n)
		maxVal := floats.Max(in)
		var sum float64
		for i, x := range in {
			out[i] = math.Exp(x - maxVal)
			sum += out[i]
		}
		floats.Scale(1/sum, out)
	}
}

// Backward implements Layer.
func (l *Softmax) Backward() {
	for n := 0; n < l.io.Output.Rows; n++ {
		s := l.io.Output.Row(n)
		dOut, dIn := l.io.DOutput.Row(n), l.io.DInput.Row(n)
		dot := floats.Dot(dOut, s)
		for i := range s {
			dIn[i] = s[i] * (dOut[i] - dot)
		}
	}
}
