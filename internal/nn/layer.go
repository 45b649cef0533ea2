package nn

import (
	"github.com/tom-ml/tom/internal/parallel"
	"github.com/tom-ml/tom/internal/tensor"
)

// loops splits the batch loops of the spatial layers.
var loops = parallel.DefaultConfig()

// Buffers are the four activation/gradient tensors a layer is wired to.
//
// All four are borrowed: the model owns them and a layer never releases
// them. A layer reads Input and DOutput and writes Output and DInput.
type Buffers struct {
	Input   *tensor.Tensor // (batch, InputSize)
	Output  *tensor.Tensor // (batch, OutputSize)
	DOutput *tensor.Tensor // (batch, OutputSize)
	DInput  *tensor.Tensor // (batch, InputSize)
}

// Layer is one stage of a model's chain.
//
// The set of implementations is closed: Dense, Conv2D, MaxPool2D, Padding2D,
// Dropout, Normalization, Quadratic, ReLU, LeakyReLU, Sigmoid, Tanh, Softmax.
//
// A layer is declared by its constructor (shape and configuration only),
// materialized once by Materialize (parameter and cache allocation, buffer
// wiring) and freed by Release (owned tensors only).
type Layer interface {
	// Kind returns the layer variant.
	Kind() Kind

	// Shape returns the declared shape record.
	Shape() Shape

	// Buffers returns the wired buffers. Zero before Materialize.
	Buffers() Buffers

	// Materialize validates io against the declared shape, allocates owned
	// parameters and caches, and applies initializers using rng.
	Materialize(io Buffers, rng RNG) error

	// Forward fills Output from Input. training selects batch behaviour
	// for Dropout and Normalization.
	Forward(training bool)

	// Backward fills DInput (and parameter gradients) from DOutput.
	Backward()

	// Release frees owned tensors.
	Release()

	sealed()
}

// Param is a trainable tensor paired with its gradient.
type Param struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// Trainable is implemented by layers with parameters.
type Trainable interface {
	Layer

	// Params returns the layer's parameters in a fixed order.
	// Only valid after Materialize.
	Params() []Param
}

// base carries the state shared by every layer.
type base struct {
	shape Shape
	io    Buffers
}

func (b *base) Shape() Shape     { return b.shape }
func (b *base) Buffers() Buffers { return b.io }
func (b *base) sealed()          {}

// bind checks io against the declared sizes and stores it.
func (b *base) bind(io Buffers) error {
	if b.shape.InputSize <= 0 || b.shape.OutputSize <= 0 {
		return shapeErrorf("declared sizes %d -> %d must be positive", b.shape.InputSize, b.shape.OutputSize)
	}
	if io.Input == nil || io.Output == nil || io.DOutput == nil || io.DInput == nil {
		return shapeErrorf("all four buffers must be provided")
	}
	n := io.Input.Rows
	for _, c := range []struct {
		name string
		t    *tensor.Tensor
		cols int
	}{
		{"input", io.Input, b.shape.InputSize},
		{"output", io.Output, b.shape.OutputSize},
		{"d_output", io.DOutput, b.shape.OutputSize},
		{"d_input", io.DInput, b.shape.InputSize},
	} {
		if c.t.Cols != c.cols {
			return shapeErrorf("%s has %d columns, want %d", c.name, c.t.Cols, c.cols)
		}
		if c.t.Rows != n {
			return shapeErrorf("%s has %d rows, want %d", c.name, c.t.Rows, n)
		}
	}
	b.io = io
	return nil
}

// allocate returns zeroed tensors for each requested shape, releasing any
// already allocated on failure.
func allocate(shapes ...[2]int) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, 0, len(shapes))
	for _, s := range shapes {
		t, err := tensor.New(s[0], s[1])
		if err != nil {
			for _, a := range out {
				a.Release()
			}
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func release(ts ...*tensor.Tensor) {
	for _, t := range ts {
		if t != nil {
			t.Release()
		}
	}
}
