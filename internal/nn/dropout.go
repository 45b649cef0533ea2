package nn

import (
	"fmt"

	"github.com/tom-ml/tom/internal/tensor"
)

// Dropout zeroes each unit with probability Rate during training.
//
// Kept units pass through unscaled. In inference mode the layer copies its
// input. Backward multiplies the incoming gradient by the last mask.
type Dropout struct {
	base
	rate float64
	rng  RNG
	mask *tensor.Tensor
}

// NewDropout declares a dropout layer over size features.
func NewDropout(size int, rate float64) *Dropout {
	return &Dropout{
		base: base{shape: Shape{InputSize: size, OutputSize: size}},
		rate: rate,
	}
}

// Kind implements Layer.
func (l *Dropout) Kind() Kind { return KindDropout }

// Rate returns the drop probability.
func (l *Dropout) Rate() float64 { return l.rate }

// SetRate sets the drop probability. rate must be in [0, 1).
func (l *Dropout) SetRate(rate float64) { l.rate = rate }

// Materialize implements Layer.
func (l *Dropout) Materialize(io Buffers, rng RNG) error {
	if l.shape.InputSize != l.shape.OutputSize {
		return shapeErrorf("dropout: input %d != output %d", l.shape.InputSize, l.shape.OutputSize)
	}
	if l.rate < 0 || l.rate >= 1 {
		return fmt.Errorf("%w: dropout rate %g outside [0, 1)", ErrInvalidConfig, l.rate)
	}
	if rng == nil {
		return fmt.Errorf("%w: dropout requires an RNG", ErrInvalidConfig)
	}
	if err := l.bind(io); err != nil {
		return err
	}
	mask, err := tensor.New(io.Input.Rows, l.shape.InputSize)
	if err != nil {
		return err
	}
	mask.Fill(1)
	l.mask = mask
	l.rng = rng
	return nil
}

// Forward implements Layer.
func (l *Dropout) Forward(training bool) {
	in, out := l.io.Input.Data, l.io.Output.Data
	if !training {
		copy(out, in)
		return
	}
	keep := 1 - l.rate
	for i, v := range in {
		if l.rng.Uniform(0, 1) < keep {
			l.mask.Data[i] = 1
			out[i] = v
		} else {
			l.mask.Data[i] = 0
			out[i] = 0
		}
	}
}

// Backward implements Layer.
func (l *Dropout) Backward() {
	dIn, dOut := l.io.DInput.Data, l.io.DOutput.Data
	for i, g := range dOut {
		dIn[i] = g * l.mask.Data[i]
	}
}

// Release implements Layer.
func (l *Dropout) Release() {
	release(l.mask)
	l.mask = nil
}
