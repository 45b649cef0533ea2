package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/tensor"
)

// Probabilities are clipped to [ClipMin, ClipMax] before taking logarithms.
const (
	ClipMin = 1e-5
	ClipMax = 1 - 1e-5
)

// Loss is the terminal node of a model.
//
// Input (the final activation), Target and DInput are borrowed from the
// model; the per-sample Output column is owned by the loss.
type Loss struct {
	kind   LossKind
	input  *tensor.Tensor // (batch, size)
	target *tensor.Tensor // (batch, size)
	dInput *tensor.Tensor // (batch, size)
	output *tensor.Tensor // (batch, 1)
}

// NewLoss wires a loss of the given kind. All three tensors must share one shape.
func NewLoss(kind LossKind, input, target, dInput *tensor.Tensor) (*Loss, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: loss %s", ErrInvalidKind, kind)
	}
	if !input.SameShape(target) || !input.SameShape(dInput) {
		return nil, shapeErrorf("loss: input (%d, %d), target (%d, %d), d_input (%d, %d)",
			input.Rows, input.Cols, target.Rows, target.Cols, dInput.Rows, dInput.Cols)
	}
	output, err := tensor.New(input.Rows, 1)
	if err != nil {
		return nil, err
	}
	return &Loss{kind: kind, input: input, target: target, dInput: dInput, output: output}, nil
}

// Kind returns the loss kind.
func (l *Loss) Kind() LossKind { return l.kind }

// Output returns the per-sample losses computed by the last Forward.
func (l *Loss) Output() *tensor.Tensor { return l.output }

// DInput returns the seed gradient buffer.
func (l *Loss) DInput() *tensor.Tensor { return l.dInput }

// Forward computes the per-sample losses and returns their mean.
func (l *Loss) Forward() float64 {
	out := l.output.Data
	for n := range out {
		x, y := l.input.Row(n), l.target.Row(n)
		var s float64
		switch l.kind {
		case LossMSE:
			for i := range x {
				d := x[i] - y[i]
				s += d * d
			}
		case LossMAE:
			for i := range x {
				s += math.Abs(x[i] - y[i])
			}
		case LossCategoricalCrossEntropy:
			var p float64
			for i := range x {
				p += y[i] * clip(x[i])
			}
			s = -math.Log(p)
		case LossBinaryCrossEntropy:
			for i := range x {
				c := clip(x[i])
				s -= y[i]*math.Log(c) + (1-y[i])*math.Log(1-c)
			}
			s /= float64(len(x))
		}
		out[n] = s
	}
	return floats.Sum(out) / float64(len(out))
}

// Backward writes dLoss/dInput into DInput.
//
//	MSE: 2(x-y)/size
//	MAE: sign(x-y)/size
//	CCE: -y/x/n
//	BCE: -(y/x - (1-y)/(1-x))/n
func (l *Loss) Backward() {
	x, y, d := l.input.Data, l.target.Data, l.dInput.Data
	size := float64(l.input.Cols)
	n := float64(l.input.Rows)
	switch l.kind {
	case LossMSE:
		for i := range d {
			d[i] = 2 * (x[i] - y[i]) / size
		}
	case LossMAE:
		for i := range d {
			d[i] = math.Copysign(1, x[i]-y[i]) / size
		}
	case LossCategoricalCrossEntropy:
		for i := range d {
			d[i] = -y[i] / clip(x[i]) / n
		}
	case LossBinaryCrossEntropy:
		for i := range d {
			c := clip(x[i])
			d[i] = -(y[i]/c - (1-y[i])/(1-c)) / n
		}
	}
}

// BackwardSoftmax writes the combined softmax and categorical cross-entropy
// gradient (ŷ-y)/n into DInput, where Input holds the softmax output.
func (l *Loss) BackwardSoftmax() {
	x, y, d := l.input.Data, l.target.Data, l.dInput.Data
	n := float64(l.input.Rows)
	for i := range d {
		d[i] = (x[i] - y[i]) / n
	}
}

// Release frees the per-sample output column.
func (l *Loss) Release() {
	release(l.output)
	l.output = nil
}

func clip(x float64) float64 {
	return math.Min(math.Max(x, ClipMin), ClipMax)
}
