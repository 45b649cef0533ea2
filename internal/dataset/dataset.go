// Package dataset loads and prepares sample matrices for training.
//
// Loaders return a Dataset whose X holds one sample per row and whose Y holds
// the matching one-hot targets. Helpers shuffle, rescale and split datasets
// in place without reallocating sample buffers.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

// Common errors.
var (
	ErrFormat     = errors.New("malformed dataset")
	ErrLabelRange = errors.New("label out of range")
)

// Dataset pairs samples with their targets.
type Dataset struct {
	X       *tensor.Tensor // (samples, features)
	Y       *tensor.Tensor // (samples, classes), one-hot
	Labels  []int          // class index per sample
	Classes []string       // class names, when the source provides them
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if d.X == nil {
		return 0
	}
	return d.X.Rows
}

// Split divides the dataset into a leading part and a trailing holdout of
// fraction·Len samples. Both parts share the original buffers.
func (d *Dataset) Split(fraction float64) (train, holdout *Dataset, err error) {
	if fraction < 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("%w: split fraction %g outside [0, 1)", nn.ErrInvalidConfig, fraction)
	}
	n := d.Len()
	cut := n - int(float64(n)*fraction)
	return d.slice(0, cut), d.slice(cut, n), nil
}

// Truncate returns the leading samples whose count is the largest multiple
// of batch not exceeding Len. The result shares the original buffers.
func (d *Dataset) Truncate(batch int) (*Dataset, error) {
	if batch <= 0 {
		return nil, fmt.Errorf("%w: batch size %d must be positive", nn.ErrInvalidConfig, batch)
	}
	n := d.Len() - d.Len()%batch
	if n == 0 {
		return nil, fmt.Errorf("%w: %d samples, batch size %d", nn.ErrUnevenBatchDivision, d.Len(), batch)
	}
	return d.slice(0, n), nil
}

func (d *Dataset) slice(start, end int) *Dataset {
	out := &Dataset{Classes: d.Classes}
	if end <= start {
		return out
	}
	out.X, _ = d.X.Slice(start, end)
	out.Y, _ = d.Y.Slice(start, end)
	if d.Labels != nil {
		out.Labels = d.Labels[start:end]
	}
	return out
}

// OneHot encodes labels as rows of a (len(labels), classes) matrix.
func OneHot(labels []int, classes int) (*tensor.Tensor, error) {
	if classes <= 0 {
		return nil, fmt.Errorf("%w: %d classes", nn.ErrInvalidConfig, classes)
	}
	y, err := tensor.New(len(labels), classes)
	if err != nil {
		return nil, err
	}
	for i, l := range labels {
		if l < 0 || l >= classes {
			y.Release()
			return nil, fmt.Errorf("%w: sample %d has label %d, want [0, %d)", ErrLabelRange, i, l, classes)
		}
		y.Set(i, l, 1)
	}
	return y, nil
}

// Shuffle permutes the rows of x and y with the same Fisher–Yates sequence.
// labels, when non-nil, is permuted alongside.
func Shuffle(x, y *tensor.Tensor, labels []int, rng nn.RNG) error {
	if x.Rows != y.Rows || (labels != nil && len(labels) != x.Rows) {
		return fmt.Errorf("%w: %d samples, %d targets", nn.ErrSampleCountMismatch, x.Rows, y.Rows)
	}
	for i := x.Rows - 1; i > 0; i-- {
		j := min(int(rng.Uniform(0, float64(i+1))), i)
		if i == j {
			continue
		}
		swapRows(x, i, j)
		swapRows(y, i, j)
		if labels != nil {
			labels[i], labels[j] = labels[j], labels[i]
		}
	}
	return nil
}

func swapRows(t *tensor.Tensor, i, j int) {
	a, b := t.Row(i), t.Row(j)
	for k := range a {
		a[k], b[k] = b[k], a[k]
	}
}

// Scale linearly maps every feature column of x onto [lo, hi].
// Constant columns are set to lo.
func Scale(x *tensor.Tensor, lo, hi float64) error {
	if hi <= lo {
		return fmt.Errorf("%w: scale range [%g, %g]", nn.ErrInvalidConfig, lo, hi)
	}
	col := make([]float64, x.Rows)
	for c := 0; c < x.Cols; c++ {
		for r := range col {
			col[r] = x.At(r, c)
		}
		cmin, cmax := floats.Min(col), floats.Max(col)
		span := cmax - cmin
		for r := range col {
			v := lo
			if span > 0 {
				v = lo + (col[r]-cmin)/span*(hi-lo)
			}
			x.Set(r, c, v)
		}
	}
	return nil
}

// Normalize scales every row of x to unit L2 norm. Zero rows are left as is.
func Normalize(x *tensor.Tensor) {
	for r := 0; r < x.Rows; r++ {
		row := x.Row(r)
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
	}
}

// Accuracy returns the fraction of rows whose arg-max in pred matches the
// arg-max in target.
func Accuracy(pred, target *tensor.Tensor) (float64, error) {
	if !pred.SameShape(target) {
		return 0, fmt.Errorf("%w: predictions (%d, %d), targets (%d, %d)",
			nn.ErrShapeMismatch, pred.Rows, pred.Cols, target.Rows, target.Cols)
	}
	if pred.Rows == 0 {
		return 0, nil
	}
	var correct int
	for r := 0; r < pred.Rows; r++ {
		if floats.MaxIdx(pred.Row(r)) == floats.MaxIdx(target.Row(r)) {
			correct++
		}
	}
	return float64(correct) / float64(pred.Rows), nil
}
