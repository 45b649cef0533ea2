package tensor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MaxElements bounds the number of float64 elements a single tensor may hold.
const MaxElements = 1 << 31

// Errors returned by tensor constructors.
var (
	ErrAllocation    = errors.New("tensor allocation failed")
	ErrShapeMismatch = errors.New("tensor shape mismatch")
)

// Tensor is a dense row-major matrix of float64 values.
//
// Every tensor is two dimensional: a batch of Rows samples with Cols values each.
// Image data is stored flattened as channel-major planes within a row
// (index = c*H*W + y*W + x).
//
// Example:
//
//	t, err := tensor.New(32, 784) // batch of 32 MNIST images
//	if err != nil {
//	    return err
//	}
//	defer t.Release()
type Tensor struct {
	Rows int
	Cols int
	Data []float64
}

// New allocates a zero-filled tensor with the given dimensions.
//
// Returns ErrAllocation if either dimension is not positive or the
// element count exceeds MaxElements.
func New(rows, cols int) (*Tensor, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	return &Tensor{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}, nil
}

// FromSlice wraps data as a rows x cols tensor. The slice is not copied.
func FromSlice(rows, cols int, data []float64) (*Tensor, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: shape (%d, %d) requires %d elements, got %d",
			ErrShapeMismatch, rows, cols, rows*cols, len(data))
	}
	return &Tensor{Rows: rows, Cols: cols, Data: data}, nil
}

// MustNew is like New but panics on error. Intended for tests and examples.
func MustNew(rows, cols int) *Tensor {
	t, err := New(rows, cols)
	if err != nil {
		panic(err)
	}
	return t
}

func checkDims(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: invalid shape (%d, %d)", ErrAllocation, rows, cols)
	}
	if rows > math.MaxInt/cols || rows*cols > MaxElements {
		return fmt.Errorf("%w: shape (%d, %d) exceeds %d elements", ErrAllocation, rows, cols, MaxElements)
	}
	return nil
}

// Size returns Rows*Cols.
func (t *Tensor) Size() int {
	return t.Rows * t.Cols
}

// Release drops the backing buffer. The tensor must not be used afterwards.
func (t *Tensor) Release() {
	t.Data = nil
	t.Rows = 0
	t.Cols = 0
}

// Released reports whether Release has been called.
func (t *Tensor) Released() bool {
	return t.Data == nil
}

// SameShape reports whether t and other have identical dimensions.
func (t *Tensor) SameShape(other *Tensor) bool {
	return t.Rows == other.Rows && t.Cols == other.Cols
}

// Row returns row i as a slice aliasing the tensor data.
func (t *Tensor) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// Slice returns rows [start, end) as a tensor sharing the backing array.
func (t *Tensor) Slice(start, end int) (*Tensor, error) {
	if start < 0 || end > t.Rows || start >= end {
		return nil, fmt.Errorf("%w: row range [%d, %d) outside (%d, %d)",
			ErrShapeMismatch, start, end, t.Rows, t.Cols)
	}
	return &Tensor{
		Rows: end - start,
		Cols: t.Cols,
		Data: t.Data[start*t.Cols : end*t.Cols : end*t.Cols],
	}, nil
}

// At returns the element at (row, col).
func (t *Tensor) At(row, col int) float64 {
	return t.Data[row*t.Cols+col]
}

// Set stores v at (row, col).
func (t *Tensor) Set(row, col int, v float64) {
	t.Data[row*t.Cols+col] = v
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// Zero sets every element to 0.
func (t *Tensor) Zero() {
	clear(t.Data)
}

// CopyFrom copies src into t. Both tensors must have the same shape.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.SameShape(src) {
		return fmt.Errorf("%w: copy (%d, %d) into (%d, %d)",
			ErrShapeMismatch, src.Rows, src.Cols, t.Rows, t.Cols)
	}
	copy(t.Data, src.Data)
	return nil
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Rows: t.Rows, Cols: t.Cols, Data: data}
}

// Equal reports whether t and other have the same shape and all elements
// within tol of each other.
func (t *Tensor) Equal(other *Tensor, tol float64) bool {
	return t.SameShape(other) && floats.EqualApprox(t.Data, other.Data, tol)
}

// Dense returns a gonum matrix view that shares t's backing data.
func (t *Tensor) Dense() *mat.Dense {
	return mat.NewDense(t.Rows, t.Cols, t.Data)
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%d, %d)", t.Rows, t.Cols)
}
