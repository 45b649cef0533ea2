// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/tom-ml/tom/internal/tensor"
)

// Tensor is a dense row-major float64 matrix.
type Tensor = tensor.Tensor

// MaxElements is the largest element count a single tensor may hold.
const MaxElements = tensor.MaxElements

// Errors reported by tensor construction and shape checks.
var (
	ErrAllocation    = tensor.ErrAllocation
	ErrShapeMismatch = tensor.ErrShapeMismatch
)

// New allocates a zero-filled rows×cols tensor.
//
// Example:
//
//	x, err := tensor.New(32, 784) // 32 MNIST samples
func New(rows, cols int) (*Tensor, error) {
	return tensor.New(rows, cols)
}

// FromSlice wraps data as a rows×cols tensor without copying.
//
// Example:
//
//	x, err := tensor.FromSlice(2, 2, []float64{1, 2, 3, 4})
func FromSlice(rows, cols int, data []float64) (*Tensor, error) {
	return tensor.FromSlice(rows, cols, data)
}

// MustNew is like New but panics on error.
func MustNew(rows, cols int) *Tensor {
	return tensor.MustNew(rows, cols)
}
