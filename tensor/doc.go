// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the two-dimensional float64 buffer used throughout tom.
//
// # Overview
//
// A Tensor is a dense row-major matrix: one sample per row, one feature per
// column. Every activation, gradient and parameter in a model is a Tensor.
//
//   - New allocates a zeroed buffer and reports ErrAllocation for invalid
//     or oversized shapes
//   - FromSlice wraps existing data without copying
//   - Slice returns a row-range view sharing the backing array
//   - Dense exposes a gonum mat.Dense view for linear algebra
//
// # Basic Usage
//
//	import "github.com/tom-ml/tom/tensor"
//
//	func main() {
//	    x, err := tensor.New(4, 3)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    x.Set(0, 1, 2.5)
//	    x.Row(1)[2] = -1
//
//	    y := x.Clone()
//	    fmt.Println(x.Equal(y, 0)) // true
//	}
//
// # Ownership
//
// The code that allocates a tensor releases it. Views returned by Slice and
// Row never own their data.
package tensor
