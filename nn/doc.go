// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers, activations and losses of a tom model.
//
// # Overview
//
// This package contains:
//   - Layers: Dense, Conv2D, MaxPool2D, Padding2D, Dropout, Normalization, Quadratic
//   - Activations: ReLU, LeakyReLU, Sigmoid, Tanh, Softmax
//   - Losses: MSE, MAE, categorical and binary cross-entropy
//   - Initialization: Zeros, Ones, uniform/normal, Glorot and He variants
//
// Layers are declared with a constructor, then materialized by a model
// which wires them into its activation arena. Most programs never call
// Materialize directly and use the model package instead.
//
// # Basic Usage
//
//	import (
//	    "github.com/tom-ml/tom/model"
//	    "github.com/tom-ml/tom/nn"
//	)
//
//	func main() {
//	    m, _ := model.New(32)
//	    fc, _ := m.AddLayer(nn.KindDense, 784, 128)
//	    fc.(*nn.Dense).SetInitializers(nn.HeUniform, nn.Zeros)
//	    m.AddLayer(nn.KindReLU, 128, 128)
//	    m.AddLayer(nn.KindDense, 128, 10)
//	    m.AddLayer(nn.KindSoftmax, 10, 10)
//	    m.SetLoss(nn.LossCategoricalCrossEntropy)
//	}
//
// # Errors
//
// Failures wrap one of the sentinel errors (ErrShapeMismatch,
// ErrInvalidKind, ...) and are matched with errors.Is. Errors tied to a
// position in a chain are reported as *LayerError.
package nn
