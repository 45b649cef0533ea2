// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training tom models.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum, Nesterov and decay
//   - Adam: Adaptive Moment Estimation with bias correction
//   - RMSProp: Root Mean Square Propagation
//
// An optimizer is described by a config struct and bound to every trainable
// layer of a model at once.
//
// # Basic Usage
//
//	if err := m.InitOptimizers(optim.AdamConfig{LearningRate: 0.001}); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Train(x, y, 10, true); err != nil {
//	    log.Fatal(err)
//	}
//
// # Optimizers
//
// SGD (Stochastic Gradient Descent):
//
//	optim.SGDConfig{
//	    LearningRate: 0.01,
//	    Momentum:     0.9,
//	    Nesterov:     true,
//	}
//
// Adam (Adaptive Moment Estimation):
//
//	optim.AdamConfig{
//	    LearningRate: 0.001,
//	    Beta1:        0.9,
//	    Beta2:        0.999,
//	    Epsilon:      1e-8,
//	}
//
// RMSProp:
//
//	optim.RMSPropConfig{
//	    LearningRate: 0.001,
//	    Rho:          0.9,
//	}
//
// Zero-valued fields take the defaults shown above. Every optimizer decays
// its learning rate as lr₀/(1 + Decay·t).
package optim
