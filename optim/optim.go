// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/optim"
)

// Optimizer updates the parameters of one trainable layer.
type Optimizer = optim.Optimizer

// Config describes an optimizer: SGDConfig, AdamConfig or RMSPropConfig.
type Config = optim.Config

// Kind identifies an optimizer algorithm.
type Kind = optim.Kind

// Optimizer kinds.
const (
	KindSGD     = optim.KindSGD
	KindAdam    = optim.KindAdam
	KindRMSProp = optim.KindRMSProp
)

// SGDConfig contains configuration for the SGD optimizer.
type SGDConfig = optim.SGDConfig

// AdamConfig contains configuration for the Adam optimizer.
type AdamConfig = optim.AdamConfig

// RMSPropConfig contains configuration for the RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// New binds an optimizer described by config to a single layer.
//
// Example:
//
//	opt, err := optim.New(optim.SGDConfig{LearningRate: 0.1}, dense)
func New(config Config, layer nn.Layer) (Optimizer, error) {
	return optim.New(config, layer)
}

// Supports reports whether optimizers can be bound to layers of kind k.
func Supports(k nn.Kind) bool {
	return optim.Supports(k)
}
