// Copyright 2025 The Tom Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model provides the training engine for layer chains.
//
// # Overview
//
// A Model is declared layer by layer, finalized into a fixed chain with a
// preallocated activation arena, bound to an optimizer and trained with
// mini-batch gradient descent:
//
//	m, err := model.New(32, model.WithSeed(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	m.AddLayer(nn.KindDense, 784, 128)
//	m.AddLayer(nn.KindReLU, 128, 128)
//	m.AddLayer(nn.KindDense, 128, 10)
//	m.AddLayer(nn.KindSoftmax, 10, 10)
//	m.SetLoss(nn.LossCategoricalCrossEntropy)
//
//	if err := m.Finalize(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.InitOptimizers(optim.AdamConfig{}); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Train(x, y, 10, true); err != nil {
//	    log.Fatal(err)
//	}
//
// # Persistence
//
// Save and Load store the chain, the loss and every parameter in the .tom
// format. Optimizer state is not stored.
package model

import (
	"io"
	"log/slog"

	"github.com/tom-ml/tom/internal/model"
	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/serialization"
)

// Model is a fixed chain of layers terminated by a loss.
type Model = model.Model

// State is a model lifecycle state.
type State = model.State

// Model states.
const (
	Building  = model.Building
	Finalized = model.Finalized
	Ready     = model.Ready
)

// Option configures a Model.
type Option = model.Option

// New creates an empty model processing batchSize samples per pass.
func New(batchSize int, opts ...Option) (*Model, error) {
	return model.New(batchSize, opts...)
}

// WithRNG sets the random source used for initialization and dropout.
func WithRNG(rng nn.RNG) Option { return model.WithRNG(rng) }

// WithSeed seeds the default random source.
func WithSeed(seed uint64) Option { return model.WithSeed(seed) }

// WithLogger sets the logger used for training progress.
func WithLogger(logger *slog.Logger) Option { return model.WithLogger(logger) }

// Serialization errors.
var (
	ErrChecksumMismatch   = serialization.ErrChecksumMismatch
	ErrInvalidMagic       = serialization.ErrInvalidMagic
	ErrUnsupportedVersion = serialization.ErrUnsupportedVersion
	ErrUnknownKind        = serialization.ErrUnknownKind
)

// Write encodes a finalized model to w.
func Write(w io.Writer, m *Model) error {
	return serialization.Write(w, m)
}

// Read decodes a model from r and finalizes it with the given batch size.
func Read(r io.Reader, batchSize int, opts ...Option) (*Model, error) {
	return serialization.Read(r, batchSize, opts...)
}

// Save writes m to the file at path.
//
// Example:
//
//	if err := model.Save("mnist.tom", m); err != nil {
//	    log.Fatal(err)
//	}
func Save(path string, m *Model) error {
	return serialization.SaveFile(path, m)
}

// Load reads a model from the file at path.
//
// Example:
//
//	m, err := model.Load("mnist.tom", 64)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
func Load(path string, batchSize int, opts ...Option) (*Model, error) {
	return serialization.LoadFile(path, batchSize, opts...)
}
