package nn

import (
	"fmt"
	"math"

	"github.com/tom-ml/tom/internal/tensor"
)

// NormalizationConfig configures a Normalization layer.
type NormalizationConfig struct {
	Epsilon   float64     // default: 1e-3
	Momentum  float64     // running statistics decay (default: 0.99)
	GammaInit Initializer // default: Ones
	BetaInit  Initializer // default: Zeros
}

// Normalization is a batch normalization layer (Ioffe & Szegedy, 2015).
//
// Training forward normalizes each feature with the batch mean and
// population variance, then applies output = γ·x̂ + β. The running
// statistics start at zero and follow
//
//	running = momentum·running + (1-momentum)·batch
//
// Inference forward uses the running statistics instead.
type Normalization struct {
	base
	config NormalizationConfig

	gamma, beta     *tensor.Tensor
	dGamma, dBeta   *tensor.Tensor
	mean, variance  *tensor.Tensor
	runMean, runVar *tensor.Tensor
}

// NewNormalization declares a batch normalization layer over size features.
func NewNormalization(size int, config NormalizationConfig) *Normalization {
	if config.Epsilon == 0 {
		config.Epsilon = 1e-3
	}
	if config.Momentum == 0 {
		config.Momentum = 0.99
	}
	return &Normalization{
		base:   base{shape: Shape{InputSize: size, OutputSize: size}},
		config: config,
	}
}

// Kind implements Layer.
func (l *Normalization) Kind() Kind { return KindNormalization }

// Config returns the layer configuration.
func (l *Normalization) Config() NormalizationConfig { return l.config }

// Materialize implements Layer.
func (l *Normalization) Materialize(io Buffers, rng RNG) error {
	size := l.shape.InputSize
	if size != l.shape.OutputSize {
		return shapeErrorf("normalization: input %d != output %d", size, l.shape.OutputSize)
	}
	if l.config.Epsilon <= 0 || l.config.Momentum < 0 || l.config.Momentum >= 1 {
		return fmt.Errorf("%w: normalization epsilon %g, momentum %g", ErrInvalidConfig, l.config.Epsilon, l.config.Momentum)
	}
	if err := l.bind(io); err != nil {
		return err
	}
	row := [2]int{1, size}
	ts, err := allocate(row, row, row, row, row, row, row, row)
	if err != nil {
		return err
	}
	l.gamma, l.beta, l.dGamma, l.dBeta = ts[0], ts[1], ts[2], ts[3]
	l.mean, l.variance, l.runMean, l.runVar = ts[4], ts[5], ts[6], ts[7]

	if err := Fill(l.gamma, l.config.GammaInit.or(Ones), size, size, rng); err != nil {
		l.Release()
		return err
	}
	if err := Fill(l.beta, l.config.BetaInit.or(Zeros), size, size, rng); err != nil {
		l.Release()
		return err
	}
	return nil
}

// Forward implements Layer.
func (l *Normalization) Forward(training bool) {
	in, out := l.io.Input, l.io.Output
	size, m := in.Cols, float64(in.Rows)
	eps, mom := l.config.Epsilon, l.config.Momentum

	for i := 0; i < size; i++ {
		var mean, variance float64
		if training {
			for j := 0; j < in.Rows; j++ {
				mean += in.Data[j*size+i]
			}
			mean /= m
			for j := 0; j < in.Rows; j++ {
				d := in.Data[j*size+i] - mean
				variance += d * d
			}
			variance /= m

			l.mean.Data[i] = mean
			l.variance.Data[i] = variance
			l.runMean.Data[i] = mom*l.runMean.Data[i] + (1-mom)*mean
			l.runVar.Data[i] = mom*l.runVar.Data[i] + (1-mom)*variance
		} else {
			mean, variance = l.runMean.Data[i], l.runVar.Data[i]
		}

		scale := l.gamma.Data[i] / math.Sqrt(variance+eps)
		for j := 0; j < in.Rows; j++ {
			out.Data[j*size+i] = scale*(in.Data[j*size+i]-mean) + l.beta.Data[i]
		}
	}
}

// Backward implements Layer.
//
// With t = 1/sqrt(var+ε) and m the batch size:
//
//	dγ     = Σ dOut·(x-mean)·t
//	dβ     = Σ dOut
//	dInput = (γ·t/m)·(m·dOut - Σ dOut - t²·(x-mean)·Σ dOut·(x-mean))
func (l *Normalization) Backward() {
	in, dIn, dOut := l.io.Input, l.io.DInput, l.io.DOutput
	size, m := in.Cols, float64(in.Rows)

	for i := 0; i < size; i++ {
		mean := l.mean.Data[i]
		t := 1 / math.Sqrt(l.variance.Data[i]+l.config.Epsilon)

		var sumD, sumDX float64
		for j := 0; j < in.Rows; j++ {
			g := dOut.Data[j*size+i]
			sumD += g
			sumDX += g * (in.Data[j*size+i] - mean)
		}
		l.dGamma.Data[i] = sumDX * t
		l.dBeta.Data[i] = sumD

		k := l.gamma.Data[i] * t / m
		for j := 0; j < in.Rows; j++ {
			idx := j*size + i
			dIn.Data[idx] = k * (m*dOut.Data[idx] - sumD - t*t*(in.Data[idx]-mean)*sumDX)
		}
	}
}

// Params implements Trainable.
func (l *Normalization) Params() []Param {
	return []Param{
		{Name: "gamma", Value: l.gamma, Grad: l.dGamma},
		{Name: "beta", Value: l.beta, Grad: l.dBeta},
	}
}

// Gamma returns the (1, size) scale tensor.
func (l *Normalization) Gamma() *tensor.Tensor { return l.gamma }

// Beta returns the (1, size) shift tensor.
func (l *Normalization) Beta() *tensor.Tensor { return l.beta }

// RunningMean returns the running mean used in inference mode.
func (l *Normalization) RunningMean() *tensor.Tensor { return l.runMean }

// RunningVariance returns the running variance used in inference mode.
func (l *Normalization) RunningVariance() *tensor.Tensor { return l.runVar }

// Release implements Layer.
func (l *Normalization) Release() {
	release(l.gamma, l.beta, l.dGamma, l.dBeta, l.mean, l.variance, l.runMean, l.runVar)
	l.gamma, l.beta, l.dGamma, l.dBeta = nil, nil, nil, nil
	l.mean, l.variance, l.runMean, l.runVar = nil, nil, nil, nil
}
