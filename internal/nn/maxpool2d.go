package nn

import (
	"math"

	"github.com/tom-ml/tom/internal/parallel"
	"github.com/tom-ml/tom/internal/tensor"
)

// MaxPool2D takes the maximum over each pool×pool window, per channel.
//
// Forward caches, per window, a mask of every position that equals the
// window maximum. Backward routes each output gradient to all masked
// positions, so tied maxima all receive the full gradient.
type MaxPool2D struct {
	base
	mask *tensor.Tensor // (batch, OutputSize*pool*pool)
}

// NewMaxPool2D declares max pooling over channels×height×width inputs.
//
// Returns ErrShapeMismatch if the window does not fit or the stride does not
// tile the input exactly.
func NewMaxPool2D(channels, height, width, pool, stride int) (*MaxPool2D, error) {
	if channels <= 0 {
		return nil, shapeErrorf("maxpool2d: channels %d must be positive", channels)
	}
	oh, err := OutputDim(height, pool, stride)
	if err != nil {
		return nil, err
	}
	ow, err := OutputDim(width, pool, stride)
	if err != nil {
		return nil, err
	}
	return &MaxPool2D{base: base{shape: Shape{
		InputSize:      channels * height * width,
		OutputSize:     channels * oh * ow,
		InputChannels:  channels,
		InputHeight:    height,
		InputWidth:     width,
		OutputChannels: channels,
		OutputHeight:   oh,
		OutputWidth:    ow,
		FilterSize:     pool,
		Stride:         stride,
	}}}, nil
}

// Kind implements Layer.
func (l *MaxPool2D) Kind() Kind { return KindMaxPool2D }

// Materialize implements Layer.
func (l *MaxPool2D) Materialize(io Buffers, _ RNG) error {
	if err := l.bind(io); err != nil {
		return err
	}
	pp := l.shape.FilterSize * l.shape.FilterSize
	mask, err := tensor.New(io.Input.Rows, l.shape.OutputSize*pp)
	if err != nil {
		return err
	}
	l.mask = mask
	return nil
}

// Forward implements Layer.
func (l *MaxPool2D) Forward(bool) {
	s := l.shape
	p := s.FilterSize
	pp := p * p
	inPlane := s.InputHeight * s.InputWidth
	outPlane := s.OutputHeight * s.OutputWidth

	parallel.ForBatch(l.io.Input.Rows, s.InputChannels, outPlane*pp, func(n, c int) {
		in := l.io.Input.Row(n)
		out := l.io.Output.Row(n)
		mask := l.mask.Row(n)
		for oy := 0; oy < s.OutputHeight; oy++ {
			for ox := 0; ox < s.OutputWidth; ox++ {
				cell := c*outPlane + oy*s.OutputWidth + ox
				origin := c*inPlane + oy*s.Stride*s.InputWidth + ox*s.Stride

				maxVal := math.Inf(-1)
				for ky := 0; ky < p; ky++ {
					for kx := 0; kx < p; kx++ {
						maxVal = math.Max(maxVal, in[origin+ky*s.InputWidth+kx])
					}
				}
				out[cell] = maxVal

				m := mask[cell*pp : (cell+1)*pp]
				for ky := 0; ky < p; ky++ {
					for kx := 0; kx < p; kx++ {
						if in[origin+ky*s.InputWidth+kx] == maxVal {
							m[ky*p+kx] = 1
						} else {
							m[ky*p+kx] = 0
						}
					}
				}
			}
		}
	}, loops)
}

// Backward implements Layer.
func (l *MaxPool2D) Backward() {
	s := l.shape
	p := s.FilterSize
	pp := p * p
	inPlane := s.InputHeight * s.InputWidth
	outPlane := s.OutputHeight * s.OutputWidth

	l.io.DInput.Zero()
	parallel.ForBatch(l.io.DInput.Rows, s.InputChannels, outPlane*pp, func(n, c int) {
		dIn := l.io.DInput.Row(n)
		dOut := l.io.DOutput.Row(n)
		mask := l.mask.Row(n)
		for oy := 0; oy < s.OutputHeight; oy++ {
			for ox := 0; ox < s.OutputWidth; ox++ {
				cell := c*outPlane + oy*s.OutputWidth + ox
				origin := c*inPlane + oy*s.Stride*s.InputWidth + ox*s.Stride
				g := dOut[cell]
				m := mask[cell*pp : (cell+1)*pp]
				for ky := 0; ky < p; ky++ {
					for kx := 0; kx < p; kx++ {
						dIn[origin+ky*s.InputWidth+kx] += g * m[ky*p+kx]
					}
				}
			}
		}
	}, loops)
}

// Release implements Layer.
func (l *MaxPool2D) Release() {
	release(l.mask)
	l.mask = nil
}
