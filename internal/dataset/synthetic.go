package dataset

import (
	"fmt"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

// MNIST image geometry.
const (
	MNISTHeight = 28
	MNISTWidth  = 28
)

// SyntheticDigits generates MNIST-shaped samples for exercising a training
// pipeline without the real files. Sample i has class i%10: a bright band of
// 8 rows starting at row 2·class, plus uniform noise of the given amplitude
// on every pixel. The result is not realistic handwriting.
func SyntheticDigits(samples int, noise float64, rng nn.RNG) (*Dataset, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: %d samples", nn.ErrInvalidConfig, samples)
	}
	if noise < 0 || noise > 1 {
		return nil, fmt.Errorf("%w: noise %g outside [0, 1]", nn.ErrInvalidConfig, noise)
	}

	x, err := tensor.New(samples, MNISTHeight*MNISTWidth)
	if err != nil {
		return nil, err
	}
	labels := make([]int, samples)
	for i := range samples {
		class := i % MNISTClasses
		labels[i] = class
		row := x.Row(i)
		for r := range MNISTHeight {
			for c := range MNISTWidth {
				v := rng.Uniform(0, noise)
				if r >= 2*class && r < 2*class+8 && c >= 5 && c < 23 {
					v = 0.8 + v*0.2
				}
				row[r*MNISTWidth+c] = v
			}
		}
	}

	y, err := OneHot(labels, MNISTClasses)
	if err != nil {
		x.Release()
		return nil, err
	}
	return &Dataset{X: x, Y: y, Labels: labels}, nil
}
