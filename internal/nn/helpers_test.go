package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/tensor"
)

const gradTolerance = 1e-4

// wire allocates fresh buffers for l and materializes it.
func wire(t *testing.T, l Layer, batch int, rng RNG) Buffers {
	t.Helper()
	s := l.Shape()
	io := Buffers{
		Input:   tensor.MustNew(batch, s.InputSize),
		Output:  tensor.MustNew(batch, s.OutputSize),
		DOutput: tensor.MustNew(batch, s.OutputSize),
		DInput:  tensor.MustNew(batch, s.InputSize),
	}
	require.NoError(t, l.Materialize(io, rng))
	t.Cleanup(l.Release)
	return io
}

func randomize(t *tensor.Tensor, rng RNG) {
	for i := range t.Data {
		t.Data[i] = rng.Uniform(-1, 1)
	}
}

// numericGrad estimates d objective / d target by central differences,
// restoring target afterwards.
func numericGrad(target []float64, objective func() float64) []float64 {
	orig := append([]float64(nil), target...)
	grad := fd.Gradient(nil, func(x []float64) float64 {
		copy(target, x)
		return objective()
	}, orig, &fd.Settings{Formula: fd.Central, Step: 1e-6})
	copy(target, orig)
	return grad
}

// weighted returns Σ output⊙weights after a forward pass.
func weighted(l Layer, training bool, weights *tensor.Tensor) func() float64 {
	return func() float64 {
		l.Forward(training)
		return floats.Dot(l.Buffers().Output.Data, weights.Data)
	}
}

func requireGradClose(t *testing.T, want, got []float64, name string) {
	t.Helper()
	require.Len(t, got, len(want), name)
	for i := range want {
		scale := math.Max(1, math.Max(math.Abs(want[i]), math.Abs(got[i])))
		require.LessOrEqualf(t, math.Abs(want[i]-got[i]), gradTolerance*scale,
			"%s[%d]: numeric %g, analytic %g", name, i, want[i], got[i])
	}
}

// checkLayerGradients compares the analytic input and parameter gradients of
// a materialized layer against finite differences of Σ output⊙G.
func checkLayerGradients(t *testing.T, l Layer, io Buffers, training bool, rng RNG) {
	t.Helper()
	randomize(io.Input, rng)
	randomize(io.DOutput, rng)

	objective := weighted(l, training, io.DOutput)
	scale := 1.0
	if l.Kind() == KindConv2D {
		scale = 1 / float64(io.Input.Rows)
	}
	scaled := func() float64 { return objective() * scale }

	var params []Param
	if tr, ok := l.(Trainable); ok {
		params = tr.Params()
	}
	wantInput := numericGrad(io.Input.Data, scaled)
	wantParams := make([][]float64, len(params))
	for i, p := range params {
		wantParams[i] = numericGrad(p.Value.Data, scaled)
	}

	l.Forward(training)
	l.Backward()

	requireGradClose(t, wantInput, io.DInput.Data, "d_input")
	for i, p := range params {
		requireGradClose(t, wantParams[i], p.Grad.Data, "d_"+p.Name)
	}
}
