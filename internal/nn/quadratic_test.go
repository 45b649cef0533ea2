package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuadratic_Forward(t *testing.T) {
	l := NewQuadratic(2, 1, QuadraticConfig{})
	io := wire(t, l, 1, NewRNG(1))

	copy(l.Weights().Data, []float64{1, 2})
	copy(l.Quad().Data, []float64{3, -1})
	l.Biases().Data[0] = 0.5
	copy(io.Input.Data, []float64{2, 3})

	l.Forward(false)

	// (4*3 + 9*-1) + (2*1 + 3*2) + 0.5
	assert.InDelta(t, 11.5, io.Output.Data[0], 1e-12)
}

func TestQuadratic_ForwardReusesLinearBuffer(t *testing.T) {
	l := NewQuadratic(3, 2, QuadraticConfig{})
	io := wire(t, l, 4, NewRNG(2))
	randomize(io.Input, NewRNG(3))

	linear := l.linear
	assert.Equal(t, 4, linear.Rows)
	assert.Equal(t, 2, linear.Cols)

	l.Forward(false)
	first := append([]float64(nil), io.Output.Data...)
	l.Forward(false)

	assert.Same(t, linear, l.linear)
	assert.Equal(t, first, io.Output.Data)

	l.Release()
	assert.Nil(t, l.linear)
}

func TestQuadratic_Gradients(t *testing.T) {
	rng := NewRNG(23)
	l := NewQuadratic(4, 3, QuadraticConfig{BiasInit: UniformRandom})
	io := wire(t, l, 5, rng)
	checkLayerGradients(t, l, io, true, rng)
}

func TestQuadratic_Params(t *testing.T) {
	l := NewQuadratic(3, 2, QuadraticConfig{})
	wire(t, l, 1, NewRNG(1))

	params := l.Params()
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
		assert.True(t, p.Value.SameShape(p.Grad))
	}
	assert.Equal(t, []string{"weights", "biases", "quad"}, names)
}
