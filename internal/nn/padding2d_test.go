package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadding2D_Modes(t *testing.T) {
	input := []float64{
		1, 2, 3,
		4, 5, 6,
	}

	tests := []struct {
		name string
		mode PaddingMode
		want []float64
	}{
		{"zero", PadZero, []float64{
			0, 0, 0, 0, 0,
			0, 1, 2, 3, 0,
			0, 4, 5, 6, 0,
			0, 0, 0, 0, 0,
		}},
		{"symmetric", PadSymmetric, []float64{
			1, 1, 2, 3, 3,
			1, 1, 2, 3, 3,
			4, 4, 5, 6, 6,
			4, 4, 5, 6, 6,
		}},
		{"reflection", PadReflection, []float64{
			5, 4, 5, 6, 5,
			2, 1, 2, 3, 2,
			5, 4, 5, 6, 5,
			2, 1, 2, 3, 2,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewPadding2D(1, 2, 3, 1, 1, tt.mode)
			require.NoError(t, err)
			s := l.Shape()
			assert.Equal(t, 4, s.OutputHeight)
			assert.Equal(t, 5, s.OutputWidth)

			io := wire(t, l, 1, nil)
			copy(io.Input.Data, input)
			l.Forward(false)
			assert.Equal(t, tt.want, io.Output.Data)
		})
	}
}

func TestPadding2D_BackwardScatterAdds(t *testing.T) {
	l, err := NewPadding2D(1, 2, 2, 1, 0, PadSymmetric)
	require.NoError(t, err)
	io := wire(t, l, 1, nil)

	// Output is 2x4: [a a b b] per row.
	io.DOutput.Fill(1)
	l.Backward()
	assert.Equal(t, []float64{2, 2, 2, 2}, io.DInput.Data)

	zero, err := NewPadding2D(1, 2, 2, 1, 1, PadZero)
	require.NoError(t, err)
	zio := wire(t, zero, 1, nil)
	zio.DOutput.Fill(1)
	zero.Backward()
	assert.Equal(t, []float64{1, 1, 1, 1}, zio.DInput.Data)
}

func TestPadding2D_Gradients(t *testing.T) {
	rng := NewRNG(5)
	l, err := NewPadding2D(2, 3, 4, 2, 1, PadReflection)
	require.NoError(t, err)
	io := wire(t, l, 2, rng)
	checkLayerGradients(t, l, io, false, rng)
}

func TestPadding2D_Invalid(t *testing.T) {
	_, err := NewPadding2D(1, 2, 3, 3, 1, PadZero)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NewPadding2D(1, 2, 3, 1, 2, PadZero)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NewPadding2D(1, 2, 3, 1, 1, PaddingMode(7))
	assert.ErrorIs(t, err, ErrInvalidKind)
}
