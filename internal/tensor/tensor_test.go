package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	x, err := New(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, x.Rows)
	assert.Equal(t, 4, x.Cols)
	assert.Equal(t, 12, x.Size())
	assert.Len(t, x.Data, 12)
	for _, v := range x.Data {
		assert.Zero(t, v)
	}
}

func TestNew_InvalidShape(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
	}{
		{"zero rows", 0, 4},
		{"zero cols", 4, 0},
		{"negative", -1, 3},
		{"overflow", math.MaxInt / 2, 3},
		{"too large", MaxElements, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := New(tt.rows, tt.cols)
			require.ErrorIs(t, err, ErrAllocation)
			assert.Nil(t, x)
		})
	}
}

func TestFromSlice(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	x, err := FromSlice(2, 3, data)
	require.NoError(t, err)
	assert.Equal(t, 6.0, x.At(1, 2))

	// Shares the backing array.
	data[0] = 42
	assert.Equal(t, 42.0, x.At(0, 0))

	_, err = FromSlice(2, 2, data)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSliceAndRow(t *testing.T) {
	x, err := FromSlice(3, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 4}, x.Row(1))

	s, err := x.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, []float64{3, 4, 5, 6}, s.Data)

	s.Set(0, 0, -3)
	assert.Equal(t, -3.0, x.At(1, 0))

	_, err = x.Slice(2, 4)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = x.Slice(2, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCopyCloneEqual(t *testing.T) {
	a, _ := FromSlice(2, 2, []float64{1, 2, 3, 4})
	b := MustNew(2, 2)
	require.NoError(t, b.CopyFrom(a))
	assert.True(t, a.Equal(b, 0))

	c := a.Clone()
	c.Data[3] = 4.0000001
	assert.True(t, a.Equal(c, 1e-6))
	assert.False(t, a.Equal(c, 1e-9))

	wrong := MustNew(1, 4)
	assert.ErrorIs(t, wrong.CopyFrom(a), ErrShapeMismatch)
	assert.False(t, a.Equal(wrong, 1))
}

func TestFillZeroRelease(t *testing.T) {
	x := MustNew(2, 3)
	x.Fill(1.5)
	for _, v := range x.Data {
		assert.Equal(t, 1.5, v)
	}
	x.Zero()
	for _, v := range x.Data {
		assert.Zero(t, v)
	}

	assert.False(t, x.Released())
	x.Release()
	assert.True(t, x.Released())
	assert.Zero(t, x.Size())
}

func TestDenseView(t *testing.T) {
	x, _ := FromSlice(2, 2, []float64{1, 2, 3, 4})
	d := x.Dense()
	r, c := d.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)

	d.Set(1, 1, 9)
	assert.Equal(t, 9.0, x.At(1, 1))
}
