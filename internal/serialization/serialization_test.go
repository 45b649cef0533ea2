package serialization

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tom-ml/tom/internal/model"
	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/optim"
	"github.com/tom-ml/tom/internal/tensor"
)

// trainedModel builds a chain covering every persisted layer kind and trains
// it briefly so that parameters and running statistics move away from their
// initial values.
func trainedModel(t *testing.T) (*model.Model, *tensor.Tensor) {
	t.Helper()
	m, err := model.New(2, model.WithSeed(21))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	_, err = m.AddPadding2D(1, 4, 4, 1, 1, nn.PadSymmetric)
	require.NoError(t, err)
	_, err = m.AddConv2D(1, 6, 6, 2, 3, 1)
	require.NoError(t, err)
	_, err = m.AddLayer(nn.KindReLU, 32, 32)
	require.NoError(t, err)
	_, err = m.AddMaxPool2D(2, 4, 4, 2, 2)
	require.NoError(t, err)
	_, err = m.AddLayer(nn.KindNormalization, 8, 8)
	require.NoError(t, err)
	dense, err := m.AddLayer(nn.KindDense, 8, 6)
	require.NoError(t, err)
	dense.(*nn.Dense).SetRegularization(0.001, 0.01, 0, 0.002)
	leaky, err := m.AddLayer(nn.KindLeakyReLU, 6, 6)
	require.NoError(t, err)
	leaky.(*nn.LeakyReLU).SetRate(0.2)
	drop, err := m.AddLayer(nn.KindDropout, 6, 6)
	require.NoError(t, err)
	drop.(*nn.Dropout).SetRate(0.25)
	_, err = m.AddLayer(nn.KindQuadratic, 6, 3)
	require.NoError(t, err)
	_, err = m.AddLayer(nn.KindSoftmax, 3, 3)
	require.NoError(t, err)
	require.NoError(t, m.SetLoss(nn.LossCategoricalCrossEntropy))
	require.NoError(t, m.Finalize())
	require.NoError(t, m.InitOptimizers(optim.AdamConfig{LearningRate: 0.01}))

	rng := nn.NewRNG(4)
	x := tensor.MustNew(6, 16)
	for i := range x.Data {
		x.Data[i] = rng.Uniform(-1, 1)
	}
	y := tensor.MustNew(6, 3)
	for i := range 6 {
		y.Set(i, i%3, 1)
	}
	require.NoError(t, m.Train(x, y, 5, false))
	return m, x
}

func encode(t *testing.T, m *model.Model) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	m, x := trainedModel(t)
	data := encode(t, m)

	loaded, err := Read(bytes.NewReader(data), 3, model.WithSeed(99))
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, model.Finalized, loaded.State())
	assert.Equal(t, 3, loaded.BatchSize())
	kind, ok := loaded.LossKind()
	assert.True(t, ok)
	assert.Equal(t, nn.LossCategoricalCrossEntropy, kind)
	assert.True(t, loaded.Fused())

	require.Equal(t, m.Len(), loaded.Len())
	for i, want := range m.Layers() {
		got := loaded.Layer(i)
		assert.Equal(t, want.Kind(), got.Kind(), "layer %d", i)
		assert.Equal(t, want.Shape(), got.Shape(), "layer %d", i)
		assert.Equal(t, recordOf(want), recordOf(got), "layer %d", i)

		wt, gt := tensorsOf(want), tensorsOf(got)
		require.Len(t, gt, len(wt))
		for j := range wt {
			assert.True(t, wt[j].Equal(gt[j], 0), "layer %d tensor %d", i, j)
		}
	}

	// Running statistics are persisted.
	norm := loaded.Layer(4).(*nn.Normalization)
	assert.NotEqual(t, make([]float64, 8), norm.RunningMean().Data)

	// Inference is per-sample, so both batch sizes predict the same values.
	want := tensor.MustNew(6, 3)
	got := tensor.MustNew(6, 3)
	require.NoError(t, m.Predict(x, want))
	require.NoError(t, loaded.Predict(x, got))
	assert.True(t, want.Equal(got, 1e-12))

	// Saving the loaded model reproduces the stream.
	assert.Equal(t, data, encode(t, loaded))
}

func TestRoundTrip_ZeroLeakySlope(t *testing.T) {
	m, err := model.New(2, model.WithSeed(8))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.AddLayer(nn.KindDense, 2, 3)
	require.NoError(t, err)
	leaky, err := m.AddLayer(nn.KindLeakyReLU, 3, 3)
	require.NoError(t, err)
	leaky.(*nn.LeakyReLU).SetRate(0)
	_, err = m.AddLayer(nn.KindDense, 3, 1)
	require.NoError(t, err)
	require.NoError(t, m.SetLoss(nn.LossMSE))
	require.NoError(t, m.Finalize())

	loaded, err := Read(bytes.NewReader(encode(t, m)), 2)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, 0.0, loaded.Layer(1).(*nn.LeakyReLU).Rate())

	x, err := tensor.FromSlice(4, 2, []float64{-1, -2, -3, 0.5, 2, -4, 1, 1})
	require.NoError(t, err)
	want := tensor.MustNew(4, 1)
	got := tensor.MustNew(4, 1)
	require.NoError(t, m.Predict(x, want))
	require.NoError(t, loaded.Predict(x, got))
	assert.Equal(t, want.Data, got.Data)
}

func TestLoadedModelTrains(t *testing.T) {
	m, x := trainedModel(t)
	loaded, err := Read(bytes.NewReader(encode(t, m)), 2)
	require.NoError(t, err)
	defer loaded.Close()

	y := tensor.MustNew(6, 3)
	for i := range 6 {
		y.Set(i, 0, 1)
	}
	assert.ErrorIs(t, loaded.Train(x, y, 1, false), nn.ErrState)
	require.NoError(t, loaded.InitOptimizers(optim.SGDConfig{LearningRate: 0.01}))
	assert.NoError(t, loaded.Train(x, y, 1, false))
}

func TestSaveLoadFile(t *testing.T) {
	m, x := trainedModel(t)
	path := filepath.Join(t.TempDir(), "model.tom")
	require.NoError(t, SaveFile(path, m))

	loaded, err := LoadFile(path, 6)
	require.NoError(t, err)
	defer loaded.Close()

	want := tensor.MustNew(6, 3)
	got := tensor.MustNew(6, 3)
	require.NoError(t, m.Predict(x, want))
	require.NoError(t, loaded.Predict(x, got))
	assert.True(t, want.Equal(got, 1e-12))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.tom"), 1)
	assert.Error(t, err)
}

func TestRead_Corruption(t *testing.T) {
	m, _ := trainedModel(t)
	data := encode(t, m)

	corrupt := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), data...)
		return f(b)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "flipped parameter byte",
			data: corrupt(func(b []byte) []byte { b[len(b)-ChecksumSize-3] ^= 0x40; return b }),
			want: ErrChecksumMismatch,
		},
		{
			name: "flipped checksum byte",
			data: corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }),
			want: ErrChecksumMismatch,
		},
		{
			name: "bad magic",
			data: corrupt(func(b []byte) []byte { copy(b, "BORN"); return b }),
			want: ErrInvalidMagic,
		},
		{
			name: "future version",
			data: corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[4:], 2); return b }),
			want: ErrUnsupportedVersion,
		},
		{
			name: "zero layers",
			data: corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[8:], 0); return b }),
			want: ErrTooManyLayers,
		},
		{
			name: "unknown loss",
			data: corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[12:], 17); return b }),
			want: ErrUnknownKind,
		},
		{
			name: "unknown layer kind",
			data: corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[16:], 250); return b }),
			want: nn.ErrInvalidKind,
		},
		{
			name: "truncated parameters",
			data: corrupt(func(b []byte) []byte { return b[:len(b)-ChecksumSize-100] }),
			want: io.ErrUnexpectedEOF,
		},
		{
			name: "missing checksum",
			data: corrupt(func(b []byte) []byte { return b[:len(b)-ChecksumSize] }),
			want: io.EOF,
		},
		{
			name: "empty",
			data: nil,
			want: io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Read(bytes.NewReader(tt.data), 2)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRead_InconsistentShape(t *testing.T) {
	var buf bytes.Buffer
	w := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	w([]byte(MagicBytes))
	w(uint32(FormatVersion))
	w(uint32(1))
	w(uint32(nn.LossMSE))
	// A ReLU claiming 4 inputs and 5 outputs.
	w(uint32(nn.KindReLU))
	w([10]int32{4, 5})

	_, err := Read(&buf, 1)
	require.ErrorIs(t, err, nn.ErrShapeMismatch)
	var le *nn.LayerError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, nn.KindReLU, le.Kind)
}

func TestWrite_RequiresFinalizedModel(t *testing.T) {
	m, err := model.New(1)
	require.NoError(t, err)
	defer m.Close()
	_, err = m.AddLayer(nn.KindDense, 2, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, m), nn.ErrState)
	assert.Zero(t, buf.Len())
}
