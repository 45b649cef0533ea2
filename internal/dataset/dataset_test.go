package dataset

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/tom-ml/tom/internal/nn"
	"github.com/tom-ml/tom/internal/tensor"
)

func idxImages(t *testing.T, count, rows, cols int, pixel func(i, j int) byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, [4]uint32{idxImagesMagic, uint32(count), uint32(rows), uint32(cols)}))
	for i := range count {
		for j := range rows * cols {
			buf.WriteByte(pixel(i, j))
		}
	}
	return buf.Bytes()
}

func idxLabels(t *testing.T, labels ...byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, [2]uint32{idxLabelsMagic, uint32(len(labels))}))
	buf.Write(labels)
	return buf.Bytes()
}

func TestReadIDXImages(t *testing.T) {
	data := idxImages(t, 3, 2, 2, func(i, j int) byte { return byte(i*4 + j) * 17 })

	x, err := ReadIDXImages(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, x.Rows)
	assert.Equal(t, 4, x.Cols)
	assert.InDelta(t, 0, x.At(0, 0), 1e-12)
	assert.InDelta(t, 17.0/255, x.At(0, 1), 1e-12)
	assert.InDelta(t, 187.0/255, x.At(2, 3), 1e-12)
}

func TestReadIDXImages_Errors(t *testing.T) {
	good := idxImages(t, 2, 2, 2, func(int, int) byte { return 1 })

	bad := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(bad, idxLabelsMagic)
	_, err := ReadIDXImages(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ErrFormat)

	_, err = ReadIDXImages(bytes.NewReader(good[:len(good)-1]))
	assert.Error(t, err)

	_, err = ReadIDXImages(bytes.NewReader(idxImages(t, 0, 2, 2, nil)))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadIDXLabels(t *testing.T) {
	labels, err := ReadIDXLabels(bytes.NewReader(idxLabels(t, 7, 0, 9)))
	require.NoError(t, err)
	assert.Equal(t, []int{7, 0, 9}, labels)

	_, err = ReadIDXLabels(bytes.NewReader(idxImages(t, 1, 1, 1, func(int, int) byte { return 0 })))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadMNIST(t *testing.T) {
	dir := t.TempDir()
	images, labels := MNISTFiles(dir, true)
	assert.Equal(t, filepath.Join(dir, "train-images-idx3-ubyte"), images)
	testImages, _ := MNISTFiles(dir, false)
	assert.Equal(t, filepath.Join(dir, "t10k-images-idx3-ubyte"), testImages)

	require.NoError(t, os.WriteFile(images, idxImages(t, 4, 3, 3, func(i, _ int) byte { return byte(i) }), 0o600))
	require.NoError(t, os.WriteFile(labels, idxLabels(t, 3, 1, 4, 1), 0o600))

	d, err := LoadMNIST(images, labels, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 9, d.X.Cols)
	assert.Equal(t, MNISTClasses, d.Y.Cols)
	assert.Equal(t, []int{3, 1, 4}, d.Labels)
	assert.Equal(t, 1.0, d.Y.At(2, 4))

	require.NoError(t, os.WriteFile(labels, idxLabels(t, 3, 1), 0o600))
	_, err = LoadMNIST(images, labels, 0)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = LoadMNIST(filepath.Join(dir, "missing"), labels, 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadCSV_NumericLabels(t *testing.T) {
	in := "a,b,label\n1.5,2,0\n3,4,2\n-1,0.5,1\n"
	d, err := ReadCSV(strings.NewReader(in), CSVOptions{LabelColumn: -1, Header: true})
	require.NoError(t, err)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []float64{1.5, 2, 3, 4, -1, 0.5}, d.X.Data)
	assert.Equal(t, []int{0, 2, 1}, d.Labels)
	assert.Equal(t, 3, d.Y.Cols)
	assert.Nil(t, d.Classes)
}

func TestReadCSV_NamedLabels(t *testing.T) {
	in := "setosa; 5.1; 3.5\nvirginica; 6.3; 3.3\nsetosa; 4.9; 3.0\n"
	d, err := ReadCSV(strings.NewReader(in), CSVOptions{LabelColumn: 0, Comma: ';'})
	require.NoError(t, err)

	assert.Equal(t, []string{"setosa", "virginica"}, d.Classes)
	assert.Equal(t, []int{0, 1, 0}, d.Labels)
	assert.Equal(t, []float64{5.1, 3.5, 6.3, 3.3, 4.9, 3.0}, d.X.Data)
	assert.Equal(t, []float64{1, 0, 0, 1, 1, 0}, d.Y.Data)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts CSVOptions
	}{
		{"empty", "", CSVOptions{}},
		{"header only", "a,b\n", CSVOptions{Header: true}},
		{"single column", "1\n2\n", CSVOptions{}},
		{"label column out of range", "1,2\n", CSVOptions{LabelColumn: 5}},
		{"non-numeric feature", "x,1\n", CSVOptions{LabelColumn: 1}},
		{"negative label", "1,-1\n", CSVOptions{LabelColumn: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), tt.opts)
			assert.Error(t, err)
		})
	}

	_, err := ReadCSV(strings.NewReader("1,2\n3\n"), CSVOptions{})
	assert.Error(t, err)
}

func TestOneHot(t *testing.T) {
	y, err := OneHot([]int{2, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1, 0, 0}, y.Data)

	_, err = OneHot([]int{3}, 3)
	assert.ErrorIs(t, err, ErrLabelRange)
	_, err = OneHot([]int{0}, 0)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
}

func TestShuffle_KeepsPairs(t *testing.T) {
	const n = 50
	x := tensor.MustNew(n, 2)
	y := tensor.MustNew(n, 1)
	labels := make([]int, n)
	for i := range n {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, float64(-i))
		y.Set(i, 0, float64(i*10))
		labels[i] = i
	}

	require.NoError(t, Shuffle(x, y, labels, nn.NewRNG(3)))

	moved := 0
	seen := make(map[int]bool)
	for i := range n {
		id := int(x.At(i, 0))
		assert.Equal(t, float64(-id), x.At(i, 1))
		assert.Equal(t, float64(id*10), y.At(i, 0))
		assert.Equal(t, id, labels[i])
		seen[id] = true
		if id != i {
			moved++
		}
	}
	assert.Len(t, seen, n)
	assert.Positive(t, moved)

	assert.ErrorIs(t, Shuffle(x, tensor.MustNew(3, 1), nil, nn.NewRNG(1)), nn.ErrSampleCountMismatch)
}

func TestScale(t *testing.T) {
	x, _ := tensor.FromSlice(3, 2, []float64{0, 5, 5, 5, 10, 5})
	require.NoError(t, Scale(x, -1, 1))
	assert.Equal(t, []float64{-1, -1, 0, -1, 1, -1}, x.Data)

	assert.ErrorIs(t, Scale(x, 1, 1), nn.ErrInvalidConfig)
}

func TestNormalize(t *testing.T) {
	x, _ := tensor.FromSlice(2, 2, []float64{3, 4, 0, 0})
	Normalize(x)
	assert.InDeltaSlice(t, []float64{0.6, 0.8, 0, 0}, x.Data, 1e-12)
	assert.InDelta(t, 1, floats.Norm(x.Row(0), 2), 1e-12)
}

func TestAccuracy(t *testing.T) {
	pred, _ := tensor.FromSlice(4, 2, []float64{0.9, 0.1, 0.2, 0.8, 0.6, 0.4, 0.3, 0.7})
	target, _ := tensor.FromSlice(4, 2, []float64{1, 0, 0, 1, 0, 1, 0, 1})

	acc, err := Accuracy(pred, target)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = Accuracy(pred, tensor.MustNew(4, 3))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestSplitAndTruncate(t *testing.T) {
	x := tensor.MustNew(10, 1)
	for i := range x.Data {
		x.Data[i] = float64(i)
	}
	y, err := OneHot([]int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}, 2)
	require.NoError(t, err)
	d := &Dataset{X: x, Y: y, Labels: []int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}}

	train, holdout, err := d.Split(0.3)
	require.NoError(t, err)
	assert.Equal(t, 7, train.Len())
	assert.Equal(t, 3, holdout.Len())
	assert.Equal(t, 7.0, holdout.X.At(0, 0))
	assert.Equal(t, []int{1, 0, 1}, holdout.Labels)

	_, empty, err := d.Split(0)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())

	_, _, err = d.Split(1)
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)

	tr, err := d.Truncate(4)
	require.NoError(t, err)
	assert.Equal(t, 8, tr.Len())
	assert.Equal(t, 8, tr.Y.Rows)

	_, err = d.Truncate(11)
	assert.ErrorIs(t, err, nn.ErrUnevenBatchDivision)
}

func TestSyntheticDigits(t *testing.T) {
	d, err := SyntheticDigits(25, 0.1, nn.NewRNG(4))
	require.NoError(t, err)
	assert.Equal(t, 25, d.Len())
	assert.Equal(t, MNISTHeight*MNISTWidth, d.X.Cols)
	assert.Equal(t, MNISTClasses, d.Y.Cols)
	assert.Equal(t, 3, d.Labels[13])
	assert.Equal(t, 1.0, d.Y.At(13, 3))

	// Class 3 covers rows 6..13, columns 5..22.
	row := d.X.Row(13)
	assert.GreaterOrEqual(t, row[6*MNISTWidth+5], 0.8)
	assert.GreaterOrEqual(t, row[13*MNISTWidth+22], 0.8)
	assert.Less(t, row[14*MNISTWidth+5], 0.1)
	assert.Less(t, row[6*MNISTWidth+4], 0.1)
	assert.LessOrEqual(t, floats.Max(row), 1.0)

	again, err := SyntheticDigits(25, 0.1, nn.NewRNG(4))
	require.NoError(t, err)
	assert.True(t, d.X.Equal(again.X, 0))

	_, err = SyntheticDigits(0, 0.1, nn.NewRNG(4))
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
	_, err = SyntheticDigits(10, 1.5, nn.NewRNG(4))
	assert.ErrorIs(t, err, nn.ErrInvalidConfig)
}
