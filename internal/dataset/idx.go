package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tom-ml/tom/internal/tensor"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
	maxIDXItems    = 1 << 24
)

// MNISTClasses is the number of digit classes.
const MNISTClasses = 10

// ReadIDXImages reads an IDX image file and returns one flattened image per
// row with pixels scaled from 0-255 to [0, 1].
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
func ReadIDXImages(r io.Reader) (*tensor.Tensor, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxImagesMagic {
		return nil, fmt.Errorf("%w: invalid magic number: got %d, want %d", ErrFormat, header[0], idxImagesMagic)
	}
	count, rows, cols := header[1], header[2], header[3]
	if count == 0 || count > maxIDXItems || rows == 0 || cols == 0 || rows*cols > maxIDXItems {
		return nil, fmt.Errorf("%w: %d images of %dx%d", ErrFormat, count, rows, cols)
	}

	x, err := tensor.New(int(count), int(rows*cols))
	if err != nil {
		return nil, err
	}
	pixels := make([]byte, rows*cols)
	for i := 0; i < x.Rows; i++ {
		if _, err := io.ReadFull(r, pixels); err != nil {
			x.Release()
			return nil, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		row := x.Row(i)
		for j, p := range pixels {
			row[j] = float64(p) / 255
		}
	}
	return x, nil
}

// ReadIDXLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadIDXLabels(r io.Reader) ([]int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("%w: invalid magic number: got %d, want %d", ErrFormat, header[0], idxLabelsMagic)
	}
	if header[1] == 0 || header[1] > maxIDXItems {
		return nil, fmt.Errorf("%w: %d labels", ErrFormat, header[1])
	}

	raw := make([]byte, header[1])
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// MNISTFiles returns the conventional image and label file paths in dir.
func MNISTFiles(dir string, train bool) (images, labels string) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}
	return filepath.Join(dir, prefix+"-images-idx3-ubyte"), filepath.Join(dir, prefix+"-labels-idx1-ubyte")
}

// LoadMNIST loads an IDX image file and its label file. maxSamples limits
// the number of samples kept (0 keeps all).
func LoadMNIST(imagesPath, labelsPath string, maxSamples int) (*Dataset, error) {
	x, err := readFile(imagesPath, ReadIDXImages)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	labels, err := readFile(labelsPath, ReadIDXLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	if x.Rows != len(labels) {
		return nil, fmt.Errorf("%w: image count (%d) != label count (%d)", ErrFormat, x.Rows, len(labels))
	}

	if maxSamples > 0 && maxSamples < x.Rows {
		x, _ = x.Slice(0, maxSamples)
		labels = labels[:maxSamples]
	}
	y, err := OneHot(labels, MNISTClasses)
	if err != nil {
		return nil, err
	}
	return &Dataset{X: x, Y: y, Labels: labels}, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for dataset loading
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return read(bufio.NewReader(f))
}
