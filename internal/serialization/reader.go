package serialization

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tom-ml/tom/internal/model"
	"github.com/tom-ml/tom/internal/nn"
)

// decoder reads little-endian values and keeps the first error.
type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.LittleEndian, v)
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

// Read decodes a model from r and returns it Finalized with the given batch
// size. opts configure the new model as in model.New.
//
// The checksum trailer is verified after all parameters are read; on any
// failure the partially built model is released.
func Read(r io.Reader, batchSize int, opts ...model.Option) (*model.Model, error) {
	br := bufio.NewReader(r)
	h := sha256.New()
	dec := &decoder{r: io.TeeReader(br, h)}

	magic := make([]byte, len(MagicBytes))
	dec.read(magic)
	if dec.err != nil {
		return nil, fmt.Errorf("failed to read magic bytes: %w", dec.err)
	}
	if string(magic) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := dec.u32(); dec.err == nil && version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	count := dec.u32()
	lossKind := nn.LossKind(dec.u32())
	if dec.err != nil {
		return nil, fmt.Errorf("failed to read header: %w", dec.err)
	}
	if count == 0 || count > MaxLayers {
		return nil, fmt.Errorf("%w: %d", ErrTooManyLayers, count)
	}
	if !lossKind.Valid() {
		return nil, fmt.Errorf("%w: loss %s", ErrUnknownKind, lossKind)
	}

	records := make([]record, count)
	for i := range records {
		rec, err := readRecord(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to read layer %d record: %w", i, err)
		}
		records[i] = rec
	}

	m, err := model.New(batchSize, opts...)
	if err != nil {
		return nil, err
	}
	if err := build(m, records, lossKind); err != nil {
		m.Close()
		return nil, err
	}

	for i, l := range m.Layers() {
		for _, t := range tensorsOf(l) {
			dec.read(t.Data)
		}
		if dec.err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to read layer %d parameters: %w", i, dec.err)
		}
	}

	stored := make([]byte, ChecksumSize)
	if _, err := io.ReadFull(br, stored); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	if !bytes.Equal(stored, h.Sum(nil)) {
		m.Close()
		return nil, ErrChecksumMismatch
	}
	return m, nil
}

func readRecord(dec *decoder) (record, error) {
	rec := record{kind: nn.Kind(dec.u32())}
	if dec.err != nil {
		return rec, dec.err
	}
	if !rec.kind.Valid() {
		return rec, fmt.Errorf("%w: layer %s", ErrUnknownKind, rec.kind)
	}

	var ints [10]int32
	dec.read(&ints)
	var shape [10]int
	for j, v := range ints {
		if v < 0 || v > MaxDim {
			return rec, fmt.Errorf("%w: shape integer %d out of range", nn.ErrShapeMismatch, v)
		}
		shape[j] = int(v)
	}
	rec.shape = nn.ShapeFromInts(shape)

	if n := hyperCount(rec.kind); n > 0 {
		rec.hyper = make([]float64, n)
		dec.read(rec.hyper)
	}
	if rec.kind == nn.KindPadding2D {
		rec.mode = nn.PaddingMode(dec.u32())
	}
	return rec, dec.err
}

// build declares every layer on m and finalizes it.
func build(m *model.Model, records []record, lossKind nn.LossKind) error {
	for i, rec := range records {
		l, err := declare(rec)
		if err != nil {
			return &nn.LayerError{Op: "declare", Index: i, Kind: rec.kind, Err: err}
		}
		if err := m.Add(l); err != nil {
			return err
		}
	}
	if err := m.SetLoss(lossKind); err != nil {
		return err
	}
	return m.Finalize()
}

// LoadFile reads a model from the file at path.
func LoadFile(path string, batchSize int, opts ...model.Option) (*model.Model, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := Read(f, batchSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return m, nil
}
