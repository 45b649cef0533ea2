package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tom-ml/tom/internal/model"
	"github.com/tom-ml/tom/internal/nn"
)

// encoder writes little-endian values and keeps the first error.
type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.LittleEndian, v)
}

// Write encodes a finalized model to w.
//
// Returns nn.ErrState if m has not been finalized.
func Write(w io.Writer, m *model.Model) error {
	if m.Input() == nil {
		return fmt.Errorf("%w: cannot save a model in state %s", nn.ErrState, m.State())
	}
	lossKind, _ := m.LossKind()
	layers := m.Layers()

	bw := bufio.NewWriter(w)
	h := sha256.New()
	enc := &encoder{w: io.MultiWriter(bw, h)}

	enc.write([]byte(MagicBytes))
	enc.write(uint32(FormatVersion))
	enc.write(uint32(len(layers)))
	enc.write(uint32(lossKind))
	if enc.err != nil {
		return fmt.Errorf("failed to write header: %w", enc.err)
	}

	for i, l := range layers {
		rec := recordOf(l)
		var ints [10]int32
		for j, v := range rec.shape.Ints() {
			//nolint:gosec // G115: shape integers are bounded by tensor.MaxElements
			ints[j] = int32(v)
		}
		enc.write(uint32(rec.kind))
		enc.write(ints)
		if len(rec.hyper) > 0 {
			enc.write(rec.hyper)
		}
		if rec.kind == nn.KindPadding2D {
			enc.write(uint32(rec.mode))
		}
		if enc.err != nil {
			return fmt.Errorf("failed to write layer %d record: %w", i, enc.err)
		}
	}

	for i, l := range layers {
		for _, t := range tensorsOf(l) {
			enc.write(t.Data)
		}
		if enc.err != nil {
			return fmt.Errorf("failed to write layer %d parameters: %w", i, enc.err)
		}
	}

	if _, err := bw.Write(h.Sum(nil)); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	return bw.Flush()
}

// SaveFile writes m to the file at path, creating or truncating it.
func SaveFile(path string, m *model.Model) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, m); err != nil {
		_ = f.Close() // Best effort close on error
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
