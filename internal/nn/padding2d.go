package nn

import "fmt"

// PaddingMode selects how border cells of a Padding2D output are filled.
type PaddingMode uint32

// Padding modes.
const (
	// PadZero fills borders with zeros.
	PadZero PaddingMode = iota
	// PadSymmetric mirrors the input including the edge row/column.
	PadSymmetric
	// PadReflection mirrors the input excluding the edge row/column.
	PadReflection
)

// String implements fmt.Stringer.
func (m PaddingMode) String() string {
	switch m {
	case PadZero:
		return "zero"
	case PadSymmetric:
		return "symmetric"
	case PadReflection:
		return "reflection"
	default:
		return fmt.Sprintf("PaddingMode(%d)", uint32(m))
	}
}

// Padding2D pads every channel plane by padY rows and padX columns on each
// side.
//
// The output→input index map is computed once at construction; forward is a
// gather through the map and backward the matching scatter-add.
type Padding2D struct {
	base
	mode  PaddingMode
	padX  int
	padY  int
	index []int // per output plane cell: input plane offset, or -1
}

// NewPadding2D declares a padding layer.
//
// Both paddings must be smaller than the corresponding input dimension.
// Returns ErrShapeMismatch for invalid geometry and ErrInvalidKind for an
// unknown mode.
func NewPadding2D(channels, height, width, padX, padY int, mode PaddingMode) (*Padding2D, error) {
	if channels <= 0 || height <= 0 || width <= 0 {
		return nil, shapeErrorf("padding2d: dimensions %dx%dx%d must be positive", channels, height, width)
	}
	if padX < 0 || padY < 0 || padX > width-1 || padY > height-1 {
		return nil, shapeErrorf("padding2d: padding (%d, %d) must be less than input (%d, %d)", padX, padY, width, height)
	}
	if mode > PadReflection {
		return nil, fmt.Errorf("%w: padding mode %s", ErrInvalidKind, mode)
	}

	oh, ow := height+2*padY, width+2*padX
	l := &Padding2D{
		base: base{shape: Shape{
			InputSize:      channels * height * width,
			OutputSize:     channels * oh * ow,
			InputChannels:  channels,
			InputHeight:    height,
			InputWidth:     width,
			OutputChannels: channels,
			OutputHeight:   oh,
			OutputWidth:    ow,
		}},
		mode: mode,
		padX: padX,
		padY: padY,
	}
	l.index = make([]int, oh*ow)
	for y := 0; y < oh; y++ {
		sy := l.source(y-padY, height)
		for x := 0; x < ow; x++ {
			sx := l.source(x-padX, width)
			if sy < 0 || sx < 0 {
				l.index[y*ow+x] = -1
			} else {
				l.index[y*ow+x] = sy*width + sx
			}
		}
	}
	return l, nil
}

// source maps a possibly out-of-range coordinate to its input coordinate,
// or -1 for a zero cell.
func (l *Padding2D) source(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	switch l.mode {
	case PadSymmetric:
		if i < 0 {
			return -i - 1
		}
		return 2*n - 1 - i
	case PadReflection:
		if i < 0 {
			return -i
		}
		return 2*n - 2 - i
	default:
		return -1
	}
}

// Kind implements Layer.
func (l *Padding2D) Kind() Kind { return KindPadding2D }

// Mode returns the padding mode.
func (l *Padding2D) Mode() PaddingMode { return l.mode }

// Padding returns the horizontal and vertical padding.
func (l *Padding2D) Padding() (x, y int) { return l.padX, l.padY }

// Materialize implements Layer.
func (l *Padding2D) Materialize(io Buffers, _ RNG) error {
	return l.bind(io)
}

// Forward implements Layer.
func (l *Padding2D) Forward(bool) {
	s := l.shape
	inPlane := s.InputHeight * s.InputWidth
	outPlane := s.OutputHeight * s.OutputWidth
	for n := 0; n < l.io.Input.Rows; n++ {
		in := l.io.Input.Row(n)
		out := l.io.Output.Row(n)
		for c := 0; c < s.InputChannels; c++ {
			src := in[c*inPlane : (c+1)*inPlane]
			dst := out[c*outPlane : (c+1)*outPlane]
			for i, j := range l.index {
				if j < 0 {
					dst[i] = 0
				} else {
					dst[i] = src[j]
				}
			}
		}
	}
}

// Backward implements Layer.
func (l *Padding2D) Backward() {
	s := l.shape
	inPlane := s.InputHeight * s.InputWidth
	outPlane := s.OutputHeight * s.OutputWidth
	l.io.DInput.Zero()
	for n := 0; n < l.io.DInput.Rows; n++ {
		dIn := l.io.DInput.Row(n)
		dOut := l.io.DOutput.Row(n)
		for c := 0; c < s.InputChannels; c++ {
			dst := dIn[c*inPlane : (c+1)*inPlane]
			src := dOut[c*outPlane : (c+1)*outPlane]
			for i, j := range l.index {
				if j >= 0 {
					dst[j] += src[i]
				}
			}
		}
	}
}

// Release implements Layer.
func (l *Padding2D) Release() {}
