package nn

import "fmt"

// Kind identifies a layer variant. Values are stable: they are written
// into serialized models.
type Kind uint32

// Layer kinds.
const (
	KindDense Kind = iota
	KindConv2D
	KindMaxPool2D
	KindDropout
	KindReLU
	KindLeakyReLU
	KindSigmoid
	KindSoftmax
	KindTanh
	KindNormalization
	KindQuadratic
	KindPadding2D
)

var kindNames = [...]string{
	KindDense:         "Dense",
	KindConv2D:        "Conv2D",
	KindMaxPool2D:     "MaxPool2D",
	KindDropout:       "Dropout",
	KindReLU:          "ReLU",
	KindLeakyReLU:     "LeakyReLU",
	KindSigmoid:       "Sigmoid",
	KindSoftmax:       "Softmax",
	KindTanh:          "Tanh",
	KindNormalization: "Normalization",
	KindQuadratic:     "Quadratic",
	KindPadding2D:     "Padding2D",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Valid reports whether k names a known layer kind.
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

// LossKind identifies a loss function. Values are stable.
type LossKind uint32

// Loss kinds.
const (
	LossMSE LossKind = iota
	LossCategoricalCrossEntropy
	LossBinaryCrossEntropy
	LossMAE
)

// String implements fmt.Stringer.
func (k LossKind) String() string {
	switch k {
	case LossMSE:
		return "MSE"
	case LossCategoricalCrossEntropy:
		return "CategoricalCrossEntropy"
	case LossBinaryCrossEntropy:
		return "BinaryCrossEntropy"
	case LossMAE:
		return "MAE"
	default:
		return fmt.Sprintf("LossKind(%d)", uint32(k))
	}
}

// Valid reports whether k names a known loss.
func (k LossKind) Valid() bool {
	return k <= LossMAE
}

// Shape is the shape record every layer carries.
//
// Flat kinds use only InputSize and OutputSize. 2D kinds additionally fill
// the channel/height/width triples, and Conv2D/MaxPool2D the filter size and
// stride. For 2D kinds InputSize = InputChannels*InputHeight*InputWidth.
type Shape struct {
	InputSize      int
	OutputSize     int
	InputChannels  int
	InputHeight    int
	InputWidth     int
	OutputChannels int
	OutputHeight   int
	OutputWidth    int
	FilterSize     int
	Stride         int
}

// Ints returns the shape as the fixed ten-integer record used on disk.
func (s Shape) Ints() [10]int {
	return [10]int{
		s.InputSize, s.OutputSize,
		s.InputChannels, s.InputHeight, s.InputWidth,
		s.OutputChannels, s.OutputHeight, s.OutputWidth,
		s.FilterSize, s.Stride,
	}
}

// ShapeFromInts is the inverse of Shape.Ints.
func ShapeFromInts(v [10]int) Shape {
	return Shape{
		InputSize:      v[0],
		OutputSize:     v[1],
		InputChannels:  v[2],
		InputHeight:    v[3],
		InputWidth:     v[4],
		OutputChannels: v[5],
		OutputHeight:   v[6],
		OutputWidth:    v[7],
		FilterSize:     v[8],
		Stride:         v[9],
	}
}

// OutputDim computes the spatial output size of a sliding window:
// (in - kernel)/stride + 1.
//
// Returns ErrShapeMismatch if the window does not fit or the stride does not
// tile the input exactly.
func OutputDim(in, kernel, stride int) (int, error) {
	if in <= 0 || kernel <= 0 || stride <= 0 {
		return 0, shapeErrorf("input %d, kernel %d, stride %d must be positive", in, kernel, stride)
	}
	if kernel > in {
		return 0, shapeErrorf("kernel %d larger than input %d", kernel, in)
	}
	if (in-kernel)%stride != 0 {
		return 0, shapeErrorf("stride %d does not tile input %d with kernel %d", stride, in, kernel)
	}
	return (in-kernel)/stride + 1, nil
}
