package nn

import (
	"errors"
	"fmt"

	"github.com/tom-ml/tom/internal/tensor"
)

// Error taxonomy shared by layers, losses, optimizers and the model engine.
// Callers match with errors.Is.
var (
	ErrShapeMismatch       = tensor.ErrShapeMismatch
	ErrAllocation          = tensor.ErrAllocation
	ErrInvalidKind         = errors.New("invalid kind")
	ErrUnevenBatchDivision = errors.New("sample count not divisible by batch size")
	ErrSampleCountMismatch = errors.New("input and target sample counts differ")
	ErrState               = errors.New("invalid model state")
	ErrInvalidConfig       = errors.New("invalid configuration")
)

// LayerError attaches chain position and layer kind to a failure.
type LayerError struct {
	Op    string // Operation that failed (e.g. "materialize", "optimizer")
	Index int    // Position of the layer in the chain
	Kind  Kind   // Kind of the failing layer
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *LayerError) Error() string {
	return fmt.Sprintf("%s layer %d (%s): %v", e.Op, e.Index, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *LayerError) Unwrap() error {
	return e.Err
}

func shapeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrShapeMismatch}, args...)...)
}
