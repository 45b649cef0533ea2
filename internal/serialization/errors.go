package serialization

import (
	"errors"
	"fmt"

	"github.com/tom-ml/tom/internal/nn"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTooManyLayers      = errors.New("layer count out of range")
	ErrUnknownKind        = fmt.Errorf("unknown kind: %w", nn.ErrInvalidKind)
)
