package blobtrack

import "github.com/pkg/errors"

// Configuration errors. The operation that reports one of them does nothing
// until the caller reconfigures.
var (
	ErrNilBackground = errors.New("background frame is not set")
	ErrNilFrame      = errors.New("frame is nil")
	ErrBadChannels   = errors.New("unsupported number of channels")
	ErrSizeMismatch  = errors.New("frame size does not match background")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsConfigurationError reports whether err (or its cause) is one of the
// configuration errors above.
func IsConfigurationError(err error) bool {
	switch errors.Cause(err) {
	case ErrNilBackground, ErrNilFrame, ErrBadChannels, ErrSizeMismatch, ErrInvalidConfig:
		return true
	}
	return false
}
