package model

import "errors"

// Validation failures abort an action before anything is written
var (
	ErrInvalidColor       = errors.New("invalid color")
	ErrInvalidInterval    = errors.New("invalid interval")
	ErrNoActionSpecified  = errors.New("no action specified")
	ErrInvalidCombination = errors.New("invalid flag combination")
	ErrPortRequired       = errors.New("serial port is required")
)

// Transport failures
var (
	ErrNotConnected     = errors.New("serial port not connected")
	ErrConnection       = errors.New("serial connection error")
	ErrWriteFailure     = errors.New("serial write failed")
	ErrCommandInFlight  = errors.New("another command is awaiting a reply")
	ErrBoardNotFound    = errors.New("board not found")
	ErrInvalidBoardSpec = errors.New("invalid board definition")
)

// IsValidationError reports whether err comes from request validation
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidColor) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrNoActionSpecified) ||
		errors.Is(err, ErrInvalidCombination) ||
		errors.Is(err, ErrPortRequired)
}
