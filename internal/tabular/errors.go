package tabular

import "errors"

var (
	ErrEmpty            = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrTooManyRows      = errors.New("file exceeds maximum allowed rows")
	ErrInvalidFormat    = errors.New("file is not a readable delimited text file")
	ErrNoFeedbackColumn = errors.New("no feedback text column found")
)
