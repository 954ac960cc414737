package readers

import "errors"

var (
	// ErrUnsupportedFormat is returned for a file extension no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyFile is returned when a file holds no usable content.
	ErrEmptyFile = errors.New("file is empty")

	// ErrMalformed wraps parse failures.
	ErrMalformed = errors.New("malformed file")
)
