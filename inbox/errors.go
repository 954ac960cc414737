package inbox

import "errors"

var (
	// ErrEmptyMessageID is returned when a message id is blank.
	ErrEmptyMessageID = errors.New("message id cannot be empty")

	// ErrBufferStopped is returned by Enqueue after Stop.
	ErrBufferStopped = errors.New("buffer stopped")

	// ErrFlushFuncRequired is returned when a buffer is created without a flush function.
	ErrFlushFuncRequired = errors.New("flush function required")
)
