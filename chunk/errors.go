package chunk

import "errors"

var (
	// ErrInvalidWindow is returned when the window size or stride is below one token.
	ErrInvalidWindow = errors.New("chunk window and stride must be at least one token")

	// ErrTokenizerRequired is returned when no tokenizer is provided.
	ErrTokenizerRequired = errors.New("tokenizer required")
)
