package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedderRequired is returned when a Batcher is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrTokenizerRequired is returned when a Batcher is built without a tokenizer.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrImageEmbedderRequired is returned by EmbedImages when no image embedder is configured.
	ErrImageEmbedderRequired = errors.New("image embedder required")

	// ErrCardinalityMismatch is returned when a provider does not return one vector per input.
	ErrCardinalityMismatch = errors.New("embedding count does not match input count")

	// ErrProvider wraps errors returned by the embedding provider.
	ErrProvider = errors.New("embedding provider error")
)

// BatchError describes one batch that produced no usable vectors.
// The slots [Offset, Offset+Expected) of the result are nil.
type BatchError struct {
	Batch    int
	Offset   int
	Expected int
	Received int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (offset %d): expected %d vectors, received %d: %v",
		e.Batch, e.Offset, e.Expected, e.Received, e.Err)
}

// Unwrap exposes both ErrCardinalityMismatch and the underlying cause.
func (e *BatchError) Unwrap() []error {
	if e.Err == nil || errors.Is(e.Err, ErrCardinalityMismatch) {
		return []error{ErrCardinalityMismatch}
	}
	return []error{ErrCardinalityMismatch, e.Err}
}

// FailedBatches extracts every *BatchError joined into err.
func FailedBatches(err error) []*BatchError {
	if err == nil {
		return nil
	}
	var out []*BatchError
	var walk func(error)
	walk = func(e error) {
		var be *BatchError
		if b, ok := e.(*BatchError); ok {
			out = append(out, b)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if errors.As(e, &be) {
			out = append(out, be)
		}
	}
	walk(err)
	return out
}
