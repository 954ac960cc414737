// Package embedding turns text and image units into vectors.
//
// The Batcher splits a list of texts into provider-sized batches and fans
// them out over a worker pool. Results are written back into indexed slots,
// so output order always matches input order. A batch whose provider call
// fails, or returns the wrong number of vectors, leaves nil slots and is
// reported through a *BatchError; the caller decides whether to skip those
// items or abort. The result never silently shrinks.
//
// Each text is truncated to the provider's input ceiling before submission.
package embedding
