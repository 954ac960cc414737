package reembed

import (
	"context"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// DefaultBatchSize is the number of records re-embedded per provider call.
const DefaultBatchSize = 100

// RecordIterator walks a collection's records in fixed-size batches.
type RecordIterator struct {
	repo      storage.DocumentRepository
	batchSize int
}

// NewRecordIterator creates an iterator. A batchSize below 1 uses
// DefaultBatchSize.
func NewRecordIterator(repo storage.DocumentRepository, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RecordIterator{repo: repo, batchSize: batchSize}
}

// ForEach scans collection once and calls fn with consecutive batches of
// the records keep accepts. It stops at the first error from fn and checks
// ctx between batches.
func (it *RecordIterator) ForEach(ctx context.Context, collection string, keep func(*core.DocumentRecord) bool, fn func([]*core.DocumentRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records, err := it.repo.Scan(ctx, collection)
	if err != nil {
		return err
	}

	selected := records[:0:0]
	for _, record := range records {
		if keep == nil || keep(record) {
			selected = append(selected, record)
		}
	}

	for start := 0; start < len(selected); start += it.batchSize {
		end := min(start+it.batchSize, len(selected))
		if err := fn(selected[start:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
