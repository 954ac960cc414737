package storage

import (
	"fmt"

	"github.com/poiesic/docchat/core"
)

// VectorShape groups records whose vectors must have the same length: one
// embedding model producing one kind of record.
type VectorShape struct {
	Kind  core.RecordKind
	Model string
}

func shapeOf(record *core.DocumentRecord) VectorShape {
	return VectorShape{Kind: record.Kind, Model: record.Model}
}

// Dimensions maps each vector shape in a collection to its vector length.
type Dimensions map[VectorShape]int

// Observe records the length of a vector of the given shape, failing with
// ErrDimensionMismatch when the shape was already seen with another length.
func (d Dimensions) Observe(shape VectorShape, dims int) error {
	want, ok := d[shape]
	if !ok {
		d[shape] = dims
		return nil
	}
	if want != dims {
		return fmt.Errorf("%w: kind %s model %q has %d dimensions, got %d",
			ErrDimensionMismatch, shape.Kind, shape.Model, want, dims)
	}
	return nil
}

// ValidateBatch validates every record, rejects duplicate ids within the batch
// and rejects vectors whose length differs from other records of the same
// kind and model.
func ValidateBatch(records []*core.DocumentRecord) error {
	return ValidateBatchAgainst(nil, records)
}

// ValidateBatchAgainst is ValidateBatch for a write into a collection that
// already holds vectors of the given dimensions.
func ValidateBatchAgainst(existing Dimensions, records []*core.DocumentRecord) error {
	dims := make(Dimensions, len(existing))
	for shape, n := range existing {
		dims[shape] = n
	}
	seen := make(map[string]struct{}, len(records))
	for i, record := range records {
		if err := core.ValidateDocumentRecord(record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[record.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateRecordID, record.ID)
		}
		seen[record.ID] = struct{}{}
		if err := dims.Observe(shapeOf(record), record.Dimensions()); err != nil {
			return fmt.Errorf("record %s: %w", record.ID, err)
		}
	}
	return nil
}

// BatchIDs returns the set of record ids in records.
func BatchIDs(records []*core.DocumentRecord) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, record := range records {
		if record != nil {
			ids[record.ID] = struct{}{}
		}
	}
	return ids
}
