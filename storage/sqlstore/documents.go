package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplaceAll deletes collection and inserts records in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, collection string, records []*core.DocumentRecord) error {
	rows, err := s.toDocumentModels(collection, records)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", collection).Delete(&documentModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return wrap("replace documents", err)
	}
	s.logger.Debug("replaced collection", "collection", collection, "count", len(rows))
	return nil
}

// Upsert inserts records, updating rows whose (collection, id) already exist.
// A vector must match the length of the rows of the same kind and model that
// stay in the collection.
func (s *Store) Upsert(ctx context.Context, collection string, records []*core.DocumentRecord) error {
	rows, err := s.toDocumentModels(collection, records)
	if err != nil {
		return err
	}
	existing, err := s.dimensions(ctx, collection, storage.BatchIDs(records))
	if err != nil {
		return err
	}
	if err := storage.ValidateBatchAgainst(existing, records); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "record_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, insertBatchSize).Error
	if err != nil {
		return wrap("upsert documents", err)
	}
	return nil
}

// Scan returns every record in collection in insertion order.
func (s *Store) Scan(ctx context.Context, collection string) ([]*core.DocumentRecord, error) {
	if collection == "" {
		return nil, storage.ErrEmptyCollection
	}

	var rows []documentModel
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap("scan documents", err)
	}

	records := make([]*core.DocumentRecord, 0, len(rows))
	for i := range rows {
		record, err := fromDocumentModel(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Count returns the number of records in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if collection == "" {
		return 0, storage.ErrEmptyCollection
	}
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&documentModel{}).
		Where("collection = ?", collection).
		Count(&count).Error; err != nil {
		return 0, wrap("count documents", err)
	}
	return int(count), nil
}

// Collections lists every non-empty collection in name order.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	collections := make([]string, 0)
	if err := s.db.WithContext(ctx).
		Model(&documentModel{}).
		Distinct("collection").
		Order("collection ASC").
		Pluck("collection", &collections).Error; err != nil {
		return nil, wrap("list collections", err)
	}
	return collections, nil
}

type vectorSize struct {
	RecordID string
	Kind     int
	Model    string
	Size     int
}

// dimensions collects the vector length of each shape in collection,
// ignoring the records in skip. Only blob sizes are read.
func (s *Store) dimensions(ctx context.Context, collection string, skip map[string]struct{}) (storage.Dimensions, error) {
	var sizes []vectorSize
	if err := s.db.WithContext(ctx).
		Model(&documentModel{}).
		Select("record_id, kind, model, length(vector) AS size").
		Where("collection = ?", collection).
		Scan(&sizes).Error; err != nil {
		return nil, wrap("read dimensions", err)
	}

	dims := make(storage.Dimensions)
	for _, row := range sizes {
		if _, overwritten := skip[row.RecordID]; overwritten {
			continue
		}
		shape := storage.VectorShape{Kind: core.RecordKind(row.Kind), Model: row.Model}
		if _, ok := dims[shape]; !ok {
			dims[shape] = storage.EncodedVectorDimensions(row.Size)
		}
	}
	return dims, nil
}

func (s *Store) toDocumentModels(collection string, records []*core.DocumentRecord) ([]*documentModel, error) {
	if collection == "" {
		return nil, storage.ErrEmptyCollection
	}
	if err := storage.ValidateBatch(records); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rows := make([]*documentModel, 0, len(records))
	for _, record := range records {
		record.Collection = collection
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		vector, err := storage.EncodeVector(record.Vector)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", record.ID, err)
		}
		metadata := ""
		if len(record.Metadata) > 0 {
			b, err := json.Marshal(record.Metadata)
			if err != nil {
				return nil, fmt.Errorf("%w: metadata of %s: %w", storage.ErrSerializationFailed, record.ID, err)
			}
			metadata = string(b)
		}
		rows = append(rows, &documentModel{
			Collection:  collection,
			RecordID:    record.ID,
			Kind:        int(record.Kind),
			Vector:      vector,
			Model:       record.Model,
			Metadata:    metadata,
			RawText:     record.RawText,
			ContentHash: record.ContentHash,
			CreatedAt:   record.CreatedAt,
		})
	}
	return rows, nil
}

func fromDocumentModel(row *documentModel) (*core.DocumentRecord, error) {
	vector, err := storage.DecodeVector(row.Vector)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", row.RecordID, err)
	}
	var metadata map[string]string
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata of %s: %w", storage.ErrSerializationFailed, row.RecordID, err)
		}
	}
	return &core.DocumentRecord{
		ID:          row.RecordID,
		Collection:  row.Collection,
		Kind:        core.RecordKind(row.Kind),
		Vector:      vector,
		Model:       row.Model,
		Metadata:    metadata,
		RawText:     row.RawText,
		ContentHash: row.ContentHash,
		CreatedAt:   row.CreatedAt.UTC(),
	}, nil
}
