package badger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// writeBatchSize bounds the number of records written per transaction so a
// large upload never trips badger's transaction size limit.
const writeBatchSize = 256

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend   *Backend
	ownsStore bool
	logger    *slog.Logger
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a repository over an open backend.
// Closing the repository does not close the backend.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend required", storage.ErrStorage)
	}
	return &DocumentRepository{
		backend: backend,
		logger:  backend.logger.With("repository", "documents"),
	}, nil
}

// NewRepository opens a BadgerDB database at path and returns a repository
// that owns it.
//
// Returns storage.DocumentRepository interface to enforce abstraction.
func NewRepository(path string) (storage.DocumentRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStorage, err)
	}
	repo, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.ownsStore = true
	return repo, nil
}

// Close closes the backend if the repository opened it.
func (r *DocumentRepository) Close() error {
	if r.ownsStore && !r.backend.IsClosed() {
		return r.backend.Close()
	}
	return nil
}

// ReplaceAll drops every record in collection and writes records.
// Records are validated before anything is dropped. A failure after the drop
// leaves the collection partially written.
func (r *DocumentRepository) ReplaceAll(ctx context.Context, collection string, records []*core.DocumentRecord) error {
	if err := r.checkWrite(collection, records); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.backend.DropPrefix(makeCollectionPrefix(collection)); err != nil {
		return fmt.Errorf("%w: drop collection %q: %w", storage.ErrStorage, collection, err)
	}
	r.logger.Debug("dropped collection", "collection", collection)

	return r.write(ctx, collection, records)
}

// Upsert writes records, overwriting existing records with the same id.
// A vector must match the length of the records of the same kind and model
// that stay in the collection.
func (r *DocumentRepository) Upsert(ctx context.Context, collection string, records []*core.DocumentRecord) error {
	if err := r.checkWrite(collection, records); err != nil {
		return err
	}
	existing, err := r.dimensions(ctx, collection, storage.BatchIDs(records))
	if err != nil {
		return err
	}
	if err := storage.ValidateBatchAgainst(existing, records); err != nil {
		return err
	}
	return r.write(ctx, collection, records)
}

// dimensions collects the vector length of each shape in collection,
// ignoring the records in skip.
func (r *DocumentRepository) dimensions(ctx context.Context, collection string, skip map[string]struct{}) (storage.Dimensions, error) {
	dims := make(storage.Dimensions)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			_, id, ok := splitDocumentKey(item.Key())
			if !ok {
				continue
			}
			if _, overwritten := skip[id]; overwritten {
				continue
			}
			err := item.Value(func(val []byte) error {
				record, err := storage.UnmarshalDocumentRecord(val)
				if err != nil {
					return err
				}
				shape := storage.VectorShape{Kind: record.Kind, Model: record.Model}
				if _, ok := dims[shape]; !ok {
					dims[shape] = record.Dimensions()
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: read dimensions of %q: %w", storage.ErrStorage, collection, err)
	}
	return dims, nil
}

// Scan returns every record in collection in key order.
func (r *DocumentRepository) Scan(ctx context.Context, collection string) ([]*core.DocumentRecord, error) {
	if err := r.checkCollection(collection); err != nil {
		return nil, err
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	records := make([]*core.DocumentRecord, 0)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.DocumentRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalDocumentRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %q: %w", storage.ErrStorage, collection, err)
	}
	return records, nil
}

// Count returns the number of records in collection without decoding them.
func (r *DocumentRepository) Count(ctx context.Context, collection string) (int, error) {
	if err := r.checkCollection(collection); err != nil {
		return 0, err
	}
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, fmt.Errorf("%w: count %q: %w", storage.ErrStorage, collection, err)
	}
	return count, nil
}

// Collections lists every non-empty collection in key order.
func (r *DocumentRepository) Collections(ctx context.Context) ([]string, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	collections := make([]string, 0)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Rewind()
		for iter.Valid() {
			if err := ctx.Err(); err != nil {
				return err
			}
			collection, _, ok := splitDocumentKey(iter.Item().Key())
			if !ok {
				iter.Next()
				continue
			}
			collections = append(collections, collection)
			// Skip the rest of this collection.
			iter.Seek(collectionUpperBound(collection))
		}
		return nil
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: list collections: %w", storage.ErrStorage, err)
	}
	return collections, nil
}

func (r *DocumentRepository) write(ctx context.Context, collection string, records []*core.DocumentRecord) error {
	now := time.Now().UTC()
	for start := 0; start < len(records); start += writeBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+writeBatchSize, len(records))
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for _, record := range records[start:end] {
				record.Collection = collection
				if record.CreatedAt.IsZero() {
					record.CreatedAt = now
				}
				value, err := storage.MarshalDocumentRecord(record)
				if err != nil {
					return err
				}
				if err := tx.Set(makeDocumentKey(collection, record.ID), value); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			r.logger.Error("write failed", "collection", collection, "written", start, "total", len(records), "err", err)
			return fmt.Errorf("%w: write %q after %d of %d records: %w",
				storage.ErrStorage, collection, start, len(records), err)
		}
	}
	r.logger.Debug("wrote records", "collection", collection, "count", len(records))
	return nil
}

func (r *DocumentRepository) checkCollection(collection string) error {
	if collection == "" {
		return storage.ErrEmptyCollection
	}
	if strings.ContainsRune(collection, keySeparator) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidCollection, collection)
	}
	return nil
}

func (r *DocumentRepository) checkWrite(collection string, records []*core.DocumentRecord) error {
	if err := r.checkCollection(collection); err != nil {
		return err
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return storage.ValidateBatch(records)
}
