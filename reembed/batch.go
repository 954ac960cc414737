package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// Embedder embeds one batch in a single call and reports its model tag.
// *embedding.Batcher satisfies it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// BatchProcessor re-embeds one batch of records and writes it back.
type BatchProcessor struct {
	repo           storage.DocumentRepository
	embedder       Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a processor that retries each provider call up
// to maxRetries times.
func NewBatchProcessor(repo storage.DocumentRepository, embedder Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the RawText of records and upserts them into collection
// with the new vectors and model tag. Records are only modified after the
// embedding call succeeds.
func (bp *BatchProcessor) Process(ctx context.Context, collection string, records []*core.DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.RawText
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = bp.embedder.EmbedBatch(ctx, texts)
		return embedErr
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("%w: %d records after %d attempts: %w", ErrBatchFailed, len(records), bp.maxRetries, err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: expected %d vectors, received %d", ErrBatchFailed, len(records), len(vectors))
	}

	model := bp.embedder.Model()
	updated := make([]*core.DocumentRecord, len(records))
	for i, record := range records {
		clone := *record
		clone.Vector = vectors[i]
		clone.Model = model
		updated[i] = &clone
	}
	if err := bp.repo.Upsert(ctx, collection, updated); err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	return nil
}
