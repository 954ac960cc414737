package ingestion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/docchat/embedding"
)

// embeddingProcessor embeds chunks and images.
type embeddingProcessor struct {
	batcher *embedding.Batcher
	logger  *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(batcher *embedding.Batcher, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{batcher: batcher, logger: logger.With("processor", "embeddings")}
}

func (ep *embeddingProcessor) name() string { return "embeddings" }

// process fills b.vectors and b.imageVectors. Failed batches and images
// are recorded on b rather than returned.
func (ep *embeddingProcessor) process(ctx context.Context, b *batch) error {
	texts := make([]string, len(b.chunks))
	for i, c := range b.chunks {
		texts[i] = c.text
	}

	ep.logger.Info("embedding chunks", "chunks", len(texts), "batch_size", ep.batcher.BatchSize())
	vectors, err := ep.batcher.EmbedMany(ctx, texts)
	b.vectors = vectors
	if err != nil {
		for _, failed := range embedding.FailedBatches(err) {
			ep.logger.Warn("skipping failed batch",
				"batch", failed.Batch,
				"offset", failed.Offset,
				"expected", failed.Expected,
				"err", failed.Err)
		}
		b.embedErr = err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(b.images) == 0 {
		return nil
	}
	images := make([][]byte, len(b.images))
	for i, unit := range b.images {
		images[i] = b.req.Units[unit].Image
	}
	imageVectors, indices, err := ep.batcher.EmbedImages(ctx, images)
	switch {
	case errors.Is(err, embedding.ErrImageEmbedderRequired):
		ep.logger.Warn("no image embedder configured, skipping images", "images", len(images))
		b.failedImages = len(images)
		return nil
	case err != nil:
		return err
	}
	b.imageVectors = imageVectors
	b.imageUnits = make([]int, len(indices))
	for i, idx := range indices {
		b.imageUnits[i] = b.images[idx]
	}
	b.failedImages = len(images) - len(indices)
	return nil
}
