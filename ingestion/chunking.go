package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/docchat/chunk"
	"github.com/poiesic/docchat/core"
)

// chunkingProcessor splits units into token windows.
type chunkingProcessor struct {
	chunker *chunk.Chunker
	logger  *slog.Logger
}

var _ processor = (*chunkingProcessor)(nil)

func newChunkingProcessor(chunker *chunk.Chunker, logger *slog.Logger) *chunkingProcessor {
	return &chunkingProcessor{chunker: chunker, logger: logger.With("processor", "chunking")}
}

func (cp *chunkingProcessor) name() string { return "chunking" }

// process chunks every unit. A chunk whose cleaned text hashes the same as
// an earlier chunk of the upload is dropped.
func (cp *chunkingProcessor) process(_ context.Context, b *batch) error {
	seen := make(map[string]struct{})
	for i, unit := range b.req.Units {
		if unit.Kind == UnitImage {
			if len(unit.Image) > 0 {
				b.images = append(b.images, i)
			}
			continue
		}
		for j, text := range cp.chunker.Split(unit.Content()) {
			cleaned := core.CleanText(text)
			if cleaned == "" {
				continue
			}
			hash := core.ContentHash(cleaned)
			if _, dup := seen[hash]; dup {
				b.duplicates++
				continue
			}
			seen[hash] = struct{}{}
			b.chunks = append(b.chunks, pendingChunk{unit: i, index: j, text: cleaned, hash: hash})
		}
	}

	cp.logger.Debug("units chunked",
		"units", len(b.req.Units),
		"chunks", len(b.chunks),
		"duplicates", b.duplicates,
		"images", len(b.images))

	if len(b.chunks) == 0 && len(b.images) == 0 {
		return ErrEmptyCorpus
	}
	return nil
}
