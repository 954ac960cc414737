package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/tokenize"
)

const (
	// DefaultBatchSize is the number of texts sent in one provider call.
	DefaultBatchSize = 100

	// DefaultMaxInputTokens is the per-text ceiling of common embedding models.
	DefaultMaxInputTokens = 8191
)

// Batcher embeds texts in concurrent, order-preserving batches.
type Batcher struct {
	embedder       ai.Embedder
	imageEmbedder  ai.ImageEmbedder
	tok            tokenize.Tokenizer
	batchSize      int
	maxInputTokens int
	pool           *ants.Pool
	logger         *slog.Logger
}

// Option configures a Batcher.
type Option func(*Batcher) error

// WithBatchSize sets the number of texts per provider call. Default is 100.
func WithBatchSize(size int) Option {
	return func(b *Batcher) error {
		if size < 1 {
			size = 1
		}
		b.batchSize = size
		return nil
	}
}

// WithMaxInputTokens sets the per-text truncation ceiling. Default is 8191.
// A value below 1 disables truncation.
func WithMaxInputTokens(max int) Option {
	return func(b *Batcher) error {
		b.maxInputTokens = max
		return nil
	}
}

// WithPoolSize sets the number of batches embedded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Batcher) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithImageEmbedder enables EmbedImages.
func WithImageEmbedder(embedder ai.ImageEmbedder) Option {
	return func(b *Batcher) error {
		b.imageEmbedder = embedder
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatcher creates a Batcher over embedder, using tok to enforce the
// per-text token ceiling.
func NewBatcher(embedder ai.Embedder, tok tokenize.Tokenizer, opts ...Option) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if tok == nil {
		return nil, ErrTokenizerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Batcher{
		embedder:       embedder,
		tok:            tok,
		batchSize:      DefaultBatchSize,
		maxInputTokens: DefaultMaxInputTokens,
		pool:           pool,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	b.logger = b.logger.With("component", "embedding-batcher")
	return b, nil
}

// Model returns the text embedding model identifier.
func (b *Batcher) Model() string {
	return b.embedder.Model()
}

// ImageModel returns the image embedding model identifier, or "" when none is set.
func (b *Batcher) ImageModel() string {
	if b.imageEmbedder == nil {
		return ""
	}
	return b.imageEmbedder.Model()
}

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// EmbedBatch embeds one batch in a single provider call. The result has
// exactly len(texts) vectors or an error is returned.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = b.truncate(text)
	}

	vectors, err := b.embedder.EmbedTexts(ctx, inputs)
	if err != nil {
		b.logger.Error("embedding provider failed", "texts", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if len(vectors) != len(texts) {
		b.logger.Warn("embedding count mismatch", "expected", len(texts), "received", len(vectors))
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrCardinalityMismatch, len(texts), len(vectors))
	}
	return vectors, nil
}

// EmbedMany embeds texts of any length. The result always has len(texts)
// slots. Slots belonging to a failed batch are nil and the returned error
// joins one *BatchError per failed batch.
func (b *Batcher) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(be *BatchError) {
		mu.Lock()
		errs = append(errs, be)
		mu.Unlock()
	}

	for batch, offset := 0, 0; offset < len(texts); batch, offset = batch+1, offset+b.batchSize {
		end := min(offset+b.batchSize, len(texts))
		batchNum, start, slice := batch, offset, texts[offset:end]

		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(&BatchError{Batch: batchNum, Offset: start, Expected: len(slice), Err: err})
				return
			}
			vectors, err := b.EmbedBatch(ctx, slice)
			if err != nil {
				fail(&BatchError{Batch: batchNum, Offset: start, Expected: len(slice), Received: len(vectors), Err: err})
				return
			}
			// Each batch owns a disjoint range of out.
			copy(out[start:start+len(slice)], vectors)
		})
		if submitErr != nil {
			wg.Done()
			fail(&BatchError{Batch: batchNum, Offset: start, Expected: len(slice), Err: submitErr})
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		b.logger.Warn("embedding batches failed", "failed", len(errs), "texts", len(texts))
		return out, errors.Join(errs...)
	}
	return out, nil
}

// EmbedImages embeds each image with the image embedder. Images that cannot
// be embedded are logged and skipped. The returned indices identify which
// inputs the vectors belong to.
func (b *Batcher) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, []int, error) {
	if len(images) == 0 {
		return nil, nil, nil
	}
	if b.imageEmbedder == nil {
		return nil, nil, ErrImageEmbedderRequired
	}

	vectors := make([][]float32, 0, len(images))
	indices := make([]int, 0, len(images))
	for i, data := range images {
		if err := ctx.Err(); err != nil {
			return vectors, indices, err
		}
		vector, err := b.imageEmbedder.EmbedImage(ctx, data)
		if err != nil {
			b.logger.Warn("skipping image", "index", i, "err", err)
			continue
		}
		vectors = append(vectors, vector)
		indices = append(indices, i)
	}
	return vectors, indices, nil
}

// Release releases the worker pool.
// The batcher should not be used after calling Release.
func (b *Batcher) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

func (b *Batcher) truncate(text string) string {
	if b.maxInputTokens < 1 {
		return text
	}
	return tokenize.Truncate(b.tok, text, b.maxInputTokens)
}
