// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Force re-embeds records already tagged with the current model.
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarises one collection.
type Result struct {
	Collection string
	// Reembedded counts records written with the current model.
	Reembedded int
	// Current counts text records that already carried the current model.
	Current int
	// Images counts image records, which are never re-embedded.
	Images int
}

// Reembedder re-embeds whole collections.
type Reembedder struct {
	repo      storage.DocumentRepository
	embedder  Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *RecordIterator
	logger    *slog.Logger
}

// NewReembedder creates a reembedder. progress receives human-readable
// output and may be nil.
func NewReembedder(repo storage.DocumentRepository, embedder Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, max(config.MaxRetries, 1), config.RetryDelay),
		iterator:  NewRecordIterator(repo, config.BatchSize),
		logger:    slog.Default().With("component", "reembedder"),
	}, nil
}

// Run re-embeds collection. On failure the returned Result counts the
// batches written before the error.
func (r *Reembedder) Run(ctx context.Context, collection string) (*Result, error) {
	model := r.embedder.Model()
	result := &Result{Collection: collection}

	records, err := r.repo.Scan(ctx, collection)
	if err != nil {
		return result, fmt.Errorf("scan %s: %w", collection, err)
	}
	pending := 0
	for _, record := range records {
		switch {
		case record.Kind == core.RecordKindImage:
			result.Images++
		case record.Model == model && !r.config.Force:
			result.Current++
		default:
			pending++
		}
	}
	if pending == 0 {
		fmt.Fprintf(r.progress, "%s: nothing to re-embed (%d records current)\n", collection, result.Current)
		return result, nil
	}

	fmt.Fprintf(r.progress, "Re-embedding %d records of %s with %s (batch size: %d)\n",
		pending, collection, model, r.iterator.batchSize)
	r.logger.Info("re-embedding collection", "collection", collection, "records", pending, "model", model)

	tracker := NewProgressTracker(r.progress, collection, pending, r.config.ReportInterval)
	tracker.Start()

	keep := func(record *core.DocumentRecord) bool {
		return record.Kind != core.RecordKindImage && (r.config.Force || record.Model != model)
	}
	err = r.iterator.ForEach(ctx, collection, keep, func(batch []*core.DocumentRecord) error {
		if err := r.processor.Process(ctx, collection, batch); err != nil {
			return err
		}
		result.Reembedded += len(batch)
		tracker.Increment(len(batch))
		return nil
	})
	tracker.Finish()
	if err != nil {
		r.logger.Error("re-embedding stopped", "collection", collection, "done", result.Reembedded, "err", err)
		return result, err
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedded %d records in %v\n", result.Reembedded, elapsed.Round(time.Millisecond))
	return result, nil
}

// RunAll re-embeds every collection in the repository, stopping at the
// first failure.
func (r *Reembedder) RunAll(ctx context.Context) ([]*Result, error) {
	collections, err := r.repo.Collections(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(collections))
	for _, collection := range collections {
		result, err := r.Run(ctx, collection)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
