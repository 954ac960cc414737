package ingestion

import "errors"

var (
	// ErrBatcherRequired is returned when an embedding batcher is not provided.
	ErrBatcherRequired = errors.New("embedding batcher required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrBackendsRequired is returned when no document repository is provided.
	ErrBackendsRequired = errors.New("document repositories required")

	// ErrRegistryRequired is returned when a session registry is not provided.
	ErrRegistryRequired = errors.New("session registry required")

	// ErrNoUnits is returned for a request without units.
	ErrNoUnits = errors.New("no units to ingest")

	// ErrEmptyCorpus is returned when the units hold no text and no images.
	ErrEmptyCorpus = errors.New("uploaded content is empty")

	// ErrNoEmbeddings is returned when every chunk and image failed to embed.
	ErrNoEmbeddings = errors.New("no embeddings produced")

	// ErrUpsertRequiresIDs is returned when an upsert lacks a session or source id.
	ErrUpsertRequiresIDs = errors.New("upsert requires session id and source id")

	// ErrUnknownMode is returned for a write mode other than replace or upsert.
	ErrUnknownMode = errors.New("unknown write mode")
)
