package retrieval

import "errors"

var (
	// ErrRepositoryRequired is returned when a document repository is not provided.
	ErrRepositoryRequired = errors.New("document repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrImageEmbedderRequired is returned by SearchImage when no image embedder is set.
	ErrImageEmbedderRequired = errors.New("image embedder required")

	// ErrQueryEmbedding is returned when the query cannot be embedded.
	ErrQueryEmbedding = errors.New("query embedding failed")

	// ErrUnknownPolicy is returned when a cross-model policy name is not recognised.
	ErrUnknownPolicy = errors.New("unknown cross-model policy")
)
