package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Callers must not assume the provider honours cardinality; check the length.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the identifier of the embedding model. Records are tagged
	// with it so vectors from different models are never compared blindly.
	Model() string
}

// ImageEmbedder generates vector embeddings from encoded image bytes.
// It is a separate path from text embedding and must be deterministic.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
	Model() string
}

// Completer produces a reply from a system prompt and a message history.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the system prompt followed by messages and returns the
	// model's reply text. Streaming providers must buffer the full reply.
	Complete(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// ProfileExtractor derives user profile facts from conversation messages.
type ProfileExtractor interface {
	// ExtractProfile returns whatever profile fields the messages reveal.
	// Unknown fields are left empty; it never guesses.
	ExtractProfile(ctx context.Context, messages []Message) (ExtractedProfile, error)
}

// Transcriber reads the text out of an image, typically a screenshot the user
// attached to a chat message.
type Transcriber interface {
	TranscribeImage(ctx context.Context, imageURL string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	Embedder() Embedder
	ImageEmbedder() ImageEmbedder
	Completer() Completer
	ProfileExtractor() ProfileExtractor
	Transcriber() Transcriber

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
