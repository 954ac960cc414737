// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ImageEmbedder,
// ai.Completer, ai.ProfileExtractor, ai.Transcriber and ai.AIProvider for use
// in unit tests. The mocks allow tests to run without external AI service
// dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	completer := mock.NewMockCompleter().
//	    WithCompleteFunc(func(ctx context.Context, system string, msgs []ai.Message) (string, error) {
//	        return "", errors.New("provider down")
//	    })
//
//	// Check call counts
//	count := completer.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors derived from an FNV hash of the text
//   - MockImageEmbedder: deterministic unit vectors derived from the image bytes
//   - MockCompleter: echoes the last user message
//   - MockProfileExtractor: returns an empty profile
//   - MockTranscriber: returns an empty transcription
//
// Call counters are atomic because embedding batches run concurrently.
package mock
