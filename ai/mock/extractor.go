package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/docchat/ai"
)

// MockProfileExtractor is a test double for ai.ProfileExtractor.
type MockProfileExtractor struct {
	// ExtractProfileFunc is called by ExtractProfile if set.
	// If nil, an empty profile is returned.
	ExtractProfileFunc func(ctx context.Context, messages []ai.Message) (ai.ExtractedProfile, error)

	callCount atomic.Int64
}

var _ ai.ProfileExtractor = (*MockProfileExtractor)(nil)

// NewMockProfileExtractor creates a mock extractor that finds nothing.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockProfileExtractor() *MockProfileExtractor {
	return &MockProfileExtractor{}
}

// ExtractProfile returns the injected profile, or an empty one.
func (m *MockProfileExtractor) ExtractProfile(ctx context.Context, messages []ai.Message) (ai.ExtractedProfile, error) {
	m.callCount.Add(1)
	if m.ExtractProfileFunc != nil {
		return m.ExtractProfileFunc(ctx, messages)
	}
	return ai.ExtractedProfile{}, nil
}

// CallCount returns the number of times ExtractProfile was called.
func (m *MockProfileExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockProfileExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractProfileFunc = nil
}

// MockTranscriber is a test double for ai.Transcriber.
type MockTranscriber struct {
	TranscribeImageFunc func(ctx context.Context, imageURL string) (string, error)

	callCount atomic.Int64
}

var _ ai.Transcriber = (*MockTranscriber)(nil)

// NewMockTranscriber creates a mock transcriber that returns "".
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// TranscribeImage returns the injected transcription, or "".
func (m *MockTranscriber) TranscribeImage(ctx context.Context, imageURL string) (string, error) {
	m.callCount.Add(1)
	if m.TranscribeImageFunc != nil {
		return m.TranscribeImageFunc(ctx, imageURL)
	}
	return "", nil
}

// CallCount returns the number of times TranscribeImage was called.
func (m *MockTranscriber) CallCount() int {
	return int(m.callCount.Load())
}
