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

package openai

import (
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/vision"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// All services share one rate limiter so the configured budget covers the
// provider as a whole.
type Provider struct {
	config        *ai.Config
	embedder      *Embedder
	imageEmbedder *vision.HistogramEmbedder
	completer     *Completer
	extractor     *ProfileExtractor
	transcriber   *Transcriber
	logger        *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	th := newThrottle(config.RequestsPerSecond, config.Burst)

	embedder, err := newEmbedder(config, th)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(config, th)
	if err != nil {
		return nil, err
	}
	extractor, err := newProfileExtractor(config, th)
	if err != nil {
		return nil, err
	}
	transcriber, err := newTranscriber(config, th)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:        config,
		embedder:      embedder,
		imageEmbedder: vision.NewHistogramEmbedder(),
		completer:     completer,
		extractor:     extractor,
		transcriber:   transcriber,
		logger:        slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ImageEmbedder returns the local image embedding service.
func (p *Provider) ImageEmbedder() ai.ImageEmbedder {
	return p.imageEmbedder
}

// Completer returns the chat completion service.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// ProfileExtractor returns the profile extraction service.
func (p *Provider) ProfileExtractor() ai.ProfileExtractor {
	return p.extractor
}

// Transcriber returns the image transcription service.
func (p *Provider) Transcriber() ai.Transcriber {
	return p.transcriber
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
