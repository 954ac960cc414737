package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Transcriber implements ai.Transcriber with a vision-capable chat model.
type Transcriber struct {
	client   llms.Model
	throttle *throttle
	logger   *slog.Logger
}

var _ ai.Transcriber = (*Transcriber)(nil)

func newTranscriber(config *ai.Config, th *throttle) (*Transcriber, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.VisionModel),
	)
	if err != nil {
		return nil, err
	}

	return &Transcriber{
		client:   client,
		throttle: th,
		logger:   slog.Default().With("component", "openai-transcriber"),
	}, nil
}

// TranscribeImage returns the text visible in the image at imageURL.
func (t *Transcriber) TranscribeImage(ctx context.Context, imageURL string) (string, error) {
	if err := t.throttle.wait(ctx); err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(transcribePrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.ImageURLPart(imageURL)},
		},
	}

	response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		t.logger.Error("failed to transcribe image", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
