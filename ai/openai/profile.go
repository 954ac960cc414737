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
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxParseAttempts = 3

// ProfileExtractor implements ai.ProfileExtractor using OpenAI-compatible chat APIs.
type ProfileExtractor struct {
	client   llms.Model
	throttle *throttle
	logger   *slog.Logger
}

var _ ai.ProfileExtractor = (*ProfileExtractor)(nil)

// rawProfile mirrors the JSON the model is asked for. Age and hobby are kept
// raw because models return them in more than one shape.
type rawProfile struct {
	Name       *string         `json:"name"`
	Age        json.RawMessage `json:"age"`
	Profession *string         `json:"profession"`
	Hobby      json.RawMessage `json:"hobby"`
}

func newProfileExtractor(config *ai.Config, th *throttle) (*ProfileExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &ProfileExtractor{
		client:   client,
		throttle: th,
		logger:   slog.Default().With("component", "openai-profile-extractor"),
	}, nil
}

// NewProfileExtractor creates a new profile extractor using the provided configuration.
//
// Returns ai.ProfileExtractor interface to enforce abstraction.
func NewProfileExtractor(config *ai.Config) (ai.ProfileExtractor, error) {
	return newProfileExtractor(config, newThrottle(config.RequestsPerSecond, config.Burst))
}

// ExtractProfile asks the model for the profile facts present in messages.
// Malformed JSON is repaired where possible and retried up to three times.
func (e *ProfileExtractor) ExtractProfile(ctx context.Context, messages []ai.Message) (ai.ExtractedProfile, error) {
	transcript := renderTranscript(messages)
	if transcript == "" {
		return ai.ExtractedProfile{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildProfilePrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(transcript)},
		},
	}

	var result rawProfile
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		if err := e.throttle.wait(ctx); err != nil {
			return ai.ExtractedProfile{}, err
		}
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return ai.ExtractedProfile{}, err
		}
		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return ai.ExtractedProfile{}, nil
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing profile response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse profile response after retries", "err", lastErr)
		return ai.ExtractedProfile{}, lastErr
	}

	return result.toExtracted(), nil
}

func (r rawProfile) toExtracted() ai.ExtractedProfile {
	var p ai.ExtractedProfile
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Profession != nil {
		p.Profession = strings.TrimSpace(*r.Profession)
	}
	p.Age = parseAge(r.Age)
	p.Hobbies = parseHobbies(r.Hobby)
	return p
}

// parseAge accepts 20, "20" or null. Anything else is treated as unknown.
func parseAge(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// parseHobbies accepts a list, a single string or null.
func parseHobbies(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, h := range list {
			if h = strings.TrimSpace(h); h != "" {
				out = append(out, h)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
	}
	return nil
}
