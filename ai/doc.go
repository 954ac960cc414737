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


// Package ai provides abstractions for the model services docchat depends on.
//
// The package defines interfaces for:
//
//   - Embedder: text to vector, tagged with the model that produced it
//   - ImageEmbedder: a separate, deterministic image to vector path
//   - Completer: system prompt plus history to reply text
//   - ProfileExtractor: structured user facts from conversation messages
//   - Transcriber: text read out of an attached image
//   - AIProvider: aggregates the services above for lifecycle management
//
// # Implementation Packages
//
//   - ai/openai: production implementation over OpenAI-compatible APIs
//   - ai/vision: colour-histogram ImageEmbedder with no network dependency
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public production constructors (openai.NewProvider, openai.NewEmbedder)
// return interface types. Test constructors (mock.NewMockEmbedder,
// mock.NewMockCompleter) return concrete types so tests can inject behaviour
// and assert on call counts. mock.NewMockProvider returns ai.AIProvider and
// exposes the concrete mocks through GetMockEmbedder and friends.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "วิธีรีเซ็ตรหัสผ่าน")
//	reply, err := provider.Completer().Complete(ctx, systemPrompt, history)
package ai
