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


// Package ai provides abstractions for the AI services used by inquirit.
//
// Two capabilities are needed by the search pipeline:
//
//   - Embedder: turns text into vectors for reranking
//   - LanguageModel: rephrases queries and synthesizes cited answers
//
// AIProvider bundles both so callers can initialize and close them together.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo adapters for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in ai/openai return interface types. Test constructors in
// ai/mock return concrete types so tests can inject behavior and count calls;
// mock.NewMockProvider returns the interface and exposes GetMockEmbedder and
// GetMockLanguageModel for assertions.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	answer, err := provider.LanguageModel().Generate(ctx, ai.Prompt{Input: "Hello"})
package ai
