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


package search

import "errors"

var (
	// ErrWebSearcherRequired is returned when a web search client is not provided.
	ErrWebSearcherRequired = errors.New("web searcher required")

	// ErrFetcherRequired is returned when a page fetcher is not provided.
	ErrFetcherRequired = errors.New("page fetcher required")

	// ErrRerankerRequired is returned when a nil reranker is supplied.
	ErrRerankerRequired = errors.New("reranker required")

	// ErrLanguageModelRequired is returned when a search is run without a language model.
	ErrLanguageModelRequired = errors.New("language model required")

	// ErrEmbedderRequired is returned when a search is run without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")
)
