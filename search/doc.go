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


// Package search answers questions from the live web.
//
// The Searcher runs a two-stage pipeline:
//   - Retrieval: rephrase the question, query the web search endpoint, fetch
//     and chunk the result pages, then rerank chunks by embedding similarity
//   - Synthesis: hand the surviving chunks to the language model as a
//     numbered context and ask for an answer with [n] citations
//
// Synthesis always runs, even when retrieval finds nothing.
package search
