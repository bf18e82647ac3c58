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


// Package storage defines how inquirit persists conversation history.
//
// A conversation is an ordered list of core.Turn values addressed by a
// caller-chosen ID. Search itself is stateless; the history store only feeds
// prior turns back into the rephrase step and records the answers it produced.
//
// The badger subpackage provides the only implementation:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repo, err := badger.NewConversationRepository(backend)
//
// Tests use badger.NewMemoryRepository, which runs Badger in memory.
//
// Turns and conversation metadata are encoded with mus-go.
package storage
