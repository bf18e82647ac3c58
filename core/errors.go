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


package core

import "errors"

var (
	// ErrInvalidInput indicates a caller supplied values an operation cannot act on.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVectorLengthMismatch indicates two vectors of different dimensionality were compared.
	ErrVectorLengthMismatch = errors.New("vector length mismatch")

	// ErrTransport indicates a network failure talking to an external service.
	ErrTransport = errors.New("transport error")

	// ErrInvalidChunk indicates a ChunkDocument failed validation.
	ErrInvalidChunk = errors.New("invalid chunk document")

	// ErrInvalidTurn indicates a conversation Turn failed validation.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSpeakerType indicates an invalid SpeakerType value.
	ErrInvalidSpeakerType = errors.New("invalid speaker type")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)
