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


package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/inquirit/core"
)

// MaxConversationIDLength bounds conversation IDs so they stay cheap as key prefixes.
const MaxConversationIDLength = 256

// ConversationMeta is the per-conversation record kept next to its turns.
type ConversationMeta struct {
	Turns      int
	LastActive time.Time
}

// Timestamps are stored as Unix microseconds.
type turnSerializer struct{}

func (turnSerializer) Marshal(t core.Turn, bs []byte) (n int) {
	n = varint.Int.Marshal(int(t.Speaker), bs)
	n += ord.String.Marshal(t.Content, bs[n:])
	n += varint.Int64.Marshal(t.Timestamp.UnixMicro(), bs[n:])
	return
}

func (turnSerializer) Unmarshal(bs []byte) (t core.Turn, n int, err error) {
	speaker, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	t.Speaker = core.SpeakerType(speaker)
	var n1 int
	t.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	micros, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.Timestamp = time.UnixMicro(micros).UTC()
	return
}

func (turnSerializer) Size(t core.Turn) (size int) {
	size = varint.Int.Size(int(t.Speaker))
	size += ord.String.Size(t.Content)
	return size + varint.Int64.Size(t.Timestamp.UnixMicro())
}

type metaSerializer struct{}

func (metaSerializer) Marshal(m ConversationMeta, bs []byte) (n int) {
	n = varint.Int.Marshal(m.Turns, bs)
	n += varint.Int64.Marshal(m.LastActive.UnixMicro(), bs[n:])
	return
}

func (metaSerializer) Unmarshal(bs []byte) (m ConversationMeta, n int, err error) {
	m.Turns, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	micros, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	m.LastActive = time.UnixMicro(micros).UTC()
	return
}

func (metaSerializer) Size(m ConversationMeta) int {
	return varint.Int.Size(m.Turns) + varint.Int64.Size(m.LastActive.UnixMicro())
}

var (
	turnMUS = turnSerializer{}
	metaMUS = metaSerializer{}
)

// MarshalTurn serializes a Turn to bytes.
func MarshalTurn(turn core.Turn) []byte {
	buf := make([]byte, turnMUS.Size(turn))
	turnMUS.Marshal(turn, buf)
	return buf
}

// UnmarshalTurn deserializes a Turn from bytes.
func UnmarshalTurn(data []byte) (core.Turn, error) {
	turn, n, err := turnMUS.Unmarshal(data)
	if err != nil {
		return core.Turn{}, fmt.Errorf("%w: turn: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return core.Turn{}, fmt.Errorf("%w: turn: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return turn, nil
}

// MarshalConversationMeta serializes a ConversationMeta to bytes.
func MarshalConversationMeta(meta ConversationMeta) []byte {
	buf := make([]byte, metaMUS.Size(meta))
	metaMUS.Marshal(meta, buf)
	return buf
}

// UnmarshalConversationMeta deserializes a ConversationMeta from bytes.
func UnmarshalConversationMeta(data []byte) (ConversationMeta, error) {
	meta, n, err := metaMUS.Unmarshal(data)
	if err != nil {
		return ConversationMeta{}, fmt.Errorf("%w: conversation: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return ConversationMeta{}, fmt.Errorf("%w: conversation: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return meta, nil
}

// ValidateConversationID rejects IDs that are blank, too long, or contain a NUL byte.
func ValidateConversationID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidConversationID)
	case len(id) > MaxConversationIDLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidConversationID, MaxConversationIDLength)
	case strings.IndexByte(id, 0) >= 0:
		return fmt.Errorf("%w: contains NUL", ErrInvalidConversationID)
	}
	return nil
}
