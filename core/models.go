package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SpeakerType identifies the source of a conversation turn.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

// String returns the role name used when rendering history into prompts.
func (s SpeakerType) String() string {
	switch s {
	case SpeakerTypeHuman:
		return "human"
	case SpeakerTypeAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Turn is one message of prior conversation.
type Turn struct {
	Speaker   SpeakerType
	Content   string
	Timestamp time.Time
}

// HumanTurn is shorthand for a human Turn stamped with the current time.
func HumanTurn(content string) Turn {
	return Turn{Speaker: SpeakerTypeHuman, Content: content, Timestamp: time.Now().UTC()}
}

// AITurn is shorthand for an AI Turn stamped with the current time.
func AITurn(content string) Turn {
	return Turn{Speaker: SpeakerTypeAI, Content: content, Timestamp: time.Now().UTC()}
}

// DocumentMetadata identifies the page a chunk was cut from.
type DocumentMetadata struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ChunkDocument is a bounded slice of a fetched page's text.
// Many chunks may share the same metadata. A ChunkDocument lives only for
// the duration of the search call that produced it.
type ChunkDocument struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Vector is an embedding produced by an external model.
type Vector = []float32
