package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateChunkDocument checks that a chunk carries text worth embedding.
func ValidateChunkDocument(doc *ChunkDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidChunk)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	return nil
}

// ValidateTurn checks a conversation turn before it is stored.
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}
	if turn.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}
	if err := ValidateSpeakerType(turn.Speaker); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}
	if !IsValidTimestamp(turn.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrInvalidTimestamp)
	}
	return nil
}

func ValidateSpeakerType(speaker SpeakerType) error {
	if speaker != SpeakerTypeHuman && speaker != SpeakerTypeAI {
		return fmt.Errorf("%w: value %d", ErrInvalidSpeakerType, speaker)
	}
	return nil
}

func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
