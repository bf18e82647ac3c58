package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	conversationPrefix = "conv"
	turnPrefix         = "turn"
	turnSeq            = "turnseq"
)

// makeConversationKey generates the metadata key for a conversation.
// Format: prefix:conversationID
func makeConversationKey(conversationID string) []byte {
	prefix := conversationPrefix + ":"
	buf := make([]byte, len(prefix)+len(conversationID))
	offset := copy(buf, prefix)
	copy(buf[offset:], conversationID)
	return buf
}

// conversationIDFromKey is the inverse of makeConversationKey.
func conversationIDFromKey(key []byte) string {
	return string(key[len(conversationPrefix)+1:])
}

// makePartialTurnKey generates the prefix shared by every turn of a conversation.
// Format: prefix:conversationID\x00
// The NUL terminator keeps "a" from matching the turns of "ab".
func makePartialTurnKey(conversationID string) []byte {
	prefix := turnPrefix + ":"
	buf := make([]byte, len(prefix)+len(conversationID)+1)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], conversationID)
	buf[offset] = 0
	return buf
}

// makeTurnKey generates a key for a single turn.
// Format: prefix:conversationID\x00seq
func makeTurnKey(conversationID string, seq uint64) []byte {
	partial := makePartialTurnKey(conversationID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeLastTurnKey generates a key that sorts after every turn of a conversation,
// used to seek a reverse iterator.
func makeLastTurnKey(conversationID string) []byte {
	return makeTurnKey(conversationID, ^uint64(0))
}
