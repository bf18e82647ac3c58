package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/retry"
	"github.com/poiesic/inquirit/storage"
)

// Concurrent appends to one conversation conflict on its metadata key.
var conflictRetry = retry.Policy{Attempts: 5, BaseDelay: 5 * time.Millisecond}

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	seq, err := backend.GetSequence(turnSeq)
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the turn sequence. The backend is closed separately.
func (r *ConversationRepository) Close() error {
	return r.seq.Release()
}

// AddTurns appends turns to a conversation.
func (r *ConversationRepository) AddTurns(ctx context.Context, conversationID string, turns ...core.Turn) error {
	if err := storage.ValidateConversationID(conversationID); err != nil {
		return err
	}
	for i := range turns {
		if err := core.ValidateTurn(&turns[i]); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
	}
	if len(turns) == 0 {
		return nil
	}

	return conflictRetry.Do(ctx, func(ctx context.Context) error {
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			meta, _, err := r.readMeta(tx, conversationID)
			if err != nil {
				return err
			}

			for _, turn := range turns {
				next, err := r.nextSeq()
				if err != nil {
					return err
				}
				if err := tx.Set(makeTurnKey(conversationID, next), storage.MarshalTurn(turn)); err != nil {
					return err
				}
				meta.Turns++
				if turn.Timestamp.After(meta.LastActive) {
					meta.LastActive = turn.Timestamp
				}
			}

			if err := tx.Set(makeConversationKey(conversationID), storage.MarshalConversationMeta(meta)); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return retry.Permanent(err)
		}
		return err
	})
}

// GetTurns returns the most recent limit turns, oldest first.
func (r *ConversationRepository) GetTurns(ctx context.Context, conversationID string, limit int) ([]core.Turn, error) {
	if err := storage.ValidateConversationID(conversationID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []core.Turn{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Walk backwards from the newest turn so a limit stops early
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		prefix := makePartialTurnKey(conversationID)
		opts.Prefix = prefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeLastTurnKey(conversationID)); iter.ValidForPrefix(prefix); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			var turn core.Turn
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				turn, err = storage.UnmarshalTurn(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, turn)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.Reverse(results)
	return results, nil
}

// ListConversations returns every conversation, most recently active first.
func (r *ConversationRepository) ListConversations(ctx context.Context) ([]storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []storage.Conversation{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conversationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := conversationIDFromKey(item.Key())
			var meta storage.ConversationMeta
			if err := item.Value(func(val []byte) error {
				var err error
				meta, err = storage.UnmarshalConversationMeta(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, storage.Conversation{
				ID:         id,
				Turns:      meta.Turns,
				LastActive: meta.LastActive,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b storage.Conversation) int {
		if c := b.LastActive.Compare(a.LastActive); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return results, nil
}

// DeleteConversation removes a conversation and all of its turns.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := storage.ValidateConversationID(conversationID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		_, found, err := r.readMeta(tx, conversationID)
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}

		// Collect keys first; deleting while iterating invalidates the iterator
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialTurnKey(conversationID)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeConversationKey(conversationID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Helper methods

// readMeta reads a conversation's metadata. A missing conversation yields
// the zero value and found=false.
func (r *ConversationRepository) readMeta(tx *badger.Txn, conversationID string) (meta storage.ConversationMeta, found bool, err error) {
	item, err := tx.Get(makeConversationKey(conversationID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return meta, false, nil
		}
		return meta, false, err
	}

	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		meta, unmarshalErr = storage.UnmarshalConversationMeta(val)
		return unmarshalErr
	})
	return meta, err == nil, err
}

// nextSeq returns the next turn sequence number.
// BadgerDB sequences can return 0 on first call, so we skip it.
func (r *ConversationRepository) nextSeq() (uint64, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		return r.seq.Next()
	}
	return next, nil
}

// OpenRepository opens (or creates) a conversation repository on disk.
// Closing the returned repository also closes its backend.
func OpenRepository(path string) (storage.ConversationRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}

	repo, err := NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &ownedRepository{ConversationRepository: repo, backend: backend}, nil
}

// ownedRepository closes its backend along with the sequence.
type ownedRepository struct {
	*ConversationRepository
	backend *Backend
}

func (o *ownedRepository) Close() error {
	seqErr := o.ConversationRepository.Close()
	if err := o.backend.Close(); err != nil {
		return err
	}
	return seqErr
}
