package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/inquirit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := OpenBackend(file, false)
	assert.ErrorContains(t, err, "is not a directory")
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWithTx(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	t.Run("commit persists", func(t *testing.T) {
		err := backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Set([]byte("k"), []byte("v")); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		require.NoError(t, err)

		err = backend.WithTx(func(tx *badger.Txn) error {
			_, err := tx.Get([]byte("k"))
			return err
		}, false)
		assert.NoError(t, err)
	})

	t.Run("error discards", func(t *testing.T) {
		err := backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Set([]byte("gone"), []byte("v")); err != nil {
				return err
			}
			return assert.AnError
		}, true)
		assert.Equal(t, assert.AnError, err)

		err = backend.WithTx(func(tx *badger.Txn) error {
			_, err := tx.Get([]byte("gone"))
			return err
		}, false)
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
	})
}

func TestGetSequence(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.GetSequence("test_sequence")
	require.NoError(t, err)
	defer seq.Release()

	id1, err := seq.Next()
	require.NoError(t, err)
	id2, err := seq.Next()
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}

func TestTurnKeysDoNotOverlap(t *testing.T) {
	short := makePartialTurnKey("a")
	long := makeTurnKey("ab", 1)
	assert.False(t, len(long) >= len(short) && string(long[:len(short)]) == string(short))

	assert.Equal(t, "research", conversationIDFromKey(makeConversationKey("research")))
	assert.Less(t, string(makeTurnKey("a", 99)), string(makeLastTurnKey("a")))
}
