package eventstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

const testRunID = "run-123"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, testRunID, "TestEvent", []byte(`{"test":"data"}`), map[string]string{"key": "value"}))
	require.NoError(t, store.Append(ctx, "other-run", "TestEvent", nil, nil))

	events, err := store.GetByRunID(ctx, testRunID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, testRunID, e.RunID())
	assert.Equal(t, "TestEvent", e.Type())
	assert.JSONEq(t, `{"test":"data"}`, string(e.Payload()))
	assert.Equal(t, "value", e.Metadata()["key"])
	assert.WithinDuration(t, time.Now(), e.Timestamp(), time.Minute)
}

func TestSQLiteStore_GetRange(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, testRunID, "A", nil, nil))
	require.NoError(t, store.Append(ctx, testRunID, "B", nil, nil))

	events, err := store.GetRange(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Type())
	assert.Equal(t, "B", events[1].Type())

	events, err = store.GetRange(ctx, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), testRunID, "A", nil, nil))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByRunID(t.Context(), testRunID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteStore_AppendAfterCloseFails(t *testing.T) {
	store, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Append(t.Context(), testRunID, "A", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEventAppendFailed))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEventStore))
}
