package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteDB(t *testing.T, keyTTL time.Duration) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "records.db"), keyTTL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteDBReadWrite(t *testing.T) {
	db := newTestSQLiteDB(t, 0)

	kv := KVEntry{Key: []byte("Hello"), Value: []byte("World")}
	require.NoError(t, db.Put(kv))

	got, err := db.Read(kv.Key)
	require.NoError(t, err)
	assert.Equal(t, kv, got)

	kv.Value = []byte("again")
	require.NoError(t, db.Put(kv))
	got, err = db.Read(kv.Key)
	require.NoError(t, err)
	assert.Equal(t, kv, got)

	require.NoError(t, db.Delete(kv.Key))
	_, err = db.Read(kv.Key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, db.Delete(kv.Key))
}

func TestSQLiteDBExpiry(t *testing.T) {
	db := newTestSQLiteDB(t, time.Hour)
	now := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }

	k := []byte("fp")
	require.NoError(t, db.Put(KVEntry{Key: k, Value: []byte("1")}))

	now = now.Add(59 * time.Minute)
	_, err := db.Read(k)
	require.NoError(t, err)

	// Rewriting restarts the countdown.
	require.NoError(t, db.Put(KVEntry{Key: k, Value: []byte("2")}))
	now = now.Add(59 * time.Minute)
	got, err := db.Read(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got.Value)

	now = now.Add(time.Minute)
	_, err = db.Read(k)
	assert.ErrorIs(t, err, ErrNotFound)

	// The row is still there until Cleanup runs.
	var n int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, db.Cleanup())
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestSQLiteDBSharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := NewSQLiteDB(path, 0)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteDB(path, 0)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Put(KVEntry{Key: []byte("k"), Value: []byte("v")}))
	got, err := b.Read([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.Value)
}

func TestNewSQLiteDBNoPath(t *testing.T) {
	_, err := NewSQLiteDB("", 0)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}
