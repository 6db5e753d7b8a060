package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS records_expires_at ON records (expires_at);`

// SQLiteDB implements KeyValue on top of a SQLite file. SQLite has no
// native expiry, so each row carries its expiry time: reads treat expired
// rows as missing and Cleanup deletes them.
//
// Unlike Badger, the file may be opened by several processes at once.
type SQLiteDB struct {
	db     *sql.DB
	keyTTL time.Duration
	now    func() time.Time
}

// sqliteAvailable reports whether the SQLite driver registered itself with
// database/sql.
func sqliteAvailable() bool {
	for _, d := range sql.Drivers() {
		if d == sqliteDriver {
			return true
		}
	}
	return false
}

// NewSQLiteDB opens (or creates) the database file at path. It is up to the
// caller to close it with Close().
func NewSQLiteDB(path string, keyTTL time.Duration) (*SQLiteDB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: the sqlite engine needs a file path", ErrInvalidDescriptor)
	}
	// Pragmas go in the DSN so that every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %q: %v", ErrBackendUnavailable, path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrBackendUnavailable, sqliteError(err))
	}

	return &SQLiteDB{
		db:     db,
		keyTTL: keyTTL,
		now:    time.Now,
	}, nil
}

// Put upserts an entry and restarts its expiry countdown.
func (s *SQLiteDB) Put(entry KVEntry) error {
	var expiresAt sql.NullInt64
	if s.keyTTL > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(s.keyTTL).UnixNano(), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO records (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at`,
		string(entry.Key), entry.Value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: could not set the KV pair: %v", ErrBackendUnavailable, sqliteError(err))
	}
	return nil
}

// Read returns an entry by key.
func (s *SQLiteDB) Read(key []byte) (KVEntry, error) {
	var val []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRow(
		"SELECT value, expires_at FROM records WHERE key = ?",
		string(key),
	).Scan(&val, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return KVEntry{}, ErrNotFound
	}
	if err != nil {
		return KVEntry{}, fmt.Errorf("%w: can't retrieve a value for the key provided: %v", ErrBackendUnavailable, sqliteError(err))
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().UnixNano() {
		return KVEntry{}, ErrNotFound
	}
	if val == nil {
		val = []byte{}
	}
	return KVEntry{
		Key:   key,
		Value: val,
	}, nil
}

// Delete removes a key if it's there.
func (s *SQLiteDB) Delete(key []byte) error {
	if _, err := s.db.Exec("DELETE FROM records WHERE key = ?", string(key)); err != nil {
		return fmt.Errorf("%w: could not delete the key: %v", ErrBackendUnavailable, sqliteError(err))
	}
	return nil
}

// Cleanup deletes every expired row.
func (s *SQLiteDB) Cleanup() error {
	_, err := s.db.Exec(
		"DELETE FROM records WHERE expires_at IS NOT NULL AND expires_at <= ?",
		s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: could not purge expired keys: %v", ErrBackendUnavailable, sqliteError(err))
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteDB) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("could not close the database: %v", err)
	}
	return nil
}

// sqliteError adds the SQLite result code, if any, to err's message.
func sqliteError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%v (code %d)", err, se.Code())
	}
	return err
}
