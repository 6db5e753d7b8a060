package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog/log"

	"github.com/ptgott/repstore/record"
)

// Each stored value starts with its expiry deadline in Unix nanoseconds, or
// zero for keys that never expire.
const badgerDeadlineLen = 8

// BadgerOptions tunes the embedded database.
type BadgerOptions struct {
	// Size of each value log file in bytes. Zero keeps Badger's default.
	ValueLogFileSize int64
}

// BadgerDB implements KeyValue and represents the application's connection
// to BadgerDB.
//
// Badger only tracks expiry in whole seconds, so the exact deadline is kept
// in front of each value and checked on Read. Badger's own TTL is rounded up
// so that it only ever purges keys that have already expired.
type BadgerDB struct {
	connection *badger.DB
	keyTTL     time.Duration // TTL for each key in the db; zero means none
	now        func() time.Time
}

// NewBadgerDB initializes the BadgerDB embedded database at dirPath. An empty
// dirPath keeps everything in memory. It is up to the caller to close the
// database with Close().
//
// Badger holds an exclusive lock on its directory, so only one process may
// open a given dirPath at a time.
func NewBadgerDB(dirPath string, keyTTL time.Duration, opts BadgerOptions) (*BadgerDB, error) {
	// See: https://dgraph.io/docs/badger/get-started/#opening-a-database
	bo := badger.DefaultOptions(dirPath).
		WithLogger(newBadgerLogger(log.Logger))
	if dirPath == "" {
		bo = bo.WithInMemory(true)
	}
	if opts.ValueLogFileSize > 0 {
		bo = bo.WithValueLogFileSize(opts.ValueLogFileSize)
	}

	db, err := badger.Open(bo)

	if err != nil {
		return nil, fmt.Errorf("%w: can't open the db connection: %v", ErrBackendUnavailable, err)
	}

	return &BadgerDB{
		connection: db,
		keyTTL:     keyTTL,
		now:        time.Now,
	}, nil
}

// Put upserts an entry
func (db *BadgerDB) Put(entry KVEntry) error {
	val := make([]byte, badgerDeadlineLen+len(entry.Value))
	copy(val[badgerDeadlineLen:], entry.Value)

	var deadline time.Time
	if db.keyTTL > 0 {
		deadline = db.now().Add(db.keyTTL)
		binary.BigEndian.PutUint64(val, uint64(deadline.UnixNano()))
	}

	err := db.connection.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(entry.Key, val)
		if !deadline.IsZero() {
			e.ExpiresAt = ceilUnix(deadline)
		}
		err := txn.SetEntry(e)
		if err != nil {
			return fmt.Errorf("could not set the KV pair: %v", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: transaction failed: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Read returns an entry by key.
func (db *BadgerDB) Read(key []byte) (KVEntry, error) {
	var val []byte
	// See: https://dgraph.io/docs/badger/get-started/#read-only-transactions
	err := db.connection.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)

		if err != nil {
			return err
		}

		// We copy values rather than return them directly because item.Value()
		// is considered undefined behavior outside a transaction.
		// https://godoc.org/github.com/dgraph-io/badger#Item.Value
		val, err = item.ValueCopy(nil)

		if err != nil {
			return fmt.Errorf("can't copy the value from the database: %v", err)
		}
		return nil
	})
	// Expired keys are reported as missing, too.
	if errors.Is(err, badger.ErrKeyNotFound) {
		return KVEntry{}, ErrNotFound
	}
	if err != nil {
		return KVEntry{}, fmt.Errorf("%w: can't retrieve a value for the key provided: %v", ErrBackendUnavailable, err)
	}
	if len(val) < badgerDeadlineLen {
		return KVEntry{}, fmt.Errorf("%w: stored value has no expiry header", record.ErrCorruptRecord)
	}
	if d := binary.BigEndian.Uint64(val); d != 0 && db.now().UnixNano() >= int64(d) {
		return KVEntry{}, ErrNotFound
	}
	return KVEntry{
		Key:   key,
		Value: val[badgerDeadlineLen:],
	}, nil
}

// ceilUnix rounds t up to a whole Unix second, which is what Badger's
// ExpiresAt holds. Badger hides a key once ExpiresAt <= now.Unix().
func ceilUnix(t time.Time) uint64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return uint64(s)
}

// Delete removes a key. Badger writes a tombstone whether or not the key
// exists.
func (db *BadgerDB) Delete(key []byte) error {
	err := db.connection.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: could not delete the key: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Cleanup performs BadgerDB's garbage collection routine with the
// recommended discardRatio.
//
// See: https://pkg.go.dev/github.com/dgraph-io/badger/v3#DB.RunValueLogGC
//
// This is the only time expired records are actually removed from disk.
func (db *BadgerDB) Cleanup() error {
	var discardRatio float64 = .5
	err := db.connection.RunValueLogGC(discardRatio)
	// If the GC determines that it can't rewrite anything, don't worry the
	// caller--just skip it
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// Close tears down the database connection. You should defer this.
func (db *BadgerDB) Close() error {
	if err := db.connection.Close(); err != nil {
		return fmt.Errorf("could not close the database: %v", err)
	}
	return nil
}
