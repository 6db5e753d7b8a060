package storage

import "errors"

// NoOpDB is used when we need to avoid touching the storage layer while still
// preserving our interactions with an abstract database, e.g., to try out a
// configuration. The strategy is to return whatever value will prevent the
// calling context from further interacting with the storage layer.
//
// Reads always miss, so every fingerprint has a neutral reputation. Writes
// always return an error, so the caller knows that nothing has been written.
//
// For database-wide operations, such as cleaning up or closing the database,
// we always return a nil error. This is because, since there is nothing to
// close or clean up, the operation is always successful.
type NoOpDB struct{}

// Put always returns an error so callers don't assume a new key has been
// written.
func (n *NoOpDB) Put(KVEntry) error {
	return errNoOpWrite
}

// Read always reports a miss.
func (n *NoOpDB) Read(key []byte) (KVEntry, error) {
	return KVEntry{}, ErrNotFound
}

// Delete returns an error for the same reason as Put.
func (n *NoOpDB) Delete(key []byte) error {
	return errNoOpWrite
}

// Cleanup always returns nil in order to prevent retries or panics, since we
// want to keep the program humming along without touching the storage layer.
func (n *NoOpDB) Cleanup() error {
	return nil
}

// Close is no-op
func (n *NoOpDB) Close() error {
	return nil
}

var errNoOpWrite = errors.New("unable to write to the no-op database")
