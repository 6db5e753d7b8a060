package storage

import "errors"

var (
	// ErrBackendUnavailable means the engine's driver isn't available, the
	// requested concurrency mode isn't supported, or the backend couldn't be
	// reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrInvalidDescriptor means a connection descriptor couldn't be parsed.
	ErrInvalidDescriptor = errors.New("invalid connection descriptor")
	// ErrNotFound is returned by KeyValue.Read for a key that isn't stored
	// (or has expired). Handles turn it into an empty record.
	ErrNotFound = errors.New("key not found")
)

// KeyValue exposes a common interface for performing CRUD operations on an
// underlying storage layer.
//
// Implentations need to include connection logic in code to initialize
// a Store, and must apply their configured TTL on every Put.
type KeyValue interface {
	// Replace the value of a key or create a new one if it doesn't exist.
	// Resets any expiry countdown.
	Put(KVEntry) error
	// Return an entry given its key, or ErrNotFound
	Read(key []byte) (KVEntry, error)
	// Remove a key. Removing a missing key is not an error.
	Delete(key []byte) error
	// Cleanup performs routine deletion of old records, for backends that
	// don't purge expired keys on their own.
	Cleanup() error
	// Drain/tear down the connection, or something analogous for
	// an embedded database
	Close() error
}

// Reconnector is implemented by KeyValues that talk to a server and can
// replace their connection without being reconfigured.
type Reconnector interface {
	Reconnect() error
}

// KVEntry is what we'll write to and read from the KV store
type KVEntry struct {
	Key   []byte
	Value []byte
}
