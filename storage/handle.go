package storage

import (
	"errors"
	"fmt"

	"github.com/ptgott/repstore/record"
)

var errReconnectUnsupported = errors.New("this engine has no connection to re-establish")

// Handle is what callers use to read and write fingerprint records. It runs
// records through the record codec and leaves everything else, including any
// thread safety, to the KeyValue it wraps. Get the right Handle for a
// concurrency mode from a Factory.
type Handle struct {
	kv     KeyValue
	engine string
	mode   Mode
}

// NewHandle wraps kv without any checks on mode. Most callers want
// Factory.Open instead.
func NewHandle(kv KeyValue, engine string, mode Mode) *Handle {
	return &Handle{
		kv:     kv,
		engine: engine,
		mode:   mode,
	}
}

// Get returns the record stored for key. A key that was never written, was
// deleted, or has expired yields the zero Record and no error.
func (h *Handle) Get(key string) (record.Record, error) {
	e, err := h.kv.Read([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return record.Decode(nil)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("can't read fingerprint %q: %w", key, err)
	}
	r, err := record.Decode(e.Value)
	if err != nil {
		return record.Record{}, fmt.Errorf("can't decode fingerprint %q: %w", key, err)
	}
	return r, nil
}

// Set stores r under key, replacing whatever was there and restarting the
// key's expiry countdown if the engine has a max age.
func (h *Handle) Set(key string, r record.Record) error {
	err := h.kv.Put(KVEntry{
		Key:   []byte(key),
		Value: []byte(record.Encode(r)),
	})
	if err != nil {
		return fmt.Errorf("can't write fingerprint %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (h *Handle) Delete(key string) error {
	if err := h.kv.Delete([]byte(key)); err != nil {
		return fmt.Errorf("can't delete fingerprint %q: %w", key, err)
	}
	return nil
}

// Reconnect replaces the engine's connection using the settings it was
// opened with. It doesn't retry anything that failed before.
func (h *Handle) Reconnect() error {
	r, ok := h.kv.(Reconnector)
	if !ok {
		return fmt.Errorf("%v: %w", h.engine, errReconnectUnsupported)
	}
	return r.Reconnect()
}

// Cleanup asks the engine to purge expired records.
func (h *Handle) Cleanup() error {
	return h.kv.Cleanup()
}

// Close closes the underlying connection. Handles never close themselves.
func (h *Handle) Close() error {
	return h.kv.Close()
}

// Engine is the name of the engine behind h.
func (h *Handle) Engine() string {
	return h.engine
}

// Mode is the concurrency mode h was opened for.
func (h *Handle) Mode() Mode {
	return h.mode
}
