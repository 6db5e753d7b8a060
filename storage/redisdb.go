package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisOptions tunes the Redis client. Zero values leave the go-redis
// defaults in place.
type RedisOptions struct {
	// Applies to dialing, reads and writes
	Timeout time.Duration
	// Maximum number of pooled connections
	PoolSize int
}

// RedisDB implements KeyValue and represents the application's connection
// to a Redis server. It keeps the parsed descriptor so that Reconnect can
// build a fresh client without re-parsing anything.
//
// The underlying client pools connections and is safe for concurrent use,
// but a RedisDB must not be shared between processes.
type RedisDB struct {
	desc   Descriptor
	opts   RedisOptions
	keyTTL time.Duration // zero means keys never expire
	client atomic.Pointer[redis.Client]
}

// NewRedisDB parses descriptor and sets up a client for it. The client
// connects lazily, so an unreachable server shows up on the first operation
// rather than here. It is up to the caller to close the connection with
// Close().
func NewRedisDB(descriptor string, keyTTL time.Duration, opts RedisOptions) (*RedisDB, error) {
	d, err := ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	db := &RedisDB{
		desc:   d,
		opts:   opts,
		keyTTL: keyTTL,
	}
	db.client.Store(db.newClient())
	return db, nil
}

func (db *RedisDB) newClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     db.desc.Addr(),
		Password: db.desc.Password,
		DB:       db.desc.DB,
		// Callers decide whether to retry.
		MaxRetries:   -1,
		DialTimeout:  db.opts.Timeout,
		ReadTimeout:  db.opts.Timeout,
		WriteTimeout: db.opts.Timeout,
		PoolSize:     db.opts.PoolSize,
	})
}

// Put upserts an entry, applying the TTL if there is one.
func (db *RedisDB) Put(entry KVEntry) error {
	// A zero expiration tells go-redis to issue a plain SET.
	err := db.client.Load().Set(context.Background(), string(entry.Key), entry.Value, db.keyTTL).Err()
	if err != nil {
		return fmt.Errorf("%w: could not set the KV pair: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Read returns an entry by key.
func (db *RedisDB) Read(key []byte) (KVEntry, error) {
	val, err := db.client.Load().Get(context.Background(), string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return KVEntry{}, ErrNotFound
	}
	if err != nil {
		return KVEntry{}, fmt.Errorf("%w: can't retrieve a value for the key provided: %v", ErrBackendUnavailable, err)
	}
	return KVEntry{
		Key:   key,
		Value: val,
	}, nil
}

// Delete removes key. DEL on a missing key simply reports zero removals.
func (db *RedisDB) Delete(key []byte) error {
	err := db.client.Load().Del(context.Background(), string(key)).Err()
	if err != nil {
		return fmt.Errorf("%w: could not delete the key: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Cleanup is a no-op since Redis purges expired keys itself.
func (db *RedisDB) Cleanup() error {
	return nil
}

// Reconnect swaps in a new client built from the stored descriptor and closes
// the old one.
func (db *RedisDB) Reconnect() error {
	old := db.client.Swap(db.newClient())
	log.Debug().
		Str("descriptor", db.desc.String()).
		Msg("reconnected to redis")
	if old == nil {
		return nil
	}
	if err := old.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("could not close the previous redis client: %v", err)
	}
	return nil
}

// Close tears down the client and its connection pool.
func (db *RedisDB) Close() error {
	if err := db.client.Load().Close(); err != nil {
		return fmt.Errorf("could not close the redis client: %v", err)
	}
	return nil
}

// Descriptor returns the parsed connection settings.
func (db *RedisDB) Descriptor() Descriptor {
	return db.desc
}
