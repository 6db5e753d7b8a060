package storage

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/ptgott/repstore/record"
)

// We test all BadgerDB read/write utility functions here for a simple case. While
// other projects define test-specific utility functions for, e.g., opening
// a BadgerDB connection (e.g., Jaeger [1]), all DB operations are wrapped
// in a helper for use by the application. We'll use these helpers, rather than
// ones defined just for tests.
//
// [1]: https://github.com/jaegertracing/jaeger/blob/740264bd4c7a7cca27f0eb47d80cd8f8fcbd5906/plugin/storage/badger/spanstore/cache_test.go#L109-L126
func TestSimpleBadgerDBReadWrite(t *testing.T) {
	dir := t.TempDir()
	// Set the TTL to a very long value since we don't expect keys to be
	// cleaned up during the test
	db, err := NewBadgerDB(dir, time.Duration(10)*time.Second, BadgerOptions{})

	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	kv := KVEntry{
		Key:   []byte("Hello"),
		Value: []byte("World"),
	}

	err = db.Put(kv)

	if err != nil {
		t.Fatal(err)
	}

	kv2, err := db.Read(kv.Key)

	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(kv, kv2) {
		t.Fatal("newly created and newly read KV entries do not match")
	}

	if err := db.Delete(kv.Key); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Read(kv.Key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a deleted key to be missing but got %v", err)
	}

	// Deleting twice is fine
	if err := db.Delete(kv.Key); err != nil {
		t.Fatal(err)
	}
}

func TestBadgerDBExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for keys to expire")
	}
	// Badger's own TTLs have a resolution of one second, so use max ages
	// that don't fall on a whole second.
	testCases := []struct {
		description string
		keyTTL      time.Duration
		readAfter   time.Duration
	}{
		{
			description: "sub-second max age read straight away",
			keyTTL:      500 * time.Millisecond,
			readAfter:   0,
		},
		{
			description: "fractional max age read before it elapses",
			keyTTL:      1500 * time.Millisecond,
			readAfter:   1100 * time.Millisecond,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			db, err := NewBadgerDB("", tc.keyTTL, BadgerOptions{})
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()

			const keys = 6
			written := make([]time.Time, keys)
			for i := 0; i < keys; i++ {
				k := []byte(fmt.Sprintf("expiring-%v", i))
				if err := db.Put(KVEntry{Key: k, Value: []byte("v")}); err != nil {
					t.Fatal(err)
				}
				written[i] = time.Now()
				// Spread the writes across fractions of a second.
				time.Sleep(tc.keyTTL / 20)
			}

			for i := 0; i < keys; i++ {
				time.Sleep(time.Until(written[i].Add(tc.readAfter)))
				k := []byte(fmt.Sprintf("expiring-%v", i))
				if _, err := db.Read(k); err != nil {
					t.Fatalf("expected %s to be readable before its max age but got %v", k, err)
				}
			}

			time.Sleep(tc.keyTTL)
			for i := 0; i < keys; i++ {
				k := []byte(fmt.Sprintf("expiring-%v", i))
				if _, err := db.Read(k); !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected %s to have expired but got %v", k, err)
				}
			}
		})
	}
}

func TestBadgerDBExactDeadline(t *testing.T) {
	db, err := NewBadgerDB("", 1500*time.Millisecond, BadgerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// Stay ahead of the real clock so Badger's own purge never fires first.
	now := time.Now().Add(time.Hour).Truncate(time.Second).Add(900 * time.Millisecond)
	db.now = func() time.Time { return now }

	k := []byte("fp")
	if err := db.Put(KVEntry{Key: k, Value: []byte("1")}); err != nil {
		t.Fatal(err)
	}

	now = now.Add(1499 * time.Millisecond)
	if _, err := db.Read(k); err != nil {
		t.Fatalf("expected the key to be readable just before its max age but got %v", err)
	}

	// Writing again restarts the countdown.
	if err := db.Put(KVEntry{Key: k, Value: []byte("2")}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(1499 * time.Millisecond)
	got, err := db.Read(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Value) != "2" {
		t.Fatalf("expected the rewritten value but got %q", got.Value)
	}

	now = now.Add(time.Millisecond)
	if _, err := db.Read(k); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected the key to expire at its max age but got %v", err)
	}
}

func TestCeilUnix(t *testing.T) {
	whole := time.Unix(100, 0)
	if got := ceilUnix(whole); got != 100 {
		t.Errorf("a whole second should be kept but got %v", got)
	}
	if got := ceilUnix(whole.Add(time.Nanosecond)); got != 101 {
		t.Errorf("a fractional second should round up but got %v", got)
	}
}

func TestBadgerDBCorruptHeader(t *testing.T) {
	db, err := NewBadgerDB("", 0, BadgerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	err = db.connection.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("short"), []byte("x"))
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Read([]byte("short")); !errors.Is(err, record.ErrCorruptRecord) {
		t.Fatalf("expected a corrupt record error but got %v", err)
	}
}

func TestBadgerDBNoTTL(t *testing.T) {
	db, err := NewBadgerDB("", 0, BadgerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	k := []byte("forever")
	if err := db.Put(KVEntry{Key: k, Value: []byte("v")}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Read(k); err != nil {
		t.Fatalf("a key written without a TTL should be readable but got %v", err)
	}
	// GC isn't available in memory, which Cleanup doesn't treat as a failure.
	if err := db.Cleanup(); err != nil {
		t.Fatal(err)
	}
}

func TestBadgerDBDirectoryLock(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBadgerDB(dir, 0, BadgerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := NewBadgerDB(dir, 0, BadgerOptions{}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected a second open of %v to fail but got %v", dir, err)
	}
}
