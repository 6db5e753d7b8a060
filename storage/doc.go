package storage

// storage contains the KeyValue interface for working with a persistent key/
// value store, implementations for Redis, BadgerDB and SQLite, and the Handle
// that runs fingerprint records through the record codec on their way in and
// out. The KeyValue implementations aren't designed to represent _what_ is
// stored in the database, and deal only in opaque binary data. Handles are
// obtained from a Factory, which knows which engines are available and which
// concurrency modes each of them can serve.
