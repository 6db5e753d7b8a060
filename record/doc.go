package record

// record defines the reputation state kept for a single fingerprint and the
// positional text format used to store it. It knows nothing about where
// records live; see the storage package for that.
