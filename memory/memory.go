// Package memory persists memory records, one entry per record, under keys
// derived from the write time. FileStore writes one file per record,
// KVStore one NATS JetStream KV entry, and InMemoryStore keeps a map.
//
// A Store appends records and reads them back. Records are immutable once
// written; there is no update or delete. Keys sort lexicographically in
// write order, so listing by key is listing by time.
//
// The record's ID field is generated independently from its storage key.
// Lookups by Get take the storage key, not the ID.
package memory

import "context"

// DefaultListLimit is used by List when limit <= 0.
const DefaultListLimit = 5

// Store is an append-only record store.
type Store interface {
	// Save fills defaults on rec, persists it under a fresh key and returns
	// that key. An existing entry with the same key is overwritten.
	Save(ctx context.Context, rec *Record) (string, error)

	// List returns up to limit entries, most recent first.
	// Any undecodable entry in the selection fails the whole call.
	List(ctx context.Context, limit int) ([]Entry, error)

	// Get returns the entry stored under key.
	// Returns a NOT_FOUND error when no such entry exists.
	Get(ctx context.Context, key string) (*Entry, error)

	// ScanAll returns every entry in ascending key order.
	// Empty storage yields an empty slice and no error.
	ScanAll(ctx context.Context) ([]Entry, error)

	// Close releases resources held by the store.
	Close() error
}
