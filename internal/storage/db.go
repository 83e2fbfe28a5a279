// Package storage provides key-value persistence abstractions.
package storage

import "errors"

// ErrNotFound is returned by Get/Has when a key does not exist.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage. The wallet treats it as an
// opaque string store; all higher-level formats (ledger snapshots, contact
// books) are JSON documents layered on top.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
