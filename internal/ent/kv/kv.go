// Package kv is the key-value store that carries per-feature taxonomy
// labels from the preparation stage to the comparative-test stage.
package kv

import "github.com/dgraph-io/badger/v2"

// LabelRecord is the value stored per feature ID: the stable taxon ID
// and the simplified taxonomy label assigned during preparation.
type LabelRecord struct {
	// TaxonID is the deterministic UUID derived from the feature ID.
	TaxonID string

	// Label is the simplified taxonomy label.
	Label string

	// Rank is the rank the label was extracted from.
	Rank string
}

// KeyVal is a key-value store.
type KeyVal interface {
	// Open opens a key-value store.
	Open() error

	// Close closes a key-value store.
	Close() error

	// GetTransaction returns a write transaction.
	GetTransaction() (*badger.Txn, error)

	// GetValue returns the value stored for a key, nil when the key is
	// absent.
	GetValue(key []byte) ([]byte, error)
}
