// Package dedup decides whether an incoming provider item is new or a
// duplicate of an already-ingested record.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the stable content digest for a provider item: hex SHA-256
// over "provider:providerRecordID". Same inputs always yield the same
// digest, so repeated ingestions of one logical event collapse.
func Hash(provider, providerRecordID string) string {
	sum := sha256.Sum256([]byte(provider + ":" + providerRecordID))
	return hex.EncodeToString(sum[:])
}

// ExistenceChecker reports whether a record with the given dedup hash has
// already been persisted.
type ExistenceChecker interface {
	ExistsByHash(ctx context.Context, hash string) (bool, error)
}

// Index consults persisted records to classify items as new or existing.
// The check is advisory: concurrent syncs may both see "new" for one item,
// and the storage-level uniqueness constraint on the hash is the final
// arbiter.
type Index struct {
	records ExistenceChecker
}

// NewIndex creates a dedup index backed by the given record store.
func NewIndex(records ExistenceChecker) *Index {
	return &Index{records: records}
}

// Exists reports whether a record with this hash is already stored.
func (i *Index) Exists(ctx context.Context, hash string) (bool, error) {
	return i.records.ExistsByHash(ctx, hash)
}
