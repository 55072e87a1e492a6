package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/rs/zerolog"
)

// BlobStore is the object store behind the report cache. Get returns false
// when no object exists under the key; that is the normal state for a report
// that has never been generated, not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Cache stores the latest generated document per report kind, one JSON
// object each, overwritten on every generation.
type Cache struct {
	store BlobStore
	log   zerolog.Logger
}

// NewCache creates a report cache on top of the given object store
func NewCache(store BlobStore, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		log:   log.With().Str("component", "report_cache").Logger(),
	}
}

// Save serializes the document and overwrites the cached object for the
// kind.
func (c *Cache) Save(ctx context.Context, kind Kind, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize report %s: %w", kind, err)
	}
	if err := c.store.Put(ctx, objectKey(kind), data); err != nil {
		return fmt.Errorf("failed to store report %s: %w", kind, err)
	}
	c.log.Debug().Str("kind", string(kind)).Int("bytes", len(data)).Msg("Cached report")
	return nil
}

// Load returns the last cached document for the kind, or ErrReportNotFound
// when none has been generated yet.
func (c *Cache) Load(ctx context.Context, kind Kind) (Document, error) {
	data, found, err := c.store.Get(ctx, objectKey(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report %s: %w", kind, err)
	}
	if !found {
		return nil, ErrReportNotFound
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode cached report %s: %w", kind, err)
	}
	return doc, nil
}

func objectKey(kind Kind) string {
	return path.Join("reports", string(kind)+".json")
}
