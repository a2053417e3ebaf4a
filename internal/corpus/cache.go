package corpus

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unbound-force/classlens/internal/classfile"
)

// Cache memoizes successful decodes by content hash. Records are
// immutable, so a cached Record may appear in several corpora. A Cache
// is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[[sha256.Size]byte, *classfile.Record]
}

// NewCache returns a cache holding at most size records.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[[sha256.Size]byte, *classfile.Record](size)
	if err != nil {
		return nil, fmt.Errorf("creating decode cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Decode returns the cached Record for data, decoding and caching it on
// a miss. hit reports whether the record came from the cache. Failed
// decodes are not cached.
func (c *Cache) Decode(data []byte) (rec *classfile.Record, hit bool, err error) {
	key := sha256.Sum256(data)
	if rec, ok := c.entries.Get(key); ok {
		return rec, true, nil
	}
	rec, err = classfile.Decode(data)
	if err != nil {
		return nil, false, err
	}
	c.entries.Add(key, rec)
	return rec, false, nil
}

// Len returns the number of cached records.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every cached record.
func (c *Cache) Purge() { c.entries.Purge() }
