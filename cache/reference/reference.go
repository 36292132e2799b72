// Package reference provides a second model of the LRU cache built on the
// Akita cache directory. It exists to cross-check the cache package.
package reference

import (
	"math/bits"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/csim/cache"
)

// Cache replays accesses against an Akita directory with an LRU victim
// finder. Tags in the directory are block-aligned addresses.
type Cache struct {
	config    cache.Config
	directory *akitacache.DirectoryImpl
	stats     cache.Statistics
}

// New creates a reference cache with the same geometry checks as cache.New.
// The directory takes the block size as an int, so blocks of 2^63 bytes or
// more are rejected as well.
func New(config cache.Config) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.BlockBits >= bits.UintSize-1 {
		return nil, &cache.ConfigError{Field: "block_bits",
			Value: config.BlockBits, Reason: "block size overflows int"}
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.LinesPerSet,
			int(config.BlockSize()),
			akitacache.NewLRUVictimFinder(),
		),
	}, nil
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Statistics {
	return c.stats
}

// Load performs one access to the block holding addr.
func (c *Cache) Load(addr uint64) cache.AccessResult {
	return c.access(addr)
}

// Store performs one access to the block holding addr.
func (c *Cache) Store(addr uint64) cache.AccessResult {
	return c.access(addr)
}

// Modify performs a load and then a store to addr.
func (c *Cache) Modify(addr uint64) (load, store cache.AccessResult) {
	return c.access(addr), c.access(addr)
}

func (c *Cache) access(addr uint64) cache.AccessResult {
	c.stats.Accesses++
	blockAddr := c.config.BlockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return cache.AccessResult{Hit: true}
	}

	c.stats.Misses++
	result := cache.AccessResult{}

	victim := c.directory.FindVictim(blockAddr)
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedTag = c.config.Decompose(victim.Tag).Tag
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	c.directory.Visit(victim)

	return result
}
