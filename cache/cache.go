package cache

// AccessResult is the outcome of one access.
type AccessResult struct {
	// Hit indicates whether the tag was already resident.
	Hit bool
	// Evicted is true if a valid line was replaced to make room.
	Evicted bool
	// EvictedTag is the tag that was replaced (if Evicted is true).
	EvictedTag uint64
}

// Statistics holds the running counters of a cache.
type Statistics struct {
	Accesses  uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a set-associative cache with LRU replacement. It only tracks
// tags; block contents are not modeled.
type Cache struct {
	config Config
	sets   []set
	stats  Statistics
}

// New creates a cache with 2^s sets of E invalid lines each.
func New(config Config) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		config: config,
		sets:   make([]set, config.NumSets()),
	}
	for i := range c.sets {
		c.sets[i] = newSet(config.LinesPerSet)
	}

	return c, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return len(c.sets)
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Hits returns the number of hits so far.
func (c *Cache) Hits() uint64 {
	return c.stats.Hits
}

// Misses returns the number of misses so far.
func (c *Cache) Misses() uint64 {
	return c.stats.Misses
}

// Evictions returns the number of evictions so far.
func (c *Cache) Evictions() uint64 {
	return c.stats.Evictions
}

// Access looks tag up in the set at setIndex and updates the set's LRU
// order. On a miss the tag is installed in a free line if there is one,
// otherwise in the least recently used line, which counts as an eviction.
//
// Access panics with an *IndexError if setIndex >= NumSets().
func (c *Cache) Access(setIndex, tag uint64) AccessResult {
	if setIndex >= uint64(len(c.sets)) {
		panic(&IndexError{SetIndex: setIndex, NumSets: len(c.sets)})
	}

	s := &c.sets[setIndex]
	c.stats.Accesses++

	if way := s.lookup(tag); way != none {
		c.stats.Hits++
		s.visit(way)
		return AccessResult{Hit: true}
	}

	c.stats.Misses++

	if way := s.freeWay(); way != none {
		s.fill(way, tag)
		s.visit(way)
		return AccessResult{}
	}

	c.stats.Evictions++
	victim := s.tail
	result := AccessResult{Evicted: true, EvictedTag: s.lines[victim].tag}
	s.lines[victim].tag = tag
	s.visit(victim)

	return result
}

// Load performs one access to the block holding addr.
func (c *Cache) Load(addr uint64) AccessResult {
	f := c.config.Decompose(addr)
	return c.Access(f.SetIndex, f.Tag)
}

// Store performs one access to the block holding addr. Reads and writes are
// not distinguished.
func (c *Cache) Store(addr uint64) AccessResult {
	f := c.config.Decompose(addr)
	return c.Access(f.SetIndex, f.Tag)
}

// Modify is a load followed by a store to the same address. The store
// always hits because the load left the block resident.
func (c *Cache) Modify(addr uint64) (load, store AccessResult) {
	load = c.Load(addr)
	store = c.Store(addr)

	return load, store
}

// Resident returns the valid tags in the set at setIndex, most recently
// used first.
func (c *Cache) Resident(setIndex uint64) []uint64 {
	if setIndex >= uint64(len(c.sets)) {
		panic(&IndexError{SetIndex: setIndex, NumSets: len(c.sets)})
	}

	return c.sets[setIndex].residentTags()
}

// ResetStats clears cache statistics without touching the resident lines.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}
