package arm

// Cache is the direct-mapped decoded-instruction cache (spec.md C6),
// grounded on original_source/include/arm_instruction_cache.h. Index and
// tag are both derived from the PC; a slot is valid only when its tag
// matches AND its stored raw word still matches the word at that
// address, which lets self-modifying code invalidate a slot implicitly
// on the next fetch rather than needing an explicit invalidation call.
const (
	CacheSize     = 1024 // must be a power of two
	cacheMask     = CacheSize - 1
	cacheTagShift = 10 // log2(CacheSize)
)

type cacheEntry struct {
	decoded Decoded
	tag     uint32
	valid   bool
}

// Stats mirrors the original's CacheStats for diagnostics (spec.md §4.9
// diag component).
type Stats struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// HitRate returns Hits/(Hits+Misses), or 0 when nothing has been looked
// up yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache holds CacheSize decoded-instruction slots indexed by PC.
type Cache struct {
	entries [CacheSize]cacheEntry
	stats   Stats
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{} }

func cacheIndex(pc uint32) uint32 { return (pc >> 2) & cacheMask }
func cacheTag(pc uint32) uint32   { return pc >> (cacheTagShift + 2) }

// Lookup returns the cached decode for pc if present and still valid for
// the given raw instruction word, and whether it was a hit.
func (c *Cache) Lookup(pc uint32, instruction uint32) (Decoded, bool) {
	e := &c.entries[cacheIndex(pc)]
	if e.valid && e.tag == cacheTag(pc) && e.decoded.Raw == instruction {
		c.stats.Hits++
		return e.decoded, true
	}
	c.stats.Misses++
	return Decoded{}, false
}

// Insert stores a freshly decoded instruction at pc's slot, evicting
// whatever was there before.
func (c *Cache) Insert(pc uint32, decoded Decoded) {
	idx := cacheIndex(pc)
	c.entries[idx] = cacheEntry{decoded: decoded, tag: cacheTag(pc), valid: true}
}

// InvalidateRange drops any cached entries whose index falls within
// [startAddr, endAddr]. This is an optimization hint only — Lookup's raw
// -word comparison already catches self-modified code on its own — but
// calling it after a large write avoids carrying stale slots that will
// never hit again.
func (c *Cache) InvalidateRange(startAddr, endAddr uint32) {
	start := cacheIndex(startAddr)
	end := cacheIndex(endAddr)
	invalidate := func(i uint32) {
		if c.entries[i].valid {
			c.entries[i].valid = false
			c.stats.Invalidations++
		}
	}
	if start <= end {
		for i := start; i <= end; i++ {
			invalidate(i)
		}
		return
	}
	for i := start; i < CacheSize; i++ {
		invalidate(i)
	}
	for i := uint32(0); i <= end; i++ {
		invalidate(i)
	}
}

// Clear invalidates every entry.
func (c *Cache) Clear() {
	for i := range c.entries {
		c.entries[i].valid = false
	}
}

// StatsSnapshot returns the cache's current hit/miss/invalidation
// counters.
func (c *Cache) StatsSnapshot() Stats { return c.stats }

// ResetStats zeroes the hit/miss/invalidation counters without touching
// cached entries.
func (c *Cache) ResetStats() { c.stats = Stats{} }
