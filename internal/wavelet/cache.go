package wavelet

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"wavemotion/internal/mathutil"
)

// DefaultMaxCacheBytes is used when CacheConfig.MaxBytes is zero.
const DefaultMaxCacheBytes = 8 << 20

// CacheConfig configures a decompression cache.
type CacheConfig struct {
	// MaxBytes bounds the resident decompressed data.
	MaxBytes int
	// NumThreads is the number of workers that sample through the cache;
	// valid thread indices are [0, NumThreads).
	NumThreads int
	Logger     *slog.Logger
}

// Cache keeps recently used decompressed chunks of any number of motions
// and evicts the least recently used ones when over budget.
//
// Lookups, inserts and evictions are serialized by one mutex; decompression
// runs outside the lock on the calling thread's scratch buffers.
type Cache struct {
	mu         sync.Mutex
	entries    map[uint32]*cacheEntry
	maxBytes   int
	totalBytes int
	useSeq     uint64

	threads []threadScratch
	hits    atomic.Uint64
	misses  atomic.Uint64
	log     *slog.Logger
}

// cacheEntry holds the resident chunks of one motion.
type cacheEntry struct {
	motion *Motion
	chunks []*DecompressedChunk
}

// DecompressedChunk holds the samples of one chunk in playback precision.
// Chunks returned by GetChunkAtTime are pinned and must be released.
type DecompressedChunk struct {
	cache      *Cache
	motion     *Motion
	chunkIndex int
	startTime  float64
	numSamples int
	spacing    float64

	// [track*numSamples + sample]
	rotations []mathutil.Quat16
	positions []mathutil.PackedVec3
	scales    []mathutil.PackedVec3
	morphs    []float32

	size int

	// guarded by cache.mu
	unusedTime float64
	lastUse    uint64
	pins       int
}

func NewCache(cfg CacheConfig) *Cache {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxCacheBytes
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		entries:  make(map[uint32]*cacheEntry),
		maxBytes: cfg.MaxBytes,
		threads:  make([]threadScratch, cfg.NumThreads),
		log:      cfg.Logger,
	}
}

// NumThreads is the number of per-thread scratch slots.
func (c *Cache) NumThreads() int { return len(c.threads) }

// GetChunkAtTime returns the pinned decompressed chunk of m covering t,
// decompressing it on a miss. threadIndex selects the scratch buffers and
// must be owned by the caller. Call Release on the chunk when done.
func (c *Cache) GetChunkAtTime(t float64, m *Motion, threadIndex int) (*DecompressedChunk, error) {
	if threadIndex < 0 || threadIndex >= len(c.threads) {
		panic(fmt.Sprintf("wavelet: thread index %d out of range [0,%d)", threadIndex, len(c.threads)))
	}
	if m.released {
		return nil, fmt.Errorf("wavelet: motion %s has been released", m.name)
	}
	idx := m.FindChunkIndex(t)

	c.mu.Lock()
	if dc := c.lookupLocked(m, idx); dc != nil {
		c.pinLocked(dc)
		c.mu.Unlock()
		c.hits.Add(1)
		return dc, nil
	}
	c.mu.Unlock()

	c.misses.Add(1)
	dc, err := m.decompressChunk(idx, &c.threads[threadIndex])
	if err != nil {
		return nil, err
	}
	dc.cache = c

	c.mu.Lock()
	defer c.mu.Unlock()
	// another thread may have inserted the same chunk meanwhile
	if existing := c.lookupLocked(m, idx); existing != nil {
		c.pinLocked(existing)
		return existing, nil
	}
	e := c.entries[m.id]
	if e == nil {
		e = &cacheEntry{motion: m}
		c.entries[m.id] = e
	}
	e.chunks = append(e.chunks, dc)
	c.totalBytes += dc.size
	c.pinLocked(dc)
	c.shrinkLocked()
	return dc, nil
}

func (c *Cache) lookupLocked(m *Motion, idx int) *DecompressedChunk {
	e := c.entries[m.id]
	if e == nil {
		return nil
	}
	for _, dc := range e.chunks {
		if dc.chunkIndex == idx {
			return dc
		}
	}
	return nil
}

func (c *Cache) pinLocked(dc *DecompressedChunk) {
	c.useSeq++
	dc.lastUse = c.useSeq
	dc.unusedTime = 0
	dc.pins++
}

// Release unpins a chunk returned by GetChunkAtTime.
func (dc *DecompressedChunk) Release() {
	c := dc.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	if dc.pins <= 0 {
		panic("wavelet: release of unpinned chunk")
	}
	dc.pins--
}

// Shrink evicts unpinned chunks, largest unused time first, until the
// resident size fits the budget or only pinned chunks remain.
func (c *Cache) Shrink() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shrinkLocked()
}

func (c *Cache) shrinkLocked() {
	for c.totalBytes > c.maxBytes {
		var (
			victim      *DecompressedChunk
			victimEntry *cacheEntry
			victimPos   int
		)
		for _, e := range c.entries {
			for i, dc := range e.chunks {
				if dc.pins > 0 {
					continue
				}
				if victim == nil || dc.unusedTime > victim.unusedTime ||
					(dc.unusedTime == victim.unusedTime && dc.lastUse < victim.lastUse) {
					victim, victimEntry, victimPos = dc, e, i
				}
			}
		}
		if victim == nil {
			return
		}
		c.removeLocked(victimEntry, victimPos)
		c.log.Debug("wavelet: evicted chunk",
			"motion", victimEntry.motion.name,
			"chunk", victim.chunkIndex,
			"unused", victim.unusedTime,
			"resident", c.totalBytes)
	}
}

func (c *Cache) removeLocked(e *cacheEntry, pos int) {
	dc := e.chunks[pos]
	last := len(e.chunks) - 1
	e.chunks[pos] = e.chunks[last]
	e.chunks[last] = nil
	e.chunks = e.chunks[:last]
	c.totalBytes -= dc.size
	if len(e.chunks) == 0 {
		delete(c.entries, e.motion.id)
	}
}

// Update ages every resident chunk by dt seconds and shrinks the cache.
// Call it once per tick.
func (c *Cache) Update(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		for _, dc := range e.chunks {
			dc.unusedTime += dt
		}
	}
	c.shrinkLocked()
}

// SetMaxCacheSize changes the budget and shrinks to it.
func (c *Cache) SetMaxCacheSize(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxBytes = bytes
	c.shrinkLocked()
}

func (c *Cache) MaxCacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxBytes
}

// TotalBytes is the exact sum of resident chunk sizes.
func (c *Cache) TotalBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

// NumChunks counts resident chunks over all motions.
func (c *Cache) NumChunks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		n += len(e.chunks)
	}
	return n
}

// NumResident counts resident chunks of m.
func (c *Cache) NumResident(m *Motion) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[m.id]; e != nil {
		return len(e.chunks)
	}
	return 0
}

// IsResident reports whether chunk idx of m is cached.
func (c *Cache) IsResident(m *Motion, idx int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(m, idx) != nil
}

func (c *Cache) Hits() uint64   { return c.hits.Load() }
func (c *Cache) Misses() uint64 { return c.misses.Load() }

// HitRate is hits / (hits + misses), or 0 before the first lookup.
func (c *Cache) HitRate() float64 {
	h, m := c.hits.Load(), c.misses.Load()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

func (c *Cache) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// RemoveChunksForMotion drops every resident chunk of m, pinned or not.
func (c *Cache) RemoveChunksForMotion(m *Motion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[m.id]
	if e == nil {
		return
	}
	for _, dc := range e.chunks {
		c.totalBytes -= dc.size
	}
	delete(c.entries, m.id)
}

// Clear drops all resident chunks.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.totalBytes = 0
}
