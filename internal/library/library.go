package library

import (
	"fmt"
	"sync"

	"wavemotion/internal/motionfile"
	"wavemotion/internal/wavelet"
)

// Library is a concurrency-safe, load-once motion cache. Compressed files
// are preferred; sources are compressed on first use.
type Library struct {
	mu       sync.RWMutex
	items    map[string]*libraryEntry
	index    *Index
	cache    *wavelet.Cache
	settings wavelet.Settings
	opts     SourceOptions
}

type libraryEntry struct {
	motion *wavelet.Motion
	err    error
}

// New creates a library over index. Loaded motions sample through cache.
func New(index *Index, cache *wavelet.Cache, settings wavelet.Settings, opts SourceOptions) *Library {
	return &Library{
		items:    make(map[string]*libraryEntry),
		index:    index,
		cache:    cache,
		settings: settings,
		opts:     opts,
	}
}

// Motion returns the named motion, loading it on first use. Load failures
// are remembered.
func (l *Library) Motion(name string) (*wavelet.Motion, error) {
	e, ok := l.index.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("library: motion %q not found", name)
	}

	// Fast path: read lock
	l.mu.RLock()
	if item, exists := l.items[e.Name]; exists {
		l.mu.RUnlock()
		return item.motion, item.err
	}
	l.mu.RUnlock()

	// Slow path: load from disk
	m, err := l.load(e)

	// Write lock with double-check
	l.mu.Lock()
	if item, exists := l.items[e.Name]; exists {
		l.mu.Unlock()
		if m != nil {
			m.Release()
		}
		return item.motion, item.err
	}
	l.items[e.Name] = &libraryEntry{motion: m, err: err}
	l.mu.Unlock()

	return m, err
}

func (l *Library) load(e Entry) (*wavelet.Motion, error) {
	if e.Compressed != "" {
		return motionfile.Load(e.Compressed, l.cache)
	}
	src, err := LoadSource(e, 0, l.opts)
	if err != nil {
		return nil, err
	}
	return wavelet.Compress(src, l.settings, l.cache)
}

// Loaded returns the number of motions held.
func (l *Library) Loaded() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, item := range l.items {
		if item.motion != nil {
			n++
		}
	}
	return n
}

// Close releases every loaded motion and forgets load failures.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, item := range l.items {
		if item.motion != nil {
			item.motion.Release()
		}
		delete(l.items, name)
	}
}
