// Package assets handles layered data lookup and caching of parsed assets.
package assets

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/Faultbox/roseimport/pkg/encoding"
	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/vfs"
)

// Manager looks files up across several data trees and caches what it
// reads. It is safe for concurrent use.
type Manager struct {
	sources []*vfs.Source
	mu      sync.RWMutex

	raw       *Cache[[]byte]
	meshes    *Cache[*formats.ZMS]
	skeletons *Cache[*formats.ZMD]
	motions   *Cache[*formats.ZMO]
}

// NewManager creates an empty asset manager.
func NewManager() *Manager {
	return &Manager{
		raw:       NewCache[[]byte](),
		meshes:    NewCache[*formats.ZMS](),
		skeletons: NewCache[*formats.ZMD](),
		motions:   NewCache[*formats.ZMO](),
	}
}

// AddRoot indexes a data directory and adds it on top of the existing ones.
func (m *Manager) AddRoot(dir string) error {
	src, err := vfs.Open(dir)
	if err != nil {
		return fmt.Errorf("adding data root %s: %w", dir, err)
	}
	m.AddSource(src)
	return nil
}

// AddSource adds an indexed tree. Trees are searched in reverse order
// (last added = highest priority).
func (m *Manager) AddSource(src *vfs.Source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()
}

// find returns the highest priority source holding name.
func (m *Manager) find(name string) *vfs.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.sources) - 1; i >= 0; i-- {
		if m.sources[i].Contains(name) {
			return m.sources[i]
		}
	}
	return nil
}

// Contains reports whether any tree holds name.
func (m *Manager) Contains(name string) bool {
	return m.find(name) != nil
}

// Read returns the contents of name from the highest priority tree.
func (m *Manager) Read(name string) ([]byte, error) {
	key := encoding.NormalizePath(name)
	if data, ok := m.raw.Get(key); ok {
		return data, nil
	}

	src := m.find(name)
	if src == nil {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, name)
	}
	data, err := src.Read(name)
	if err != nil {
		return nil, err
	}
	m.raw.Set(key, data)
	return data, nil
}

// Mesh returns the parsed ZMS at name. Meshes shared between models are
// parsed once.
func (m *Manager) Mesh(name string) (*formats.ZMS, error) {
	return parseCached(m, m.meshes, name, formats.ParseZMS)
}

// Skeleton returns the parsed ZMD at name.
func (m *Manager) Skeleton(name string) (*formats.ZMD, error) {
	return parseCached(m, m.skeletons, name, formats.ParseZMD)
}

// Motion returns the parsed ZMO at name.
func (m *Manager) Motion(name string) (*formats.ZMO, error) {
	return parseCached(m, m.motions, name, formats.ParseZMO)
}

func parseCached[T any](m *Manager, c *Cache[T], name string, parse func([]byte) (T, error)) (T, error) {
	key := encoding.NormalizePath(name)
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	var zero T
	data, err := m.Read(name)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", formats.ErrIO, err)
	}
	v, err := parse(data)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	c.Set(key, v)
	return v, nil
}

// List returns every file name across all trees, sorted and deduplicated.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, src := range m.sources {
		for _, name := range src.List() {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Glob returns the sorted file names across all trees matching pattern.
func (m *Manager) Glob(pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, src := range m.sources {
		names, err := src.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// CountByExt returns how many distinct files carry each extension.
func (m *Manager) CountByExt() map[string]int {
	counts := make(map[string]int)
	for _, name := range m.List() {
		counts[strings.TrimPrefix(path.Ext(name), ".")]++
	}
	return counts
}

// Stats returns the raw file cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.raw.Stats()
}

// Close closes all trees and drops the caches.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, src := range m.sources {
		src.Close()
	}
	m.sources = nil
	m.raw.Clear()
	m.meshes.Clear()
	m.skeletons.Clear()
	m.motions.Clear()
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Cache is a simple in-memory cache keyed by normalized path.
type Cache[V any] struct {
	data map[string]V
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{
		data: make(map[string]V),
	}
}

// Get retrieves an item from cache.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set stores an item in cache.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
}

// Len returns the number of cached items.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]V)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache[V]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
