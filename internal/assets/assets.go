// Package assets resolves model entries across a set of GMA archives.
package assets

import (
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/gmakit/pkg/gma"
)

// ErrNotFound is returned when no archive holds the requested entry.
var ErrNotFound = errors.New("entry not found")

// Found locates an entry.
type Found struct {
	Archive string // path the archive was added under
	Slot    int
	Entry   *gma.Entry
}

type source struct {
	path    string
	archive *gma.Archive
}

// Manager searches archives in reverse order: the last added archive wins,
// so stage archives can override shared ones.
type Manager struct {
	sources []source
	cache   *Cache
	log     *zap.Logger
	mu      sync.RWMutex
}

// NewManager creates an empty manager. A nil logger disables logging.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cache: NewCache(),
		log:   log,
	}
}

// AddArchive decodes the archive at path and adds it.
func (m *Manager) AddArchive(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading archive %s", path)
	}

	a, err := gma.DecodeBytes(data, gma.WithLogger(m.log))
	if err != nil {
		return errors.Wrapf(err, "decoding archive %s", path)
	}
	m.Add(path, a)
	return nil
}

// Add registers an already decoded archive under path.
func (m *Manager) Add(path string, a *gma.Archive) {
	m.mu.Lock()
	m.sources = append(m.sources, source{path: path, archive: a})
	// earlier lookups may now resolve differently; clearing under the write
	// lock keeps an in-flight Lookup from caching a stale result
	m.cache.Clear()
	m.mu.Unlock()

	m.log.Debug("archive added", zap.String("path", path), zap.Int("slots", a.Len()))
}

// Lookup finds the entry named name.
func (m *Manager) Lookup(name string) (*Found, error) {
	if f, ok := m.cache.Get(name); ok {
		return f, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.sources) - 1; i >= 0; i-- {
		src := m.sources[i]
		for slot, s := range src.archive.Slots() {
			if e, ok := s.(*gma.Entry); ok && e.Name == name {
				f := &Found{Archive: src.path, Slot: slot, Entry: e}
				m.cache.Set(name, f)
				return f, nil
			}
		}
	}

	return nil, errors.Wrap(ErrNotFound, name)
}

// Len returns the number of archives added.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sources)
}

// Names returns every entry name across all archives, sorted, without
// duplicates.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, src := range m.sources {
		for _, s := range src.archive.Slots() {
			if e, ok := s.(*gma.Entry); ok && !seen[e.Name] {
				seen[e.Name] = true
				names = append(names, e.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Close drops all archives.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources = nil
	m.cache.Clear()
}

// CacheStats reports lookup cache hits and misses.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}

// Cache is an in-memory lookup cache.
type Cache struct {
	data map[string]*Found
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*Found),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*Found, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return f, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, f *Found) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = f
}

// Clear empties the cache and resets its statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Found)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
