package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"auxdeck/internal/logx"
)

// DefaultTTL is the staleness bound for the cached remote catalog.
const DefaultTTL = 6 * time.Hour

// Fetcher retrieves a complete remote buffer.
type Fetcher interface {
	FetchBuffer(ctx context.Context, url string) ([]byte, error)
}

// cachedCatalog is the persisted shape of a successful fetch. FetchedAt is
// monotonically non-decreasing across successful refreshes.
type cachedCatalog struct {
	FetchedAt time.Time `json:"fetched_at"`
	Catalog   Catalog   `json:"catalog"`
}

// Cache resolves the remote catalog through three tiers: in-memory copy,
// on-disk copy, then a network fetch. A failed fetch degrades to the most
// recent on-disk copy regardless of its age; availability is prioritized over
// freshness, but a fetch that does succeed is never accepted unvalidated.
type Cache struct {
	url      string
	path     string
	ttl      time.Duration
	fetcher  Fetcher
	trustKey string
	logger   logx.Logger
	now      func() time.Time

	mu  sync.Mutex
	mem *cachedCatalog
}

// CacheOptions configures a Cache. Zero values select defaults.
type CacheOptions struct {
	TTL      time.Duration
	TrustKey string
	Logger   logx.Logger
	Now      func() time.Time
}

// NewCache builds a catalog cache backed by the given asset URL and cache file.
func NewCache(url, path string, fetcher Fetcher, opts CacheOptions) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = logx.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		url:      url,
		path:     path,
		ttl:      opts.TTL,
		fetcher:  fetcher,
		trustKey: opts.TrustKey,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Get returns the current catalog, or nil when no catalog is reachable and no
// cached copy exists. Fetch failures never surface to the caller and never
// disturb existing caches.
func (c *Cache) Get(ctx context.Context) *Catalog {
	now := c.now()

	if entry := c.memory(); entry != nil && now.Sub(entry.FetchedAt) < c.ttl {
		cat := entry.Catalog
		return &cat
	}

	disk := c.loadDisk()
	if disk != nil && now.Sub(disk.FetchedAt) < c.ttl {
		c.setMemory(disk)
		cat := disk.Catalog
		return &cat
	}

	if cat, err := c.refresh(ctx); err == nil {
		return cat
	} else {
		c.logger.Printf("catalog fetch failed, using cached copy: %v", err)
	}

	if disk != nil {
		c.setMemory(disk)
		cat := disk.Catalog
		return &cat
	}
	return nil
}

// Refresh forces a network fetch, bypassing the TTL check. On success both
// cache tiers are replaced; on failure they are left untouched.
func (c *Cache) Refresh(ctx context.Context) (*Catalog, error) {
	return c.refresh(ctx)
}

func (c *Cache) refresh(ctx context.Context) (*Catalog, error) {
	data, err := c.fetcher.FetchBuffer(ctx, c.url)
	if err != nil {
		return nil, err
	}

	cat, err := Parse(data, c.trustKey)
	if err != nil {
		return nil, err
	}

	fetchedAt := c.now()
	if entry := c.memory(); entry != nil && fetchedAt.Before(entry.FetchedAt) {
		fetchedAt = entry.FetchedAt
	}

	entry := &cachedCatalog{FetchedAt: fetchedAt, Catalog: *cat}
	c.setMemory(entry)
	if err := c.saveDisk(entry); err != nil {
		c.logger.Printf("persist catalog cache: %v", err)
	}
	return cat, nil
}

func (c *Cache) memory() *cachedCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem
}

func (c *Cache) setMemory(entry *cachedCatalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem = entry
}

func (c *Cache) loadDisk() *cachedCatalog {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var entry cachedCatalog
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	return &entry
}

func (c *Cache) saveDisk(entry *cachedCatalog) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("prepare cache directory: %w", err)
	}

	buf, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog cache: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog cache temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close catalog cache temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace catalog cache: %w", err)
	}
	return nil
}
