package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/batch-sub-translator/pkg/log"
)

// minCacheableLen keeps ultra-short lines ("OK", "...") out of the
// cache, they are cheap to translate and pollute the hit rate.
const minCacheableLen = 3

// apiV1Promoted marks entries copied from a context-free key into a
// contextual one.
const apiV1Promoted = "v1_promoted"

// Cache is the two-tier translation cache: a RAM-bounded LRU in front
// of a SQLite table. Lookups try the contextual key first and fall back
// to the context-free one, promoting old entries as they go. Disk
// failures are logged and degrade the cache to memory-only behavior.
type Cache struct {
	mu   sync.Mutex
	mem  *memoryCache
	disk *diskStore

	memoryHits   int64
	memoryMisses int64
	diskHits     int64
	diskMisses   int64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithCapacity overrides the RAM-derived hot tier size.
func WithCapacity(capacity int) Option {
	return func(c *Cache) {
		c.mem = newMemoryCache(capacity)
	}
}

func New(dbPath string, opts ...Option) (*Cache, error) {
	disk, err := newDiskStore(dbPath)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		mem:  newMemoryCache(capacityForRAM()),
		disk: disk,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.disk.Close()
}

// Get looks up a translation for the line within its context window.
// Returns the translated text and whether it was found.
func (c *Cache) Get(ctx context.Context, text, prevLine, nextLine, sourceLang, targetLang string) (string, bool) {
	if len(strings.TrimSpace(text)) < minCacheableLen {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v2 := keyV2(text, prevLine, nextLine, sourceLang, targetLang)
	v1 := keyV1(text, sourceLang, targetLang)

	for _, hash := range []string{v2, v1} {
		if entry, ok := c.mem.get(hash); ok {
			entry.HitCount++
			entry.LastAccessed = time.Now()
			// the disk row tracks hits too, age-based cleanup and hit
			// accounting must not miss hot-tier traffic
			if err := c.disk.Touch(ctx, hash); err != nil {
				log.Warn("cache disk touch failed: %v", err)
			}
			c.memoryHits++
			if hash == v1 {
				c.promote(ctx, v2, entry)
			}
			return entry.Translated, true
		}
		entry, ok, err := c.disk.Get(ctx, hash)
		if err != nil {
			log.Warn("cache disk lookup failed: %v", err)
			continue
		}
		if !ok {
			continue
		}
		c.mem.put(hash, entry)
		if err := c.disk.Touch(ctx, hash); err != nil {
			log.Warn("cache disk touch failed: %v", err)
		}
		c.diskHits++
		if hash == v1 {
			c.promote(ctx, v2, entry)
		}
		return entry.Translated, true
	}

	c.memoryMisses++
	c.diskMisses++
	return "", false
}

// promote copies a context-free hit under the contextual key so the
// next lookup hits on the first probe. Caller holds the lock.
func (c *Cache) promote(ctx context.Context, v2 string, src *Entry) {
	if _, ok := c.mem.get(v2); ok {
		return
	}
	now := time.Now()
	promoted := &Entry{
		Original:     src.Original,
		Translated:   src.Translated,
		SourceLang:   src.SourceLang,
		TargetLang:   src.TargetLang,
		APIUsed:      apiV1Promoted,
		CreatedAt:    now,
		HitCount:     1,
		LastAccessed: now,
	}
	c.mem.put(v2, promoted)
	if err := c.disk.PutIfAbsent(ctx, v2, promoted); err != nil {
		log.Warn("cache promote failed: %v", err)
	}
}

// Set stores a translation under both key versions. Identical
// original/translation pairs are refused, they usually mean the backend
// echoed the input.
func (c *Cache) Set(ctx context.Context, text, prevLine, nextLine, sourceLang, targetLang, translated, apiUsed string) {
	trimmedOriginal := strings.TrimSpace(text)
	trimmedTranslated := strings.TrimSpace(translated)
	if trimmedTranslated == "" || len(trimmedOriginal) < minCacheableLen {
		return
	}
	if strings.EqualFold(trimmedOriginal, trimmedTranslated) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := &Entry{
		Original:     text,
		Translated:   translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		APIUsed:      apiUsed,
		CreatedAt:    now,
		HitCount:     1,
		LastAccessed: now,
	}

	v1 := keyV1(text, sourceLang, targetLang)
	v2 := keyV2(text, prevLine, nextLine, sourceLang, targetLang)

	hashes := []string{v1}
	if v2 != v1 {
		hashes = append(hashes, v2)
	}
	for _, hash := range hashes {
		c.mem.put(hash, entry)
		if err := c.disk.Put(ctx, hash, entry); err != nil {
			log.Warn("cache disk write failed: %v", err)
		}
	}
}

// CleanupOld deletes disk entries created more than the given number of
// days ago. Returns how many rows were removed.
func (c *Cache) CleanupOld(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	return c.disk.DeleteOlderThan(ctx, cutoff)
}

// CleanupBad deletes entries whose translation is identical to the
// original, from both tiers.
func (c *Cache) CleanupBad(ctx context.Context) (int64, error) {
	c.mu.Lock()
	for hash, entry := range c.mem.entries {
		if strings.EqualFold(strings.TrimSpace(entry.Original), strings.TrimSpace(entry.Translated)) {
			c.mem.delete(hash)
		}
	}
	c.mu.Unlock()

	return c.disk.DeleteIdentical(ctx)
}

// ClearMemory drops the hot tier, keeping the disk intact.
func (c *Cache) ClearMemory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem.clear()
}

// ClearAll wipes both tiers.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	c.mem.clear()
	c.mu.Unlock()
	return c.disk.DeleteAll(ctx)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		MemoryEntries:  c.mem.len(),
		MemoryCapacity: c.mem.capacity,
		MemoryHits:     c.memoryHits,
		MemoryMisses:   c.memoryMisses,
		DiskHits:       c.diskHits,
		DiskMisses:     c.diskMisses,
	}
	if stats.MemoryCapacity > 0 {
		stats.MemoryUtilization = float64(stats.MemoryEntries) / float64(stats.MemoryCapacity)
	}
	if total := stats.MemoryHits + stats.MemoryMisses; total > 0 {
		stats.MemoryHitRate = float64(stats.MemoryHits) / float64(total)
	}
	if total := stats.DiskHits + stats.DiskMisses; total > 0 {
		stats.DiskHitRate = float64(stats.DiskHits) / float64(total)
	}
	return stats
}
