package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "translations.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetThenGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Hello there.", "", "Goodbye.", "en", "pt-BR", "Olá.", "ollama")

	got, ok := c.Get(ctx, "Hello there.", "", "Goodbye.", "en", "pt-BR")
	require.True(t, ok)
	assert.Equal(t, "Olá.", got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.MemoryHits)
}

func TestCache_NormalizedKeysShareSlot(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Hello   there.", "", "", "en", "pt-BR", "Olá.", "ollama")

	got, ok := c.Get(ctx, "  hello there. ", "", "", "en", "pt-BR")
	require.True(t, ok)
	assert.Equal(t, "Olá.", got)
}

func TestCache_RefusesShortAndIdentical(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Hi", "", "", "en", "pt-BR", "Oi", "ollama")
	_, ok := c.Get(ctx, "Hi", "", "", "en", "pt-BR")
	assert.False(t, ok)

	c.Set(ctx, "Akane-san!", "", "", "en", "pt-BR", "akane-san!", "ollama")
	_, ok = c.Get(ctx, "Akane-san!", "", "", "en", "pt-BR")
	assert.False(t, ok)
}

func TestCache_ContextChangesTheKey(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Shit!", "Watch out!", "Run!", "en", "pt-BR", "Merda!", "ollama")

	// same line, different neighbours: falls back to the v1 key
	got, ok := c.Get(ctx, "Shit!", "He is gone.", "", "en", "pt-BR")
	require.True(t, ok)
	assert.Equal(t, "Merda!", got)
}

func TestCache_PromotesContextFreeHits(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	entry := &Entry{
		Original:   "Let's go.",
		Translated: "Vamos.",
		SourceLang: "en",
		TargetLang: "pt-BR",
		APIUsed:    "ollama",
	}
	v1 := keyV1("Let's go.", "en", "pt-BR")
	require.NoError(t, c.disk.Put(ctx, v1, entry))

	got, ok := c.Get(ctx, "Let's go.", "Hurry.", "Now.", "en", "pt-BR")
	require.True(t, ok)
	assert.Equal(t, "Vamos.", got)

	// the contextual key now exists on disk with the promotion marker
	v2 := keyV2("Let's go.", "Hurry.", "Now.", "en", "pt-BR")
	promoted, found, err := c.disk.Get(ctx, v2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, apiV1Promoted, promoted.APIUsed)
	assert.Equal(t, "Vamos.", promoted.Translated)
}

func TestCache_DiskSurvivesMemoryClear(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Good morning.", "", "", "en", "pt-BR", "Bom dia.", "ollama")
	c.ClearMemory()

	got, ok := c.Get(ctx, "Good morning.", "", "", "en", "pt-BR")
	require.True(t, ok)
	assert.Equal(t, "Bom dia.", got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.DiskHits)
	assert.Equal(t, int64(0), stats.MemoryHits)
}

func TestCache_MemoryHitBumpsDiskRow(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Hello there.", "", "", "en", "pt-BR", "Olá.", "ollama")

	// both lookups resolve from the hot tier
	for i := 0; i < 2; i++ {
		_, ok := c.Get(ctx, "Hello there.", "", "", "en", "pt-BR")
		require.True(t, ok)
	}
	assert.Equal(t, int64(2), c.Stats().MemoryHits)

	// the disk row saw both hits, so age and hit accounting stay honest
	entry, found, err := c.disk.Get(ctx, keyV2("Hello there.", "", "", "en", "pt-BR"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, entry.HitCount)
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, WithCapacity(4))
	ctx := context.Background()

	lines := []string{"line one", "line two", "line three", "line four", "line five", "line six"}
	for _, line := range lines {
		c.Set(ctx, line, "", "", "en", "pt-BR", "tr "+line, "ollama")
	}

	assert.LessOrEqual(t, c.mem.len(), 4)

	// evicted entries still resolve from disk
	got, ok := c.Get(ctx, "line one", "", "", "en", "pt-BR")
	require.True(t, ok)
	assert.Equal(t, "tr line one", got)
}

func TestCache_CleanupBad(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	// a bad row written before identity checks existed
	bad := &Entry{Original: "Same text", Translated: "same text", SourceLang: "en", TargetLang: "pt-BR"}
	require.NoError(t, c.disk.Put(ctx, keyV1("Same text", "en", "pt-BR"), bad))
	c.Set(ctx, "Hello there.", "", "", "en", "pt-BR", "Olá.", "ollama")

	removed, err := c.CleanupBad(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok := c.Get(ctx, "Same text", "", "", "en", "pt-BR")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "Hello there.", "", "", "en", "pt-BR")
	assert.True(t, ok)
}

func TestCache_CleanupOld(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Hello there.", "", "", "en", "pt-BR", "Olá.", "ollama")

	removed, err := c.CleanupOld(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = c.CleanupOld(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestCache_ClearAll(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "Hello there.", "", "", "en", "pt-BR", "Olá.", "ollama")
	require.NoError(t, c.ClearAll(ctx))

	_, ok := c.Get(ctx, "Hello there.", "", "", "en", "pt-BR")
	assert.False(t, ok)

	n, err := c.disk.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestKeyV1V2Differ(t *testing.T) {
	t.Parallel()

	v1 := keyV1("Hello", "en", "pt-BR")
	v2 := keyV2("Hello", "", "", "en", "pt-BR")
	assert.NotEqual(t, v1, v2)
}
