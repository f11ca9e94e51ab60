package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	key := Key("what drills do you have?", "abc123")
	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	entry := Entry{Answer: "**Answer:**\nVM-500 drill, $199.", SelectedCatalog: "tools.pdf"}
	require.NoError(t, c.Set(ctx, key, entry))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	key := Key("q", "fp")
	require.NoError(t, c.Set(ctx, key, Entry{Answer: "a"}))

	time.Sleep(25 * time.Millisecond)
	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	key := Key("q", "fp")
	require.NoError(t, c.Set(ctx, key, Entry{Answer: "a"}))

	time.Sleep(20 * time.Millisecond)
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Answer)
}

func TestKeyDependsOnQueryAndFingerprint(t *testing.T) {
	base := Key("what drills do you have?", "fp1")

	assert.Equal(t, base, Key("  What Drills Do You Have?  ", "fp1"),
		"whitespace and case are normalized")
	assert.NotEqual(t, base, Key("what saws do you have?", "fp1"))
	assert.NotEqual(t, base, Key("what drills do you have?", "fp2"),
		"library mutation changes the fingerprint and misses the cache")
}
