package llm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *mockProvider, *CachedEmbeddingProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	base := &mockProvider{name: "mock"}
	cached := NewCachedEmbeddingProvider(base, client, &EmbeddingCacheConfig{TTL: time.Hour, KeyPrefix: "test:emb:"})
	return mr, base, cached
}

func TestCachedEmbeddingProvider_EmbedSingle(t *testing.T) {
	_, base, cached := setupCache(t)
	ctx := context.Background()

	first, err := cached.EmbedSingle(ctx, "pneumonia")
	require.NoError(t, err)
	second, err := cached.EmbedSingle(ctx, "pneumonia")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, base.embedCalls)
	assert.Equal(t, "mock-cached", cached.Name())
}

func TestCachedEmbeddingProvider_EmbedBatchOnlyMisses(t *testing.T) {
	_, base, cached := setupCache(t)
	ctx := context.Background()

	_, err := cached.EmbedSingle(ctx, "asthma")
	require.NoError(t, err)

	out, err := cached.Embed(ctx, []string{"asthma", "anemia", "sepsis"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{6, 0.5}, out[0])
	assert.Equal(t, []float32{6, 0.5}, out[1])
	assert.Equal(t, []float32{6, 0.5}, out[2])
	assert.Equal(t, []string{"asthma", "anemia", "sepsis"}, base.embedTexts)
}

func TestCachedEmbeddingProvider_CorruptEntryIsReplaced(t *testing.T) {
	mr, base, cached := setupCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(cached.cacheKey("copd"), "not-json"))

	out, err := cached.EmbedSingle(ctx, "copd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0.5}, out)
	assert.Equal(t, 1, base.embedCalls)
}

func TestCachedEmbeddingProvider_RedisDownFallsBack(t *testing.T) {
	mr, base, cached := setupCache(t)
	mr.Close()

	out, err := cached.EmbedSingle(context.Background(), "copd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0.5}, out)
	assert.Equal(t, 1, base.embedCalls)
}

func TestCachedEmbeddingProvider_ClearCache(t *testing.T) {
	_, _, cached := setupCache(t)
	ctx := context.Background()

	_, err := cached.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)

	deleted, err := cached.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}
