package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"backend/internal/metrics"
)

// EmbeddingCache 向量缓存: 本地 sync.Map 作 L1, Redis 作 L2
// 缓存失效或 Redis 不可用时直接穿透到上游, 不影响正确性。
type EmbeddingCache struct {
	redis        *redis.Client
	localCache   sync.Map
	prefix       string
	ttl          time.Duration
	maxLocalSize int
	localCount   int64
	mu           sync.Mutex
}

// cachedEmbedding 缓存条目
type cachedEmbedding struct {
	Vector    []float32 `json:"vector"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEmbeddingCache 创建向量缓存
// redisClient 可以为 nil, 此时只保留本地缓存。
func NewEmbeddingCache(redisClient *redis.Client, prefix string, ttl time.Duration) *EmbeddingCache {
	if prefix == "" {
		prefix = "emb:"
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &EmbeddingCache{
		redis:        redisClient,
		prefix:       prefix,
		ttl:          ttl,
		maxLocalSize: 10000,
	}
}

// Get 获取缓存的向量
func (c *EmbeddingCache) Get(ctx context.Context, text, model string) ([]float32, bool) {
	key := c.makeKey(text, model)

	if val, ok := c.localCache.Load(key); ok {
		metrics.EmbeddingCacheHits.WithLabelValues("local").Inc()
		return val.(*cachedEmbedding).Vector, true
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached cachedEmbedding
			if json.Unmarshal(data, &cached) == nil {
				c.setLocal(key, &cached)
				metrics.EmbeddingCacheHits.WithLabelValues("redis").Inc()
				return cached.Vector, true
			}
		}
	}

	return nil, false
}

// Set 写入缓存, 失败只影响命中率
func (c *EmbeddingCache) Set(ctx context.Context, text, model string, vector []float32) error {
	key := c.makeKey(text, model)
	cached := &cachedEmbedding{
		Vector:    vector,
		Model:     model,
		CreatedAt: time.Now(),
	}

	c.setLocal(key, cached)

	if c.redis != nil {
		data, err := json.Marshal(cached)
		if err != nil {
			return err
		}
		return c.redis.Set(ctx, key, data, c.ttl).Err()
	}

	return nil
}

// makeKey 缓存键 = 前缀 + 模型 + 文本哈希
func (c *EmbeddingCache) makeKey(text, model string) string {
	hash := sha256.Sum256([]byte(text))
	return c.prefix + model + ":" + hex.EncodeToString(hash[:16])
}

// setLocal 写本地缓存, 满时简单清理一半
func (c *EmbeddingCache) setLocal(key string, cached *cachedEmbedding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.localCount >= int64(c.maxLocalSize) {
		count := 0
		c.localCache.Range(func(k, _ any) bool {
			if count < c.maxLocalSize/2 {
				c.localCache.Delete(k)
				count++
				return true
			}
			return false
		})
		c.localCount -= int64(count)
	}

	c.localCache.Store(key, cached)
	c.localCount++
}

// CachedEmbeddingProvider 带缓存的 Embedding 提供者包装器
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	cache    *EmbeddingCache
}

// NewCachedEmbeddingProvider 创建带缓存的 Embedding 提供者
func NewCachedEmbeddingProvider(provider EmbeddingProvider, cache *EmbeddingCache) *CachedEmbeddingProvider {
	return &CachedEmbeddingProvider{
		provider: provider,
		cache:    cache,
	}
}

// Embed 单条向量化(带缓存)
func (p *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.provider.GetModel()

	if vec, ok := p.cache.Get(ctx, text, model); ok {
		return vec, nil
	}

	vec, err := p.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	_ = p.cache.Set(ctx, text, model, vec)
	return vec, nil
}

// EmbedBatch 批量向量化(带缓存)
// 只对缓存未命中的文本请求上游, 再按原顺序合并。
func (p *CachedEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := p.provider.GetModel()

	cached := make(map[string][]float32)
	var missing []string
	for _, text := range texts {
		if vec, ok := p.cache.Get(ctx, text, model); ok {
			cached[text] = vec
		} else {
			missing = append(missing, text)
		}
	}

	if len(missing) > 0 {
		vectors, err := p.provider.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i, text := range missing {
			cached[text] = vectors[i]
			_ = p.cache.Set(ctx, text, model, vectors[i])
		}
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = cached[text]
	}
	return result, nil
}

// GetModel 获取模型名称
func (p *CachedEmbeddingProvider) GetModel() string {
	return p.provider.GetModel()
}

// GetDimension 获取向量维度
func (p *CachedEmbeddingProvider) GetDimension() int {
	return p.provider.GetDimension()
}
