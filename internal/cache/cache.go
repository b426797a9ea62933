// Package cache holds the Redis-backed product cache and attempt limiter.
// Both degrade to no-ops when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"e_store/internal/models"
)

const (
	ProductCacheTTL = 10 * time.Minute

	// generationTTL outlives any request that read a generation.
	generationTTL = time.Hour
)

// ProductCache is a read-through cache for product pages. Every
// invalidation bumps the product's generation; a writer passes the
// generation it read before loading from the database, and the write is
// dropped if the product was invalidated in between.
type ProductCache interface {
	// GetProduct reports a miss with ok=false; errors are misses too.
	GetProduct(ctx context.Context, id int64) (p *models.Product, ok bool)
	Generation(ctx context.Context, id int64) (int64, error)
	SetProduct(ctx context.Context, p *models.Product, gen int64) error
	InvalidateProducts(ctx context.Context, ids ...int64) error
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func generationKey(id int64) string {
	return productKey(id) + ":gen"
}

// setIfGeneration stores ARGV[2] under KEYS[1] for ARGV[3] ms when the
// counter in KEYS[2] (missing means 0) still equals ARGV[1].
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if (cur or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type RedisProductCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisProductCache(client redis.Cmdable, ttl time.Duration) *RedisProductCache {
	if ttl <= 0 {
		ttl = ProductCacheTTL
	}
	return &RedisProductCache{client: client, ttl: ttl}
}

func (c *RedisProductCache) GetProduct(ctx context.Context, id int64) (*models.Product, bool) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisProductCache) Generation(ctx context.Context, id int64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisProductCache) SetProduct(ctx context.Context, p *models.Product, gen int64) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	keys := []string{productKey(p.ID), generationKey(p.ID)}
	return setIfGeneration.Run(ctx, c.client, keys,
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds()).Err()
}

func (c *RedisProductCache) InvalidateProducts(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	pipe := c.client.TxPipeline()
	for i, id := range ids {
		keys[i] = productKey(id)
		pipe.Incr(ctx, generationKey(id))
		pipe.Expire(ctx, generationKey(id), generationTTL)
	}
	pipe.Del(ctx, keys...)
	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

type NopProductCache struct{}

func (NopProductCache) GetProduct(context.Context, int64) (*models.Product, bool) { return nil, false }
func (NopProductCache) Generation(context.Context, int64) (int64, error)          { return 0, nil }
func (NopProductCache) SetProduct(context.Context, *models.Product, int64) error  { return nil }
func (NopProductCache) InvalidateProducts(context.Context, ...int64) error        { return nil }
