package terminology

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/eldrix/snomed-terminology/snomed"
)

// defaultCacheTTL bounds how long a cached ancestor set or ECL result set
// is trusted before a fresh lookup is forced - long enough to absorb a
// burst of repeat lookups against the same concept, short enough that a
// BuildIndices re-run is visible within one TTL window.
const defaultCacheTTL = 10 * time.Minute

// cache wraps an optional Redis client used to memoise the facade's most
// expensive recursive graph walks (GetAllParentIDs, EvalECL). Grounded on
// the pack's owl-common/redis + wisefido-* read-through cache pattern -
// the teacher itself has no equivalent, having always hit its bolt store
// directly for these lookups.
type cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// CacheOptions configures the optional result cache. A zero value disables
// caching entirely.
type CacheOptions struct {
	// Addr is the redis "host:port" to dial. Empty disables caching.
	Addr string
	// TTL overrides defaultCacheTTL.
	TTL time.Duration
}

func newCache(opts CacheOptions, logger *zap.Logger) *cache {
	if opts.Addr == "" {
		return nil
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &cache{
		client: redis.NewClient(&redis.Options{Addr: opts.Addr}),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *cache) close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// getIDs fetches a cached []int64 for key, reporting whether it was found.
// Any Redis error is treated as a cache miss - the cache is an
// optimisation, never a source of truth.
func (c *cache) getIDs(ctx context.Context, key string) ([]int64, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (c *cache) setIDs(ctx context.Context, key string, ids []int64) {
	if c == nil {
		return
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// GetAllParentIDs returns the ancestor closure of concept, the facade's
// hottest recursive graph walk, transparently cached when a Redis cache is
// configured.
func (svc *Svc) GetAllParentIDs(concept *snomed.Concept) ([]int64, error) {
	key := "parents:" + strconv.FormatInt(concept.Id, 10)
	if ids, ok := svc.cache.getIDs(context.Background(), key); ok {
		return ids, nil
	}
	ids, err := svc.Ancestors(concept.Id)
	if err != nil {
		return nil, err
	}
	svc.cache.setIDs(context.Background(), key, ids)
	return ids, nil
}
