package availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps resolved availability for a short TTL. Each practitioner has a generation
// counter baked into the keys, so dropping every cached date for a practitioner is one INCR.
type RedisCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration, prefix string) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = "avail"
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) generationKey(practitionerID string) string {
	return c.prefix + ":gen:" + practitionerID
}

func (c *RedisCache) dataKey(practitionerID string, gen int64, date model.Date) string {
	return fmt.Sprintf("%s:%s:%d:%s", c.prefix, practitionerID, gen, date)
}

func (c *RedisCache) generation(ctx context.Context, practitionerID string) (int64, error) {
	raw, err := c.rdb.Get(ctx, c.generationKey(practitionerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// setIfCurrentScript writes the entry only while the practitioner's generation is still the
// one the caller read before computing it.
var setIfCurrentScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
  cur = "0"
end
if cur ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// Get returns the cached entry and the generation it was looked up under.
func (c *RedisCache) Get(ctx context.Context, practitionerID string, date model.Date) (model.Availability, int64, bool, error) {
	gen, err := c.generation(ctx, practitionerID)
	if err != nil {
		return model.Availability{}, 0, false, err
	}
	raw, err := c.rdb.Get(ctx, c.dataKey(practitionerID, gen, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Availability{}, gen, false, nil
	}
	if err != nil {
		return model.Availability{}, gen, false, err
	}
	var av model.Availability
	if err := json.Unmarshal(raw, &av); err != nil {
		return model.Availability{}, gen, false, fmt.Errorf("decode cached availability: %w", err)
	}
	return av, gen, true, nil
}

// Set stores av under gen. It is a no-op when the practitioner was invalidated since gen
// was read.
func (c *RedisCache) Set(ctx context.Context, gen int64, av model.Availability) error {
	raw, err := json.Marshal(av)
	if err != nil {
		return err
	}
	keys := []string{c.generationKey(av.PractitionerID), c.dataKey(av.PractitionerID, gen, av.Date)}
	return setIfCurrentScript.Run(ctx, c.rdb, keys, strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds()).Err()
}

// Invalidate is called after a ledger write on date. It bumps the practitioner's generation
// rather than deleting one key, so a resolve that straddles the write can not store its
// result afterwards.
func (c *RedisCache) Invalidate(ctx context.Context, practitionerID string, _ model.Date) error {
	return c.InvalidatePractitioner(ctx, practitionerID)
}

// InvalidatePractitioner drops every cached date for the practitioner.
func (c *RedisCache) InvalidatePractitioner(ctx context.Context, practitionerID string) error {
	return c.rdb.Incr(ctx, c.generationKey(practitionerID)).Err()
}

func ReadyCheck(rdb redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
