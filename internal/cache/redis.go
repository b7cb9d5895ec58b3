// README: Redis-backed cache: JSON values, per-tag generation counters,
// pub/sub invalidation notices.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// GenerationTTL bounds how long an idle tag keeps its counter. It must outlive
// any view TTL: a counter that expires restarts at zero, and a view stored
// under an earlier zero must be gone by then.
const GenerationTTL = 24 * time.Hour

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

var _ Cache = (*Redis)(nil)

// Stamp reads every generation in one MGET. A tag never invalidated is at zero.
func (r *Redis) Stamp(ctx context.Context, tags ...string) (Stamp, error) {
	tags = dedupe(tags)
	if len(tags) == 0 {
		return Stamp{}, nil
	}
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = genKey(tag)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return Stamp{}, fmt.Errorf("cache.Redis.Stamp: %w", err)
	}
	st := Stamp{Tags: tags, Gens: make([]int64, len(tags))}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		gen, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Stamp{}, fmt.Errorf("cache.Redis.Stamp: generation of %s: %w", tags[i], err)
		}
		st.Gens[i] = gen
	}
	return st, nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache.Redis.Get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// a value we cannot decode is as good as a miss
		_ = r.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 || ttl >= GenerationTTL {
		return fmt.Errorf("cache.Redis.Set: ttl %s outside (0, %s)", ttl, GenerationTTL)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache.Redis.Set: encode: %w", err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Set: %w", err)
	}
	return nil
}

// Invalidate bumps every generation and announces the tags on
// InvalidationChannel, all in one MULTI. Views stored under the old
// generations are left to expire.
func (r *Redis) Invalidate(ctx context.Context, tags ...string) error {
	tags = dedupe(tags)
	if len(tags) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, tag := range tags {
		pipe.Incr(ctx, genKey(tag))
		pipe.Expire(ctx, genKey(tag), GenerationTTL)
	}
	pipe.Publish(ctx, InvalidationChannel, strings.Join(tags, ","))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache.Redis.Invalidate: %w", err)
	}
	return nil
}

// Listen calls fn with the tags of every invalidation until ctx is done.
func (r *Redis) Listen(ctx context.Context, fn func(tags []string)) error {
	sub := r.client.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("cache.Redis.Listen: subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(strings.Split(msg.Payload, ","))
		}
	}
}
