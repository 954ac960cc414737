package inbox

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces message id keys.
const DefaultRedisPrefix = "docchat:mid:"

// RedisDeduplicator keeps ids in Redis with a TTL so several instances
// share one view. Expiry is left to Redis; no sweeping is needed.
type RedisDeduplicator struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ Deduplicator = (*RedisDeduplicator)(nil)

// NewRedisDeduplicator creates a deduplicator over client. A ttl of zero
// or less uses DefaultDedupTTL.
func NewRedisDeduplicator(client redis.Cmdable, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDeduplicator{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
}

func (d *RedisDeduplicator) key(id string) string {
	return d.prefix + id
}

func (d *RedisDeduplicator) IsDuplicate(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyMessageID
	}
	n, err := d.client.Exists(ctx, d.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduplicator) MarkProcessed(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyMessageID
	}
	return d.client.Set(ctx, d.key(id), 1, d.ttl).Err()
}

// TryMark uses SETNX, so the check and the write are one atomic command.
func (d *RedisDeduplicator) TryMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyMessageID
	}
	return d.client.SetNX(ctx, d.key(id), 1, d.ttl).Result()
}
