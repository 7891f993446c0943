package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter is a Redis-backed DeliveryCounter shared across instances.
// The trailing hour is tracked in a sorted set scored by unix time; the
// calendar day is a plain counter keyed by date. Keys expire on their own,
// so the counter needs no sweeper.
type RedisCounter struct {
	client *redis.Client
	prefix string
	loc    *time.Location
}

// RedisCounterOption configures a RedisCounter.
type RedisCounterOption func(*RedisCounter)

// WithRedisCounterPrefix overrides the default key prefix.
func WithRedisCounterPrefix(prefix string) RedisCounterOption {
	return func(c *RedisCounter) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRedisCounterLocation sets the location for calendar-day boundaries.
// Defaults to UTC.
func WithRedisCounterLocation(loc *time.Location) RedisCounterOption {
	return func(c *RedisCounter) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewRedisCounter creates a Redis-backed delivery counter.
func NewRedisCounter(client *redis.Client, opts ...RedisCounterOption) *RedisCounter {
	c := &RedisCounter{
		client: client,
		prefix: "notify:deliveries",
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record registers a delivery for the user at time t. Both windows are
// updated in one round trip.
func (c *RedisCounter) Record(ctx context.Context, userID string, dealerID int64, t time.Time) error {
	hourKey := c.hourKey(userID, dealerID)
	dayKey := c.dayKey(userID, dealerID, t)

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, hourKey, redis.Z{
		Score:  float64(t.UnixMilli()),
		Member: fmt.Sprintf("%d", t.UnixNano()),
	})
	// Two-hour TTL comfortably covers the trailing-hour query window.
	pipe.Expire(ctx, hourKey, 2*time.Hour)
	pipe.Incr(ctx, dayKey)
	pipe.Expire(ctx, dayKey, 48*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCounter) CountDeliveries(ctx context.Context, userID string, dealerID int64, window Window, now time.Time) (int, error) {
	if window == WindowDay {
		n, err := c.client.Get(ctx, c.dayKey(userID, dealerID, now)).Int()
		if err == redis.Nil {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}

	hourKey := c.hourKey(userID, dealerID)
	from := now.Add(-time.Hour)

	// Drop entries that fell out of the trailing hour before counting.
	if err := c.client.ZRemRangeByScore(ctx, hourKey, "0",
		fmt.Sprintf("(%d", from.UnixMilli())).Err(); err != nil {
		return 0, err
	}

	n, err := c.client.ZCount(ctx, hourKey,
		fmt.Sprintf("%d", from.UnixMilli()),
		fmt.Sprintf("%d", now.UnixMilli())).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (c *RedisCounter) hourKey(userID string, dealerID int64) string {
	return fmt.Sprintf("%s:%d:%s:h", c.prefix, dealerID, userID)
}

func (c *RedisCounter) dayKey(userID string, dealerID int64, t time.Time) string {
	return fmt.Sprintf("%s:%d:%s:d:%s", c.prefix, dealerID, userID, t.In(c.loc).Format("20060102"))
}
