package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client caches the availability snapshot of an event. The cache is purely
// advisory: booking admission always recomputes capacity inside the
// transaction, and every reservation status write invalidates the key.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func New(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: cfg.TTL}, nil
}

func availabilityKey(eventID int64) string {
	return fmt.Sprintf("event:%d:available_seats", eventID)
}

// GetAvailability returns the cached seat count and whether it was present.
func (c *Client) GetAvailability(ctx context.Context, eventID int64) (int, bool, error) {
	seats, err := c.rdb.Get(ctx, availabilityKey(eventID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache lookup error: %w", err)
	}
	return seats, true, nil
}

func (c *Client) SetAvailability(ctx context.Context, eventID int64, seats int) error {
	return c.rdb.Set(ctx, availabilityKey(eventID), seats, c.ttl).Err()
}

// InvalidateAvailability drops the snapshot after any reservation write.
func (c *Client) InvalidateAvailability(ctx context.Context, eventID int64) error {
	return c.rdb.Del(ctx, availabilityKey(eventID)).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
