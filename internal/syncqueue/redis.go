package syncqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"goTheNineAPI/pkg/logger"
)

// NewRedisClient opens and pings a client.
func NewRedisClient(ctx context.Context, host string, port int, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// RedisQueue keeps items as JSON in a list at key, and per-user pending
// counts in a hash at key+":pending".
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) countsKey() string {
	return q.key + ":pending"
}

// encodeEntry prefixes the JSON with the owner so a corrupt body can still
// be credited back to the right pending count.
func encodeEntry(item Item) ([]byte, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	return append([]byte(item.ClerkID+"\n"), raw...), nil
}

func decodeEntry(entry []byte) (string, Item, error) {
	owner, body, found := bytes.Cut(entry, []byte("\n"))
	if !found {
		// entries written before the owner prefix are bare JSON
		body = entry
	}
	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		if !found {
			owner = nil
		}
		return string(owner), Item{}, fmt.Errorf("%w: %v", ErrCorruptItem, err)
	}
	if !found {
		return item.ClerkID, item, nil
	}
	return string(owner), item, nil
}

func (q *RedisQueue) Push(ctx context.Context, item Item) error {
	entry, err := encodeEntry(item)
	if err != nil {
		return fmt.Errorf("encode sync item: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, q.key, entry)
		p.HIncrBy(ctx, q.countsKey(), item.ClerkID, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push sync item: %w", err)
	}
	return nil
}

// Pop removes the head entry. A corrupt entry is removed too, its owner's
// pending count is decremented, and ErrCorruptItem is returned.
func (q *RedisQueue) Pop(ctx context.Context) (Item, bool, error) {
	entry, err := q.rdb.LPop(ctx, q.key).Bytes()
	if err == redis.Nil {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("pop sync item: %w", err)
	}

	owner, item, decodeErr := decodeEntry(entry)
	if owner != "" {
		if err := q.rdb.HIncrBy(ctx, q.countsKey(), owner, -1).Err(); err != nil {
			logger.Log.Warn("Failed to decrement pending sync count", zap.String("clerk_id", owner), zap.Error(err))
		}
	}
	if decodeErr != nil {
		return Item{}, false, decodeErr
	}
	return item, true, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("sync queue length: %w", err)
	}
	return int(n), nil
}

func (q *RedisQueue) Pending(ctx context.Context, clerkID string) (int, error) {
	n, err := q.rdb.HGet(ctx, q.countsKey(), clerkID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}
