package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout  = 5 * time.Second
	redisCallDeadline = 3 * time.Second
)

// RedisStorage - entries, links and the local log of one node. Every node needs its own
// redis instance.
type RedisStorage struct {
	Connection *redis.Client
}

func NewRedisStorage(ctx context.Context, addr string) (*RedisStorage, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisCallDeadline,
		WriteTimeout: redisCallDeadline,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStorage{Connection: conn}, nil
}

func (that *RedisStorage) Close() error {
	return that.Connection.Close()
}
