package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/cinerec/core"
)

var _ core.Store = (*RedisStore)(nil)

// RedisStore 是 Redis 实现的 Store，生产环境用于在线读取离线产出的推荐结果。
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore 连接 Redis 并 Ping 一次。
func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: ping redis %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient 复用已有的客户端（单机、集群、哨兵均可）。
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	return val, err
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	return r.client.Set(ctx, key, value, expiration(ttl)).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if s, ok := vals[i].(string); ok {
			result[k] = []byte(s)
		}
	}
	return result, nil
}

func (r *RedisStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	if len(kvs) == 0 {
		return nil
	}
	exp := expiration(ttl)
	pipe := r.client.Pipeline()
	for k, v := range kvs {
		pipe.Set(ctx, k, v, exp)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func expiration(ttl []int) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Duration(ttl[0]) * time.Second
	}
	return 0
}
