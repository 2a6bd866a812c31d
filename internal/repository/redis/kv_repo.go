// Package redis stores console state in Redis.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/admin-console/internal/repository"
)

// KVRepo namespaces keys with a prefix and writes them in MULTI/EXEC.
type KVRepo struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ repository.KVRepository = (*KVRepo)(nil)

// NewKVRepo wraps an existing client. prefix may be empty.
func NewKVRepo(rdb redis.UniversalClient, prefix string) *KVRepo {
	return &KVRepo{rdb: rdb, prefix: prefix}
}

func (r *KVRepo) key(k string) string { return r.prefix + k }

func (r *KVRepo) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	vals, err := r.rdb.MGet(ctx, full...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

func (r *KVRepo) PutMany(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range repository.SortedKeys(kv) {
			p.Set(ctx, r.key(k), kv[k], 0)
		}
		return nil
	})
	return err
}

func (r *KVRepo) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.rdb.Del(ctx, full...).Err()
}
