package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

const (
	redisPingTimeout = 2 * time.Second
	redisScanCount   = 100
)

// RedisBackend implements Backend on top of a go-redis client. Batches run in
// MULTI/EXEC; conditions are checked under WATCH.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection with PING.
func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func mapRedisErr(err error) error {
	if errors.Is(err, redis.Nil) {
		return common.ErrorNotFound
	}
	return err
}

func (r *RedisBackend) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := r.client.HGet(ctx, key, field).Result()
	if err != nil {
		return "", mapRedisErr(err)
	}
	return v, nil
}

func (r *RedisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	v, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, mapRedisErr(err)
	}
	if len(v) == 0 {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", mapRedisErr(err)
	}
	return v, nil
}

func (r *RedisBackend) ZScore(ctx context.Context, key, member string) (float64, error) {
	v, err := r.client.ZScore(ctx, key, member).Result()
	if err != nil {
		return 0, mapRedisErr(err)
	}
	return v, nil
}

func (r *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return uniqueKeys(keys), nil
}

// uniqueKeys drops repeats in place, keeping first occurrences in order.
// SCAN may return a key more than once.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (r *RedisBackend) Exec(ctx context.Context, conds []Condition, cmds ...Command) error {
	if len(conds) == 0 {
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queue(ctx, pipe, cmds)
			return nil
		})
		return err
	}

	watched := make([]string, 0, len(conds))
	for _, c := range conds {
		watched = append(watched, c.Key)
	}

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, c := range conds {
			value, err := tx.HGet(ctx, c.Key, c.Field).Result()
			exists := true
			if errors.Is(err, redis.Nil) {
				exists = false
			} else if err != nil {
				return err
			}
			if !c.holds(value, exists) {
				return common.ErrConflict
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queue(ctx, pipe, cmds)
			return nil
		})
		return err
	}, watched...)

	if errors.Is(err, redis.TxFailedErr) {
		return common.ErrConflict
	}
	return err
}

func queue(ctx context.Context, pipe redis.Pipeliner, cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Op {
		case OpHSet:
			values := make(map[string]interface{}, len(cmd.Fields))
			for k, v := range cmd.Fields {
				values[k] = v
			}
			pipe.HSet(ctx, cmd.Key, values)
		case OpHDel:
			pipe.HDel(ctx, cmd.Key, cmd.Names...)
		case OpDel:
			pipe.Del(ctx, cmd.Names...)
		case OpSet:
			pipe.Set(ctx, cmd.Key, cmd.Value, cmd.TTL)
		case OpZAdd:
			pipe.ZAdd(ctx, cmd.Key, redis.Z{Score: cmd.Score, Member: cmd.Value})
		}
	}
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
