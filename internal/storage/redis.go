package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDB implements DB on a Redis server. It serves deployments where the
// wallet core runs server-side and several processes share one state store;
// single-user installs should prefer BadgerDB.
type RedisDB struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedis connects to a Redis server and verifies the connection.
func NewRedis(addr, password string, db int) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &RedisDB{client: client, ctx: context.Background()}, nil
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not exist.
func (r *RedisDB) Get(key []byte) ([]byte, error) {
	val, err := r.client.Get(r.ctx, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Put stores a key-value pair.
func (r *RedisDB) Put(key, value []byte) error {
	if err := r.client.Set(r.ctx, string(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (r *RedisDB) Delete(key []byte) error {
	if err := r.client.Del(r.ctx, string(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (r *RedisDB) Has(key []byte) (bool, error) {
	n, err := r.client.Exists(r.ctx, string(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// ForEach iterates over all keys with the given prefix using SCAN.
func (r *RedisDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	iter := r.client.Scan(r.ctx, 0, string(prefix)+"*", 0).Iterator()
	for iter.Next(r.ctx) {
		key := iter.Val()
		val, err := r.client.Get(r.ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Deleted between SCAN and GET; skip.
			continue
		}
		if err != nil {
			return fmt.Errorf("redis get %q: %w", key, err)
		}
		if err := fn([]byte(key), val); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Close closes the connection.
func (r *RedisDB) Close() error {
	return r.client.Close()
}
