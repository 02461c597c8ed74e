package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "spactl:"

// RedisStorage shares durable state between hosts through a redis server
type RedisStorage struct {
	Db     *redis.Client
	prefix string
}

// NewRedisStorage connects to redis and verifies the connection with a ping
func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	const op = "storage.NewRedisStorage"

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%s: redis address is required", op)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStorage{Db: db, prefix: prefix}, nil
}

func (rs *RedisStorage) GetItem(key string) (string, bool, error) {
	const op = "storage.RedisStorage.GetItem"

	if err := validateKey(key); err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	val, err := rs.Db.Get(context.Background(), rs.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

func (rs *RedisStorage) SetItem(key, value string) error {
	const op = "storage.RedisStorage.SetItem"

	if err := validateKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rs.Db.Set(context.Background(), rs.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (rs *RedisStorage) RemoveItem(key string) error {
	const op = "storage.RedisStorage.RemoveItem"

	if err := validateKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rs.Db.Del(context.Background(), rs.prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (rs *RedisStorage) Close() error {
	return rs.Db.Close()
}
