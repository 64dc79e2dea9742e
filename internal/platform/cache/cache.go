package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrMiss se devuelve cuando la key no existe (o expiró).
var ErrMiss = errors.New("cache miss")

const prefix = "family-locator:"

type Cacher interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Options struct {
	MaxSize   int
	RedisAddr string
	RedisPass string
}

// New usa Redis si hay dirección configurada; si no, freecache en memoria.
func New(opts Options) Cacher {
	if strings.TrimSpace(opts.RedisAddr) == "" {
		return NewMemoryCache(opts.MaxSize)
	}
	return NewRedisCache(NewRedisClient(opts.RedisAddr, opts.RedisPass))
}

func NewRedisClient(addr, pass string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        pass,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
		ConnMaxIdleTime: 5 * time.Minute,
	})
}

// Key arma keys jerárquicas: Key("geofences", "active", famID).
func Key(parts ...any) string {
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		ss = append(ss, fmt.Sprint(p))
	}
	return strings.Join(ss, ":")
}

type MemoryCache struct {
	cache *freecache.Cache
}

func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = 10 * 1024 * 1024
	}
	return &MemoryCache{cache: freecache.NewCache(size)}
}

func (m *MemoryCache) Get(_ context.Context, key string, value any) error {
	data, err := m.cache.Get([]byte(prefix + key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return ErrMiss
		}
		return err
	}
	return msgpack.Unmarshal(data, value)
}

func (m *MemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return m.cache.Set([]byte(prefix+key), data, ttlSeconds(expiration))
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.cache.Del([]byte(prefix + key))
	}
	return nil
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string, value any) error {
	data, err := r.client.Get(ctx, prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return msgpack.Unmarshal(data, value)
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, prefix+key, data, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, prefix+k)
	}
	return r.client.Del(ctx, full...).Err()
}

// freecache expira en segundos; 0 = sin expiración, así que redondeamos hacia arriba.
func ttlSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
