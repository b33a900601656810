// Package rediscache stores Flickr response bodies in Redis
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexbotov/flickrapi/pkg/flickr"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "flickr:rsp:"
	defaultTTL    = 5 * time.Minute
)

// Config configures the Redis connection and entry lifetime
type Config struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	Prefix       string
	TTL          time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Cache implements flickr.Cache on a Redis UniversalClient
type Cache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ flickr.Cache = (*Cache)(nil)

// New connects to Redis and verifies the connection with PING
func New(ctx context.Context, cfg Config) (*Cache, error) {
	var addrs []string
	for _, a := range cfg.Addrs {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// key hashes the request key; signed request strings can be long
func (c *Cache) key(k string) string {
	sum := sha256.Sum256([]byte(k))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get implements flickr.Cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements flickr.Cache
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements flickr.Cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (c *Cache) Close() error {
	return c.client.Close()
}
