package corpus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sir-Shaedy/Diablo/finding"
	"github.com/redis/go-redis/v9"
)

// DefaultSnapshotKey is the Redis key holding the serialized corpus snapshot.
const DefaultSnapshotKey = "diablo:corpus:snapshot"

// RedisOptions configures the Redis connection for a RedisSource.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Key is the key holding the snapshot JSON. Defaults to DefaultSnapshotKey.
	Key string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisSource fetches corpus snapshots from Redis. The whole snapshot lives
// under a single key as a JSON array, so a publish is atomic from the
// reader's point of view: Fetch sees either the old document or the new one,
// never a mix.
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource creates a Redis-backed corpus source with the given options.
func NewRedisSource(opts RedisOptions) (*RedisSource, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = DefaultSnapshotKey
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSource{client: client, key: opts.Key}, nil
}

// Fetch implements Source. A missing key is an empty corpus, not an error.
func (s *RedisSource) Fetch(ctx context.Context) ([]finding.Finding, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch corpus snapshot: %w", err)
	}

	var findings []finding.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("decode corpus snapshot: %w", err)
	}
	return findings, nil
}

// Publish stores a full snapshot, replacing any previous one.
func (s *RedisSource) Publish(ctx context.Context, findings []finding.Finding) error {
	data, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("encode corpus snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("publish corpus snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
