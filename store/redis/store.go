package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	jobs "github.com/KennethAtchon/Loctelli-sub005"
	"github.com/KennethAtchon/Loctelli-sub005/job"
)

var _ job.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.keys.prefix = prefix }
}

// WithCodec sets the codec for job bodies. Defaults to JSONCodec.
func WithCodec(c Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithRetention bounds the terminal jobs kept per type.
func WithRetention(r jobs.Retention) Option {
	return func(s *Store) { s.retention = r }
}

// WithPromoteBatch caps how many due delayed jobs one Dequeue promotes.
func WithPromoteBatch(n int) Option {
	return func(s *Store) { s.promoteBatch = n }
}

// Store implements job.Store backed by Redis.
type Store struct {
	client       goredis.Cmdable
	logger       *slog.Logger
	keys         keys
	codec        Codec
	retention    jobs.Retention
	promoteBatch int
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:       client,
		logger:       slog.Default(),
		keys:         keys{prefix: DefaultPrefix},
		codec:        JSONCodec{},
		retention:    jobs.DefaultRetention(),
		promoteBatch: 100,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", jobs.ErrStoreUnavailable, err)
	}
	return nil
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
