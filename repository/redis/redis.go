// Package redis stores authenticators as JSON in Redis, expiring keys
// together with the authenticators they hold.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"warden/authn"
	"warden/observability/logging"
	"warden/repository"
)

// DefaultKeyPrefix namespaces authenticator keys
const DefaultKeyPrefix = "warden:authenticator"

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, config Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}
	return client, nil
}

// Repository stores authenticators of type A in Redis
type Repository[A authn.StorableAuthenticator] struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *logging.Logger
	now       func() time.Time
}

var _ repository.Repository[authn.StorableAuthenticator] = (*Repository[authn.StorableAuthenticator])(nil)

// New creates a repository; an empty keyPrefix uses DefaultKeyPrefix and
// logger may be nil
func New[A authn.StorableAuthenticator](client redis.UniversalClient, keyPrefix string, logger *logging.Logger) *Repository[A] {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Repository[A]{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.WithModule("repository.redis"),
		now:       time.Now,
	}
}

func (r *Repository[A]) key(id string) string {
	return r.keyPrefix + ":" + id
}

// Find implements repository.Repository
func (r *Repository[A]) Find(ctx context.Context, id string) (A, bool, error) {
	var a A

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return a, false, nil
	}
	if err != nil {
		return a, false, fmt.Errorf("failed to load authenticator %s: %w", id, err)
	}

	if err := json.Unmarshal(data, &a); err != nil {
		return a, false, fmt.Errorf("failed to decode authenticator %s: %w", id, err)
	}
	return a, true, nil
}

// Add implements repository.Repository
func (r *Repository[A]) Add(ctx context.Context, a A) (A, error) {
	data, ttl, skip, err := r.encode(a)
	if err != nil || skip {
		return a, err
	}
	if err := r.client.Set(ctx, r.key(a.ID()), data, ttl).Err(); err != nil {
		return a, fmt.Errorf("failed to store authenticator %s: %w", a.ID(), err)
	}
	return a, nil
}

// Update implements repository.Repository
func (r *Repository[A]) Update(ctx context.Context, a A) (A, error) {
	data, ttl, skip, err := r.encode(a)
	if err != nil {
		return a, err
	}
	if skip {
		return a, r.Remove(ctx, a.ID())
	}

	ok, err := r.client.SetXX(ctx, r.key(a.ID()), data, ttl).Result()
	if err != nil {
		return a, fmt.Errorf("failed to update authenticator %s: %w", a.ID(), err)
	}
	if !ok {
		return a, fmt.Errorf("authenticator %s: %w", a.ID(), repository.ErrNotFound)
	}
	return a, nil
}

// Remove implements repository.Repository
func (r *Repository[A]) Remove(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove authenticator %s: %w", id, err)
	}
	return nil
}

// encode serializes a and computes its key TTL. skip is set for an
// authenticator that has already expired and must not be written.
func (r *Repository[A]) encode(a A) (data []byte, ttl time.Duration, skip bool, err error) {
	ttl, expirable := repository.TTL(a, r.now())
	if expirable && ttl <= 0 {
		r.logger.Debug("Not storing expired authenticator", "id", logging.MaskID(a.ID()))
		return nil, 0, true, nil
	}

	data, err = json.Marshal(a)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to encode authenticator %s: %w", a.ID(), err)
	}
	return data, ttl, false, nil
}
