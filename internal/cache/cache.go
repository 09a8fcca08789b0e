// Package cache is the Redis-backed project cache. API middleware caches
// project lookups under id, secret-key, and public-key entries; every
// write that changes a project must invalidate all three so stale
// authorization data never survives a mutation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/logger"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache: miss")

// DefaultTTL bounds staleness for entries that are never explicitly
// invalidated.
const DefaultTTL = 10 * time.Minute

// Key builders for the project cache namespace.
func ProjectIDKey(id uuid.UUID) string        { return "project:id:" + id.String() }
func ProjectSecretKey(secret string) string   { return "project:secret:" + secret }
func ProjectPublicKey(public string) string   { return "project:public:" + public }
func UserProjectsKey(userID uuid.UUID) string { return "user:projects:" + userID.String() }

// Invalidator is the write-side interface services depend on. The full
// Cache satisfies it; tests substitute a recorder.
type Invalidator interface {
	InvalidateProject(ctx context.Context, p *domain.Project) error
	InvalidateUserProjects(ctx context.Context, userID uuid.UUID) error
}

// Cache wraps a Redis client with JSON serialization for project records.
type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// GetProject reads a cached project by any of its keys.
func (c *Cache) GetProject(ctx context.Context, key string) (*domain.Project, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var p domain.Project
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// A corrupt entry behaves like a miss so the caller refills it.
		logger.Warn("dropping corrupt cache entry",
			"key", key,
			"error", err.Error(),
		)
		c.client.Del(ctx, key)
		return nil, ErrMiss
	}
	return &p, nil
}

// SetProject caches p under all three lookup keys.
func (c *Cache) SetProject(ctx context.Context, p *domain.Project) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache marshal project: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, ProjectIDKey(p.ID), raw, DefaultTTL)
	pipe.Set(ctx, ProjectSecretKey(p.Secret), raw, DefaultTTL)
	pipe.Set(ctx, ProjectPublicKey(p.Public), raw, DefaultTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set project %s: %w", p.ID, err)
	}
	return nil
}

// InvalidateProject removes the id, secret, and public entries for p.
func (c *Cache) InvalidateProject(ctx context.Context, p *domain.Project) error {
	err := c.client.Del(ctx,
		ProjectIDKey(p.ID),
		ProjectSecretKey(p.Secret),
		ProjectPublicKey(p.Public),
	).Err()
	if err != nil {
		return fmt.Errorf("cache invalidate project %s: %w", p.ID, err)
	}
	return nil
}

// InvalidateUserProjects removes a user's cached project listing.
func (c *Cache) InvalidateUserProjects(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, UserProjectsKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate user projects %s: %w", userID, err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
