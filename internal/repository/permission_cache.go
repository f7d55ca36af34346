package repository

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/worktime-ledger/internal/model"
)

// PermissionStore is the subset of PermissionRepo the cache fronts.
type PermissionStore interface {
	TagsForUser(ctx context.Context, userID string) ([]model.Permission, error)
	Grant(ctx context.Context, userID string, p model.Permission) error
}

// CachedPermissions memoizes TagsForUser in Redis.  Concurrent misses for
// the same user collapse into one database query.  A nil client turns the
// cache into a passthrough.
type CachedPermissions struct {
	Store  PermissionStore
	Redis  *redis.Client
	TTL    time.Duration
	Prefix string
	Log    *zap.Logger

	sf singleflight.Group
}

// lookupTimeout bounds one shared cache miss.
const lookupTimeout = 5 * time.Second

// NewCachedPermissions wires a cache with a 5 minute TTL.
func NewCachedPermissions(store PermissionStore, rdb *redis.Client, log *zap.Logger) *CachedPermissions {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedPermissions{Store: store, Redis: rdb, TTL: 5 * time.Minute, Prefix: "perm", Log: log}
}

func (c *CachedPermissions) key(userID string) string { return c.Prefix + ":" + userID }

// TagsForUser returns the user's tags, from Redis when possible.
func (c *CachedPermissions) TagsForUser(ctx context.Context, userID string) ([]model.Permission, error) {
	if c.Redis == nil {
		return c.Store.TagsForUser(ctx, userID)
	}
	v, err, _ := c.sf.Do(userID, func() (any, error) {
		// The lookup is shared by every waiter, so it must not end with the
		// first caller's request.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		raw, err := c.Redis.Get(ctx, c.key(userID)).Result()
		if err == nil {
			return decodeTags(raw), nil
		}
		if err != redis.Nil {
			// redis trouble degrades to the database
			c.Log.Warn("permission cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		tags, err := c.Store.TagsForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := c.Redis.Set(ctx, c.key(userID), encodeTags(tags), c.TTL).Err(); err != nil {
			c.Log.Warn("permission cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Permission), nil
}

// Grant forwards to the store and drops the cached entry.
func (c *CachedPermissions) Grant(ctx context.Context, userID string, p model.Permission) error {
	if err := c.Store.Grant(ctx, userID, p); err != nil {
		return err
	}
	c.Invalidate(ctx, userID)
	return nil
}

// Invalidate drops the cached tags of userID.
func (c *CachedPermissions) Invalidate(ctx context.Context, userID string) {
	if c.Redis == nil {
		return
	}
	if err := c.Redis.Del(ctx, c.key(userID)).Err(); err != nil {
		c.Log.Warn("permission cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func encodeTags(tags []model.Permission) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func decodeTags(raw string) []model.Permission {
	out := []model.Permission{}
	if raw == "" {
		return out
	}
	for _, s := range strings.Split(raw, ",") {
		out = append(out, model.Permission(s))
	}
	return out
}
