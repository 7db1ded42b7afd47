package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/internal/telemetry"
	"github.com/quillchat/quill/pkg/chat/protocol"
)

// UserByUID returns a user's profile, serving from Redis when cached
// and falling back to the relational store with a write-back on a miss.
func (c *Client) UserByUID(ctx context.Context, uid int64) (*protocol.UserProfile, error) {
	if profile, ok := c.cachedProfile(ctx, profileKey(uid), "profile"); ok {
		return profile, nil
	}

	user, err := c.users.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	profile := user.Profile()
	c.writeBack(ctx, profileKey(uid), "profile", profile)
	return profile, nil
}

// UserByName returns a user's profile by unique name, with the same
// read-through behavior as UserByUID but keyed on the name.
func (c *Client) UserByName(ctx context.Context, name string) (*protocol.UserProfile, error) {
	if profile, ok := c.cachedProfile(ctx, nameKey(name), "name"); ok {
		return profile, nil
	}

	user, err := c.users.GetUserByName(ctx, name)
	if err != nil {
		return nil, err
	}

	profile := user.Profile()
	c.writeBack(ctx, nameKey(name), "name", profile)
	return profile, nil
}

// cachedProfile reads and decodes a profile key. Redis failures and
// corrupt entries count as misses so the store can still answer.
func (c *Client) cachedProfile(ctx context.Context, key, kind string) (*protocol.UserProfile, bool) {
	ctx, span := telemetry.StartCacheSpan(ctx, "lookup",
		telemetry.CacheKey(key),
		telemetry.CacheKind(kind))
	defer span.End()

	start := time.Now()
	raw, err := c.rdb.Get(ctx, key).Bytes()
	c.track("get_"+kind, start, err)

	if err != nil {
		if !errors.Is(err, redis.Nil) {
			telemetry.RecordError(ctx, err)
			logger.WarnCtx(ctx, "redis profile read failed, falling back to store",
				"key", key, logger.Err(err))
		}
		span.SetAttributes(telemetry.CacheHit(false))
		if c.metrics != nil {
			c.metrics.RecordMiss(kind)
		}
		return nil, false
	}

	var profile protocol.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		logger.WarnCtx(ctx, "discarding corrupt cached profile", "key", key, logger.Err(err))
		span.SetAttributes(telemetry.CacheHit(false))
		if c.metrics != nil {
			c.metrics.RecordMiss(kind)
		}
		return nil, false
	}

	span.SetAttributes(telemetry.CacheHit(true))
	if c.metrics != nil {
		c.metrics.RecordHit(kind)
	}
	return &profile, true
}

// writeBack caches a profile fetched from the store. Failures are
// logged and dropped; the caller already has its answer.
func (c *Client) writeBack(ctx context.Context, key, kind string, profile *protocol.UserProfile) {
	ctx, span := telemetry.StartCacheSpan(ctx, "write",
		telemetry.CacheKey(key),
		telemetry.CacheKind(kind))
	defer span.End()

	raw, err := json.Marshal(profile)
	if err != nil {
		logger.WarnCtx(ctx, "failed to encode profile for cache", "key", key, logger.Err(err))
		return
	}

	start := time.Now()
	err = c.rdb.Set(ctx, key, raw, 0).Err()
	c.track("set_"+kind, start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "profile write-back failed", "key", key, logger.Err(err))
		return
	}

	if c.metrics != nil {
		c.metrics.RecordWriteBack(kind)
	}
}
