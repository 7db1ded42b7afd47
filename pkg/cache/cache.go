// Package cache is the Redis layer shared by all chat nodes: login
// tokens, user presence, per-node login counts and a read-through
// profile cache in front of the relational store.
//
// Every lookup degrades gracefully. A Redis failure is logged and
// treated as a miss so the relational store still answers, and a
// write-back failure never fails the request that triggered it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/controlplane/models"
	"github.com/quillchat/quill/pkg/metrics"
)

// Redis key layout. All nodes share one keyspace; the allocation
// service writes USERTOKEN and every node maintains the rest.
//
//	USERTOKEN:<uid>   login token for one user
//	USERIP:<uid>      name of the node holding the user's session
//	UBASEINFO:<uid>   cached profile JSON by uid
//	NAME:<name>       cached profile JSON by name
//	LOGIN_COUNT       hash of node name to session count
const loginCountKey = "LOGIN_COUNT"

func tokenKey(uid int64) string   { return fmt.Sprintf("USERTOKEN:%d", uid) }
func nodeKey(uid int64) string    { return fmt.Sprintf("USERIP:%d", uid) }
func profileKey(uid int64) string { return fmt.Sprintf("UBASEINFO:%d", uid) }
func nameKey(name string) string  { return "NAME:" + name }

// UserLoader answers profile lookups that miss in Redis. The relational
// store satisfies it.
type UserLoader interface {
	GetUserByUID(ctx context.Context, uid int64) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
}

// Client wraps a Redis connection with the chat node's keyspace
// operations.
type Client struct {
	rdb     *redis.Client
	users   UserLoader
	metrics metrics.CacheMetrics
}

// New connects to Redis and returns a Client. The connection is
// verified with a ping so a misconfigured address fails at startup
// rather than at first use.
func New(ctx context.Context, config *Config, users UserLoader, m metrics.CacheMetrics) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	logger.Info("connected to redis", "addr", config.Addr, "db", config.DB)
	return &Client{rdb: rdb, users: users, metrics: m}, nil
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// track records command latency and failures. redis.Nil is an answer,
// not a failure.
func (c *Client) track(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveCommand(op, time.Since(start))
	if err != nil && !errors.Is(err, redis.Nil) {
		c.metrics.RecordError(op)
	}
}
