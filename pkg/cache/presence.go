package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// clearNodeScript deletes a presence key only while it still names the
// caller's node, so a node draining an old session cannot clobber the
// presence a peer just wrote for the same user.
var clearNodeScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// UserToken returns the login token for uid, or "" when none is set.
func (c *Client) UserToken(ctx context.Context, uid int64) (string, error) {
	start := time.Now()
	token, err := c.rdb.Get(ctx, tokenKey(uid)).Result()
	c.track("get_user_token", start, err)

	if errors.Is(err, redis.Nil) {
		if c.metrics != nil {
			c.metrics.RecordMiss("token")
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token for uid %d: %w", uid, err)
	}
	if c.metrics != nil {
		c.metrics.RecordHit("token")
	}
	return token, nil
}

// SetUserToken writes the login token for uid. In production the
// allocation service owns this key; the admin API uses it to seed
// test users.
func (c *Client) SetUserToken(ctx context.Context, uid int64, token string) error {
	start := time.Now()
	err := c.rdb.Set(ctx, tokenKey(uid), token, 0).Err()
	c.track("set_user_token", start, err)
	if err != nil {
		return fmt.Errorf("failed to set token for uid %d: %w", uid, err)
	}
	return nil
}

// UserNode returns the name of the node holding uid's session, or ""
// when the user is offline.
func (c *Client) UserNode(ctx context.Context, uid int64) (string, error) {
	start := time.Now()
	node, err := c.rdb.Get(ctx, nodeKey(uid)).Result()
	c.track("get_user_node", start, err)

	if errors.Is(err, redis.Nil) {
		if c.metrics != nil {
			c.metrics.RecordMiss("presence")
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get node for uid %d: %w", uid, err)
	}
	if c.metrics != nil {
		c.metrics.RecordHit("presence")
	}
	return node, nil
}

// SetUserNode records that uid's session lives on node.
func (c *Client) SetUserNode(ctx context.Context, uid int64, node string) error {
	start := time.Now()
	err := c.rdb.Set(ctx, nodeKey(uid), node, 0).Err()
	c.track("set_user_node", start, err)
	if err != nil {
		return fmt.Errorf("failed to set node for uid %d: %w", uid, err)
	}
	return nil
}

// ClearUserNode removes uid's presence, but only while it still points
// at node. Returns true when the key was deleted.
func (c *Client) ClearUserNode(ctx context.Context, uid int64, node string) (bool, error) {
	start := time.Now()
	deleted, err := clearNodeScript.Run(ctx, c.rdb, []string{nodeKey(uid)}, node).Int()
	c.track("clear_user_node", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to clear node for uid %d: %w", uid, err)
	}
	return deleted == 1, nil
}

// IncrLoginCount adjusts the session count for node by delta and
// returns the new value.
func (c *Client) IncrLoginCount(ctx context.Context, node string, delta int64) (int64, error) {
	start := time.Now()
	count, err := c.rdb.HIncrBy(ctx, loginCountKey, node, delta).Result()
	c.track("incr_login_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust login count for %s: %w", node, err)
	}
	return count, nil
}

// SetLoginCount overwrites the session count for node. Nodes reset
// their own entry to zero at startup.
func (c *Client) SetLoginCount(ctx context.Context, node string, count int64) error {
	start := time.Now()
	err := c.rdb.HSet(ctx, loginCountKey, node, count).Err()
	c.track("set_login_count", start, err)
	if err != nil {
		return fmt.Errorf("failed to set login count for %s: %w", node, err)
	}
	return nil
}

// DeleteLoginCount removes node's entry from the login count hash.
// Nodes do this on shutdown so the allocation service stops routing
// users to them.
func (c *Client) DeleteLoginCount(ctx context.Context, node string) error {
	start := time.Now()
	err := c.rdb.HDel(ctx, loginCountKey, node).Err()
	c.track("delete_login_count", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete login count for %s: %w", node, err)
	}
	return nil
}

// LoginCounts returns the session count of every registered node.
func (c *Client) LoginCounts(ctx context.Context) (map[string]int64, error) {
	start := time.Now()
	raw, err := c.rdb.HGetAll(ctx, loginCountKey).Result()
	c.track("login_counts", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read login counts: %w", err)
	}

	counts := make(map[string]int64, len(raw))
	for node, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed login count %q for %s: %w", value, node, err)
		}
		counts[node] = n
	}
	return counts, nil
}
