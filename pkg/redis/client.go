// Package redis wraps go-redis for the one thing serprog uses it for:
// publishing ephemeral session telemetry. It is never read back by the
// Session Orchestrator and holds no part of the programming transaction
// itself.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper around a go-redis client scoped to one
// background context, matching the teacher's pkg/redis client.
type Client struct {
	client *redis.Client
	ctx    context.Context
}

// New connects to addr and verifies reachability with a Ping.
func New(addr string, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Client{client: client, ctx: ctx}, nil
}

// WriteAndPublishString writes a field to a session hash and publishes
// the same update on the session's channel, for a dashboard tailing
// live progress.
func (c *Client) WriteAndPublishString(key, field, value string) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, fmt.Sprintf("%s:%s", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

// WriteAndPublishInt writes an integer field and publishes the update.
func (c *Client) WriteAndPublishInt(key, field string, value int) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, key, field, value)
	pipe.Publish(c.ctx, key, fmt.Sprintf("%s:%d", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}
