package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// UserChannel is the pub/sub channel carrying per-user events
// (force_logout, scan outcomes).
func UserChannel(userID string) string {
	return fmt.Sprintf("events:%s", userID)
}

// SessionKey keys a session record by the hash of its id.
func SessionKey(idHash string) string {
	return fmt.Sprintf("session:%s", idHash)
}

// UserSessionsKey indexes the session id hashes belonging to one user,
// used for revoke-all.
func UserSessionsKey(userID string) string {
	return fmt.Sprintf("user_sessions:%s", userID)
}
