package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultClaimTTL covers the processor's retry window for a webhook
const DefaultClaimTTL = 72 * time.Hour

// EventClaimer grants at most one handler the right to apply an event
type EventClaimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// RedisEventClaimer claims event ids with SETNX
type RedisEventClaimer struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventClaimer creates a claimer whose claims expire after ttl
func NewRedisEventClaimer(client *redis.Client, ttl time.Duration) *RedisEventClaimer {
	return &RedisEventClaimer{client: client, ttl: ttl}
}

// Claim reports true for the first caller with eventID within the TTL
func (c *RedisEventClaimer) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, claimKey(eventID), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a redelivery can be processed again
func (c *RedisEventClaimer) Release(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, claimKey(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to release event: %w", err)
	}
	return nil
}

func claimKey(eventID string) string {
	return "webhook:event:" + eventID
}
