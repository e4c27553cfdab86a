package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultHoldTTL = 30 * time.Second

// DonorHold is a Redis-backed exclusive hold on a donor, keyed per donor
// with a TTL so a crashed confirmation cannot wedge the donor forever.
type DonorHold struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDonorHold(client *redis.Client, ttl time.Duration) *DonorHold {
	if ttl <= 0 {
		ttl = defaultHoldTTL
	}
	return &DonorHold{client: client, ttl: ttl}
}

func (h *DonorHold) Acquire(ctx context.Context, donorID string) (bool, error) {
	acquired, err := h.client.SetNX(ctx, holdKey(donorID), "1", h.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set donor hold: %w", err)
	}
	return acquired, nil
}

func (h *DonorHold) Release(ctx context.Context, donorID string) error {
	if err := h.client.Del(ctx, holdKey(donorID)).Err(); err != nil {
		return fmt.Errorf("failed to release donor hold: %w", err)
	}
	return nil
}

func holdKey(donorID string) string {
	return "hemolink:donor-hold:" + donorID
}
