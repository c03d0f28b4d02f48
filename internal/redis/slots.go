package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultSlotTTL keeps a claim long enough to cover every replica's poll of
// the same slot.
const DefaultSlotTTL = 26 * time.Hour

// SlotClaimer records which scheduled reminder slots have already fired, so
// a slot is generated once even when several scheduler replicas see it.
type SlotClaimer struct {
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

// NewSlotClaimer creates a claimer on client.
func NewSlotClaimer(client *Client, logger *zap.Logger) *SlotClaimer {
	return &SlotClaimer{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (s *SlotClaimer) buildKey(slot string) string {
	return keyPrefix + "slot:" + slot
}

// Claim acquires slot with SET NX. It returns false when another caller
// already holds it.
func (s *SlotClaimer) Claim(ctx context.Context, slot string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}

	claimedAt := strconv.FormatInt(s.now().Unix(), 10)
	ok, err := s.client.rdb.SetNX(ctx, s.buildKey(slot), claimedAt, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}

	if !ok {
		s.logger.Debug("slot already claimed", zap.String("slot", slot))
	}
	return ok, nil
}

// Release drops a claim so the slot can be retried on the next tick. Used
// when generation failed after the claim was taken.
func (s *SlotClaimer) Release(ctx context.Context, slot string) error {
	if err := s.client.rdb.Del(ctx, s.buildKey(slot)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
