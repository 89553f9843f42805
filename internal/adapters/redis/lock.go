package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"ancile/internal/adapters/observability"
	"ancile/internal/domain"
)

const lockValue = "HELD"

// Locker keeps one key per held unit: lock:{group}:{room}:{token}.
// Holds expire on their own if the guest never pays.
type Locker struct{ c *redis.Client }

func NewLocker(c *redis.Client) *Locker { return &Locker{c: c} }

func lockPrefix(groupID, roomType string) string {
	return fmt.Sprintf("lock:%s:%s", groupID, roomType)
}

func (l *Locker) ActiveLocks(ctx context.Context, groupID, roomType string) (int, error) {
	n := 0
	iter := l.c.Scan(ctx, 0, lockPrefix(groupID, roomType)+":*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *Locker) Acquire(ctx context.Context, groupID, roomType string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	key := lockPrefix(groupID, roomType) + ":" + token
	ok, err := l.c.SetNX(ctx, key, lockValue, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		// only on a token collision
		observability.ObserveLock("contended")
		return "", fmt.Errorf("%w: contentious lock failure", domain.ErrInventoryFull)
	}
	observability.ObserveLock("acquired")
	log.Info().Str("key", key).Msg("lock acquired")
	return token, nil
}

func (l *Locker) Release(ctx context.Context, groupID, roomType, token string) error {
	key := lockPrefix(groupID, roomType) + ":" + token
	if err := l.c.Del(ctx, key).Err(); err != nil {
		return err
	}
	observability.ObserveLock("released")
	log.Info().Str("key", key).Msg("lock released")
	return nil
}
