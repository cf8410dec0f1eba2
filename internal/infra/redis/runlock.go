package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-gamemaster/internal/domain"
)

// RunLock marks a group as having a game in flight so two bot instances
// sharing a gateway do not both run it. The lock is advisory and expires
// on its own if the holder dies:
//
//	SETNX trivia:lock:{group} EX ttl
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

func (l *RunLock) Acquire(ctx context.Context, groupID string) error {
	ok, err := l.client.SetNX(ctx, l.key(groupID), "1", l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrGroupLocked
	}
	return nil
}

func (l *RunLock) Release(ctx context.Context, groupID string) {
	// best-effort; TTL reclaims the key anyway
	_ = l.client.Del(ctx, l.key(groupID)).Err()
}

func (l *RunLock) key(groupID string) string {
	return "trivia:lock:" + groupID
}
