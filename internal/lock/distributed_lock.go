package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("failed to acquire lock")
	ErrLockNotHeld     = errors.New("lock is not held")
)

// releaseScript deletes the key only when it still carries this
// holder's token, so an expired lock reacquired elsewhere is never
// released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DistributedLock is a Redis SETNX lock. The cleanup worker uses it to
// run as a singleton across instances; statement imports use it to
// reject concurrent uploads for the same user.
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire returns false without error when another holder owns the key.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

func (l *DistributedLock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
