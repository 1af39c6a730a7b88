package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lock is a held key. Only the holder's token can release it.
type Lock struct {
	client *Client
	key    string
	token  string
}

type Locker struct {
	client    *Client
	keyPrefix string
}

func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "thistle:lock:"
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire sets the key with NX and fails fast when it is held.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	token := uuid.New().String()

	ok, err := l.client.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", lockKey)
	return &Lock{client: l.client, key: lockKey, token: token}, nil
}

// TryAcquire retries Acquire with capped exponential backoff until wait elapses.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration, wait time.Duration) (*Lock, error) {
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond

	for {
		lock, err := l.Acquire(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = min(backoff*2, 500*time.Millisecond)
		}
	}
}

func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.token).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}

// NegotiationLocker holds one lock per negotiation while a turn is applied
type NegotiationLocker struct {
	locker *Locker
	ttl    time.Duration
	wait   time.Duration
}

func NewNegotiationLocker(locker *Locker, ttl, wait time.Duration) *NegotiationLocker {
	return &NegotiationLocker{locker: locker, ttl: ttl, wait: wait}
}

func (n *NegotiationLocker) Lock(ctx context.Context, negotiationID string) (func(context.Context), error) {
	lock, err := n.locker.TryAcquire(ctx, "negotiation:"+negotiationID, n.ttl, n.wait)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil {
			lock.client.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", negotiationID).Warn("Failed to release negotiation lock")
		}
	}, nil
}
