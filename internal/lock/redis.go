// Package lock provides the Redis-backed acquisition lease
// store.PostgresStore uses to keep trigger acquisition single-writer
// across scheduler processes. The core engine never imports this package.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// extendScript renews the TTL only while the caller still owns the lease;
// returns 0 when the lease expired or was claimed by another owner.
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// releaseScript frees the lease only if the caller still owns it, so a
// slow process can never release a lease that has already moved on.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Lease is an expiring single-owner claim on a named resource. The store
// acquires it once, extends it on every acquisition round while it keeps
// winning, and releases it at shutdown; if the process dies the TTL frees
// the lease for the next scheduler.
type Lease struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// NewLease builds a lease on name owned by owner (typically the process's
// instance id). ttl bounds how long a dead owner can hold the lease.
func NewLease(client *redis.Client, name, owner string, ttl time.Duration) *Lease {
	return &Lease{
		client: client,
		key:    "jobengine:lease:" + name,
		owner:  owner,
		ttl:    ttl,
	}
}

// TryAcquire claims the lease if it is free. A false return with nil error
// means another owner holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Extend renews the TTL of a held lease. A false return means the lease
// lapsed (TTL expired, or another owner claimed it) and the caller must
// TryAcquire again before relying on it.
func (l *Lease) Extend(ctx context.Context) (bool, error) {
	res, err := extendScript.Run(ctx, l.client, []string{l.key}, l.owner, l.ttl.Milliseconds()).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("extend lease %s: %w", l.key, err)
	}
	n, _ := res.(int64)
	return n == 1, nil
}

// Release frees the lease if this owner still holds it; releasing a lease
// that already lapsed is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
