// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package runlock provides a Redis lock that keeps two sync runs from
// reconciling the same calendar at the same time.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a crashed run can hold the lock.
	DefaultTTL = 30 * time.Minute

	// keyPrefix namespaces lock keys in Redis.
	keyPrefix = "calsync:lock:"
)

// ErrHeld is returned by Acquire when another run owns the lock.
var ErrHeld = errors.New("run lock held by another process")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out run locks.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLocker creates a locker backed by Redis. A non-positive ttl uses
// DefaultTTL.
func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{rdb: rdb, ttl: ttl}
}

// Lock is an acquired run lock.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// Acquire takes the lock for name, or returns ErrHeld.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	key := keyPrefix + name
	token := uuid.New().String()

	// SET NX = set only if key does not exist. Returns true if the key was set.
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("run lock SETNX: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrHeld)
	}
	return &Lock{rdb: l.rdb, key: key, token: token}, nil
}

// Release frees the lock if this process still owns it. Releasing a lock
// that expired and was taken by another run is a no-op.
func (k *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, k.rdb, []string{k.key}, k.token).Err(); err != nil {
		return fmt.Errorf("run lock release: %w", err)
	}
	return nil
}

// Token identifies the owner.
func (k *Lock) Token() string { return k.token }
