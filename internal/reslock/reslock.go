// Package reslock provides the short-lived mutual-exclusion lock that
// serializes booking commits for a single time window.
package reslock

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL bounds how long a crashed holder can block a window.
const DefaultTTL = 300 * time.Second

// Key identifies one bookable window: the (date, start, end) triple.
type Key struct {
	Date  string // "2006-01-02"
	Start string // "15:04"
	End   string // "15:04"
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s-%s", k.Date, k.Start, k.End)
}

// Manager is the reservation lock contract.
//
// Acquire must be a single atomic operation in the backing store; it returns
// true only if no live (unexpired) lock existed for the key, atomically
// replacing any expired lock. Release deletes the lock unconditionally and is
// an idempotent no-op when no lock exists, so the orchestrator can call it on
// every exit path.
type Manager interface {
	Acquire(ctx context.Context, key Key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key Key) error
}
