// Package limiter throttles expensive operations per actor.
package limiter

import (
	"context"
	"time"
)

// Limiter bounds how often an actor may run a named operation. Import and
// snapshot restore move whole subtrees in one transaction, so they are rationed.
type Limiter interface {
	// Take records one attempt and reports whether it is allowed,
	// with a retry-after hint when it is not.
	Take(ctx context.Context, actor, op string) (bool, time.Duration, error)
}
