package lock

import (
	"context"
	"errors"
)

// ErrNotObtained is returned when a lock could not be acquired before the context
// or the retry budget ran out.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes work on a single key. The returned unlock function must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
