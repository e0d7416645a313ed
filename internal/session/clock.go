package session

import (
	"sync"
	"time"
)

// Clock measures elapsed time on the playback timeline. Position zero is the
// moment the session became active. Implementations must be safe for
// concurrent use.
type Clock interface {
	// Now returns the current position on the timeline.
	Now() time.Duration

	// Reset moves position zero to the current instant.
	Reset()
}

// wallClock is the production Clock, backed by the monotonic wall clock.
type wallClock struct {
	mu    sync.Mutex
	start time.Time
}

// NewWallClock returns a Clock whose zero is the moment of creation.
func NewWallClock() Clock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

func (c *wallClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}
