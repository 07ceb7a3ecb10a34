package ratelimit

import (
	"sync"
	"time"
)

// TryAcquire admits an action when at least cooldown has passed since *last.
// An admitted action stores now into *last; a denied one changes nothing.
func TryAcquire(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if !last.IsZero() && now.Sub(*last) < cooldown {
		return false
	}
	*last = now
	return true
}

// Cooldown is a single-slot gate. Denied attempts are dropped, never queued.
type Cooldown struct {
	mu       sync.Mutex
	last     time.Time
	cooldown time.Duration
}

// NewCooldown returns a gate that admits at most one action per cooldown.
func NewCooldown(cooldown time.Duration) *Cooldown {
	return &Cooldown{cooldown: cooldown}
}

// TryAcquire reports whether an action at now is admitted.
func (c *Cooldown) TryAcquire(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TryAcquire(&c.last, now, c.cooldown)
}
