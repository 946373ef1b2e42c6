package authflow

import (
	"sync"
	"time"
)

// DefaultCooldown is the wait between OTP resends.
const DefaultCooldown = 60 * time.Second

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Cooldown is a cancellable countdown. Remaining is computed from the
// clock; the optional expiry callback runs on a real timer.
type Cooldown struct {
	mu       sync.Mutex
	duration time.Duration
	clock    Clock
	deadline time.Time
	timer    *time.Timer
	onExpire func()
}

func NewCooldown(d time.Duration, clock Clock) *Cooldown {
	if d <= 0 {
		d = DefaultCooldown
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cooldown{duration: d, clock: clock}
}

// OnExpire registers fn to run once each started countdown elapses.
func (c *Cooldown) OnExpire(fn func()) {
	c.mu.Lock()
	c.onExpire = fn
	c.mu.Unlock()
}

// Start restarts the countdown from the full duration.
func (c *Cooldown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.deadline = c.clock().Add(c.duration)
	if fn := c.onExpire; fn != nil {
		c.timer = time.AfterFunc(c.duration, fn)
	}
}

// Remaining is zero once the countdown has elapsed or was cancelled.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deadline.IsZero() {
		return 0
	}
	left := c.deadline.Sub(c.clock())
	if left < 0 {
		return 0
	}
	return left
}

func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

// Cancel stops the countdown without firing the expiry callback.
func (c *Cooldown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.deadline = time.Time{}
}

func (c *Cooldown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
