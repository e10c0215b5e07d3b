package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// GameClock is a pausable countdown with millisecond resolution. It is
// built on a clockwork.Clock, so it follows a monotonic source in
// production and a fake clock in tests. Pausing freezes Remaining
// exactly: no drift accumulates no matter how long the pause lasts.
// The expiry callback fires exactly once, when the countdown reaches
// zero while running.
type GameClock struct {
	mu          sync.Mutex
	clk         clockwork.Clock
	duration    time.Duration
	accumulated time.Duration
	resumedAt   time.Time
	started     bool
	running     bool
	expired     bool
	armID       uint64
	cancelArm   chan struct{}
	onExpire    func()
}

// New creates a stopped clock with zero duration.
func New(clk clockwork.Clock) *GameClock {
	return &GameClock{clk: clk}
}

// OnExpire registers the expiry callback. Set it before Start; the
// callback runs outside the clock's lock.
func (c *GameClock) OnExpire(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = fn
}

// Start begins a fresh countdown of the given duration.
func (c *GameClock) Start(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
	c.duration = d
	c.accumulated = 0
	c.expired = false
	c.started = true
	c.running = true
	c.resumedAt = c.clk.Now()
	c.armLocked(d)
}

// Pause freezes the countdown. Pausing a stopped or expired clock is a
// no-op.
func (c *GameClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.expired {
		return
	}
	c.accumulated += c.clk.Now().Sub(c.resumedAt)
	if c.accumulated > c.duration {
		c.accumulated = c.duration
	}
	c.running = false
	c.disarmLocked()
}

// Resume continues a paused countdown from where it stopped. Resuming
// a clock that was never started is a no-op.
func (c *GameClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.running || c.expired {
		return
	}
	c.running = true
	c.resumedAt = c.clk.Now()
	c.armLocked(c.duration - c.accumulated)
}

// Reset stops the clock and sets a new duration without starting it.
func (c *GameClock) Reset(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
	c.duration = d
	c.accumulated = 0
	c.started = false
	c.running = false
	c.expired = false
}

// Elapsed returns how much of the countdown has run, capped at the
// duration.
func (c *GameClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

// Remaining returns the time left on the countdown, never negative.
func (c *GameClock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.duration - c.elapsedLocked()
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Running returns true while the countdown is live and unpaused.
func (c *GameClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Expired returns true once the countdown has fired.
func (c *GameClock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *GameClock) elapsedLocked() time.Duration {
	elapsed := c.accumulated
	if c.running {
		elapsed += c.clk.Now().Sub(c.resumedAt)
	}
	if elapsed > c.duration {
		elapsed = c.duration
	}
	return elapsed
}

func (c *GameClock) armLocked(d time.Duration) {
	c.armID++
	id := c.armID
	t := c.clk.NewTimer(d)
	cancel := make(chan struct{})
	c.cancelArm = cancel
	go func() {
		select {
		case <-t.Chan():
			c.fire(id)
		case <-cancel:
			stopAndDrainTimer(t)
		}
	}()
}

func (c *GameClock) disarmLocked() {
	if c.cancelArm != nil {
		close(c.cancelArm)
		c.cancelArm = nil
	}
	// Invalidate any fire that already left the timer channel.
	c.armID++
}

func (c *GameClock) fire(id uint64) {
	c.mu.Lock()
	if id != c.armID || !c.running || c.expired {
		c.mu.Unlock()
		return
	}
	c.expired = true
	c.running = false
	c.accumulated = c.duration
	c.cancelArm = nil
	fn := c.onExpire
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// stopAndDrainTimer stops a timer and drains its channel so a tick that
// already fired cannot be observed later as a stale signal.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
