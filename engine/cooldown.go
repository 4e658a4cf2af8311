package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultCooldownSeconds is the pause between consecutive API calls of a batch.
const DefaultCooldownSeconds = 20

// Pauser waits between two units of a batch.
type Pauser interface {
	Run(ctx context.Context, abort *atomic.Bool)
}

// Cooldown counts down whole ticks and publishes the remaining count on every
// tick. It never fails; an abort or a cancelled context ends it early with 0
// published.
type Cooldown struct {
	seconds int
	tick    time.Duration
	publish func(remaining int)
}

// NewCooldown returns a Cooldown of seconds ticks. publish may be nil.
func NewCooldown(seconds int, tick time.Duration, publish func(remaining int)) *Cooldown {
	if seconds < 0 {
		seconds = 0
	}
	if tick <= 0 {
		tick = time.Second
	}
	if publish == nil {
		publish = func(int) {}
	}
	return &Cooldown{seconds: seconds, tick: tick, publish: publish}
}

// Seconds returns the configured number of ticks.
func (c *Cooldown) Seconds() int {
	return c.seconds
}

// Run publishes seconds, seconds-1, ..., 0, one value per tick.
func (c *Cooldown) Run(ctx context.Context, abort *atomic.Bool) {
	stopped := func() bool {
		return (abort != nil && abort.Load()) || ctx.Err() != nil
	}

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for remaining := c.seconds; remaining > 0; remaining-- {
		if stopped() {
			c.publish(0)
			return
		}
		c.publish(remaining)

		select {
		case <-ctx.Done():
			c.publish(0)
			return
		case <-ticker.C:
		}
	}
	c.publish(0)
}
