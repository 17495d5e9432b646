package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces calls to the upstream quote feed, which throttles hard
// on burst traffic. It is a single-token bucket: Wait admits one caller per
// interval, and callers sleep exactly until their slot instead of polling.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // earliest admission time for the next caller
}

// NewRateLimiter allows perMinute admissions per minute. The first Wait
// never blocks.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		next:     time.Now(),
	}
}

// Wait blocks until this caller's admission slot arrives or ctx is
// cancelled. Slots are handed out in call order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	slot := rl.next
	if slot.Before(now) {
		slot = now
	}
	rl.next = slot.Add(rl.interval)
	rl.mu.Unlock()

	return sleep(ctx, time.Until(slot))
}
