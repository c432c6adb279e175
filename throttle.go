package main

import (
	"context"
	"sync"
	"time"
)

const cooldown = time.Minute

// Throttle allows at most rateLimit requests per cooldown window and at most
// maxConcurrent requests in flight.
type Throttle struct {
	rateLimit int
	ticker    *time.Ticker

	attemptsLock sync.Mutex
	attempts     []time.Time

	concurrentReqs chan struct{}
}

func NewThrottle(rateLimit, maxConcurrent int) *Throttle {
	rateLimit = max(1, rateLimit)
	maxConcurrent = max(1, maxConcurrent)
	t := &Throttle{
		rateLimit:      rateLimit,
		ticker:         time.NewTicker(cooldown / time.Duration(rateLimit)),
		concurrentReqs: make(chan struct{}, maxConcurrent),
	}
	for i := 0; i < maxConcurrent; i++ {
		t.concurrentReqs <- struct{}{}
	}
	return t
}

// GetToken blocks until a request slot is free. The returned func releases it.
func (t *Throttle) GetToken(ctx context.Context) (func(), error) {
	select {
	case <-t.concurrentReqs:
		return func() { t.concurrentReqs <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until the rate limit admits another request.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		if t.admit(time.Now()) {
			return nil
		}
		select {
		case <-t.ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Throttle) admit(now time.Time) bool {
	t.attemptsLock.Lock()
	defer t.attemptsLock.Unlock()

	att := t.attempts
	if len(att) < t.rateLimit || now.Sub(att[0]) > cooldown {
		att = append(att, now)
		if len(att) > t.rateLimit {
			att = att[1:]
		}
		t.attempts = att
		return true
	}
	return false
}

func (t *Throttle) Stop() { t.ticker.Stop() }
