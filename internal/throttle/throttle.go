// Package throttle slows repeated unlock failures. Delays are linear
// in the number of consecutive failures, capped, and tracked per
// target in process memory only; a restart forgets them. The real
// defense against offline guessing is the key derivation cost, this
// gate just makes online guessing through the API tedious.
package throttle

import (
	"context"
	"sync"
	"time"
)

const (
	// Step is the delay added per recorded failure.
	Step = time.Second
	// Max caps the delay however many failures accumulate.
	Max = 5 * time.Second
)

// Gate tracks consecutive failures per target and imposes the
// resulting delay before the next attempt may proceed.
type Gate struct {
	mu       sync.Mutex
	failures map[string]int
	step     time.Duration
	max      time.Duration
}

// NewGate returns a gate with the standard step and cap.
func NewGate() *Gate {
	return &Gate{failures: make(map[string]int), step: Step, max: Max}
}

// Delay returns the wait currently imposed on key: failures times the
// step, capped at the maximum. A target with no failures waits
// nothing.
func (g *Gate) Delay(key string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := time.Duration(g.failures[key]) * g.step
	if d > g.max {
		return g.max
	}
	return d
}

// Wait blocks for the imposed delay, or returns early with ctx.Err()
// if the context ends first.
func (g *Gate) Wait(ctx context.Context, key string) error {
	d := g.Delay(key)
	if d == 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail records one more failure for key.
func (g *Gate) Fail(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[key]++
}

// Reset clears the failure count for key. Called when an unlock
// succeeds, ending the flow the failures belonged to.
func (g *Gate) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, key)
}
