// Package budget tracks the shared resource limits of one research run.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/kestrelab/inquest/internal/research"
)

// Usage is a consistent snapshot of the tracker counters.
type Usage struct {
	Elapsed        time.Duration
	CostSpent      float64
	GoalsAttempted int
}

// Tracker holds the mutable budget counters for a run. All mutation goes
// through a single mutex so concurrent sibling branches observe a
// serialized view; the lock is never held across a network call.
type Tracker struct {
	mu       sync.Mutex
	started  time.Time
	maxTime  time.Duration
	maxCost  float64
	maxGoals int

	costSpent      float64
	goalsAttempted int
}

// NewTracker creates a tracker for the given constraints. The run clock
// starts immediately.
func NewTracker(c research.Constraints) *Tracker {
	return &Tracker{
		started:  time.Now(),
		maxTime:  c.MaxTime,
		maxCost:  c.MaxCost,
		maxGoals: c.MaxGoals,
	}
}

// TryCharge atomically checks every limit and, when all pass, commits the
// charge. A refusal commits nothing. Zero-cost charges are permitted even
// when max_cost is zero: only a charge that would push cost_spent past
// max_cost is refused, so a run with max_cost=0 may still attempt goals
// whose estimated cost is zero.
func (t *Tracker) TryCharge(cost float64, goals int) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxTime > 0 {
		if elapsed := time.Since(t.started); elapsed >= t.maxTime {
			return false, fmt.Sprintf("time budget exhausted (%s elapsed, max %s)", elapsed.Round(time.Millisecond), t.maxTime)
		}
	}
	if t.maxCost >= 0 && t.costSpent+cost > t.maxCost {
		return false, fmt.Sprintf("cost budget exhausted (%.4f spent, %.4f requested, max %.4f)", t.costSpent, cost, t.maxCost)
	}
	if t.maxGoals > 0 && t.goalsAttempted+goals > t.maxGoals {
		return false, fmt.Sprintf("goal budget exhausted (%d attempted, max %d)", t.goalsAttempted, t.maxGoals)
	}

	t.costSpent += cost
	t.goalsAttempted += goals
	return true, ""
}

// Spend records cost actually incurred by a committed oracle or provider
// call. Spend never refuses: the money is already gone; TryCharge is the
// gate that stops further goals once the ceiling is crossed.
func (t *Tracker) Spend(cost float64) {
	if cost <= 0 {
		return
	}
	t.mu.Lock()
	t.costSpent += cost
	t.mu.Unlock()
}

// Exhausted reports whether any budget limit has been reached. Used to
// short-circuit remaining waves without attempting their goals.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.maxTime > 0 && time.Since(t.started) >= t.maxTime {
		return true
	}
	if t.maxCost > 0 && t.costSpent >= t.maxCost {
		return true
	}
	if t.maxGoals > 0 && t.goalsAttempted >= t.maxGoals {
		return true
	}
	return false
}

// Snapshot returns the current counter values.
func (t *Tracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Usage{
		Elapsed:        time.Since(t.started),
		CostSpent:      t.costSpent,
		GoalsAttempted: t.goalsAttempted,
	}
}
