package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelab/inquest/internal/budget"
	"github.com/kestrelab/inquest/internal/decompose"
	"github.com/kestrelab/inquest/internal/evidence"
	"github.com/kestrelab/inquest/internal/research"
)

type fakeDecider struct {
	mu      sync.Mutex
	fn      func(goal research.Goal) decompose.Decision
	decided []string
}

func (d *fakeDecider) Decide(_ context.Context, goal research.Goal, _ []string, _ []research.Evidence) decompose.Decision {
	d.mu.Lock()
	d.decided = append(d.decided, goal.Description)
	d.mu.Unlock()
	if d.fn == nil {
		return decompose.Decision{Atomic: true}
	}
	return d.fn(goal)
}

func (d *fakeDecider) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.decided)
}

type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	fn       func(goal research.Goal) research.GoalResult
}

func (e *fakeExecutor) ExecuteAtomic(_ context.Context, goal research.Goal) research.GoalResult {
	e.mu.Lock()
	e.executed = append(e.executed, goal.Description)
	e.mu.Unlock()
	if e.fn == nil {
		return research.GoalResult{Goal: goal, Status: research.StatusCompleted}
	}
	return e.fn(goal)
}

func (e *fakeExecutor) order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.executed))
	copy(out, e.executed)
	return out
}

type fakeSummarizer struct {
	text string
	conf float64
	cost float64
}

func (s *fakeSummarizer) Synthesize(context.Context, research.Goal, []research.Evidence, []research.GoalResult) (string, float64, float64) {
	return s.text, s.conf, s.cost
}

func newScheduler(c research.Constraints, d *fakeDecider, e *fakeExecutor, s *fakeSummarizer) (*Scheduler, *budget.Tracker) {
	tracker := budget.NewTracker(c)
	sched := New(c, tracker, evidence.NewStore(), d, e, s)
	return sched, tracker
}

func subGoals(descs ...string) []research.Goal {
	out := make([]research.Goal, len(descs))
	for i, d := range descs {
		out[i] = research.Goal{Description: d, Depth: 1, Status: research.StatusPending}
	}
	return out
}

func TestRun_DepthCeilingForcesAtomicWithoutConsultingDecider(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{}
	exec := &fakeExecutor{}
	sched, _ := newScheduler(research.Constraints{MaxDepth: 0, MaxGoals: 10}, decider, exec, &fakeSummarizer{})

	result := sched.Run(context.Background(), research.Goal{Description: "root"})

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Zero(t, decider.calls(), "decider consulted at the depth ceiling")
	assert.Equal(t, []string{"root"}, exec.order())
}

func TestRun_AtomicDecisionAddsConsultationCost(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{fn: func(research.Goal) decompose.Decision {
		return decompose.Decision{Atomic: true, Cost: 0.01}
	}}
	exec := &fakeExecutor{fn: func(g research.Goal) research.GoalResult {
		return research.GoalResult{Goal: g, Status: research.StatusCompleted, Cost: 0.02}
	}}
	sched, _ := newScheduler(research.Constraints{MaxDepth: 3, MaxGoals: 10, MaxCost: 10}, decider, exec, &fakeSummarizer{})

	result := sched.Run(context.Background(), research.Goal{Description: "root"})
	assert.InDelta(t, 0.03, result.Cost, 1e-9)
}

func TestRun_BudgetRefusalConstrainsGoal(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{}
	exec := &fakeExecutor{}
	sched, _ := newScheduler(research.Constraints{MaxDepth: 3, MaxGoals: 10, MaxTime: time.Nanosecond}, decider, exec, &fakeSummarizer{})
	time.Sleep(time.Millisecond)

	result := sched.Run(context.Background(), research.Goal{Description: "root"})

	assert.Equal(t, research.StatusConstrained, result.Status)
	assert.NotEmpty(t, result.Reason)
	assert.Empty(t, exec.order(), "constrained goal must not execute")
}

func TestRun_ExhaustionConstrainsRemainingChildren(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{fn: func(g research.Goal) decompose.Decision {
		if g.Description == "root" {
			return decompose.Decision{SubGoals: subGoals("a", "b")}
		}
		return decompose.Decision{Atomic: true}
	}}
	exec := &fakeExecutor{}
	// The root charge consumes the only goal slot: every child is
	// constrained before it is attempted.
	sched, _ := newScheduler(research.Constraints{MaxDepth: 3, MaxGoals: 1}, decider, exec, &fakeSummarizer{})

	result := sched.Run(context.Background(), research.Goal{Description: "root"})

	require.Len(t, result.SubResults, 2)
	for _, sub := range result.SubResults {
		assert.Equal(t, research.StatusConstrained, sub.Status)
	}
	assert.Equal(t, research.StatusConstrained, result.Status)
	assert.Empty(t, exec.order())
}

func TestRun_WavesOrderDependentGoals(t *testing.T) {
	t.Parallel()

	goals := subGoals("a", "b", "c")
	goals[2].Dependencies = []int{0, 1}

	decider := &fakeDecider{fn: func(g research.Goal) decompose.Decision {
		if g.Description == "root" {
			return decompose.Decision{SubGoals: goals}
		}
		return decompose.Decision{Atomic: true}
	}}
	exec := &fakeExecutor{fn: func(g research.Goal) research.GoalResult {
		if g.Description != "c" {
			time.Sleep(5 * time.Millisecond)
		}
		return research.GoalResult{Goal: g, Status: research.StatusCompleted, Confidence: 0.7}
	}}
	sched, _ := newScheduler(research.Constraints{MaxDepth: 3, MaxGoals: 10}, decider, exec, &fakeSummarizer{text: "summary", conf: 0.6})

	result := sched.Run(context.Background(), research.Goal{Description: "root"})

	order := exec.order()
	require.Len(t, order, 3)
	assert.Equal(t, "c", order[2], "dependent goal ran before its wave")

	assert.Equal(t, research.StatusCompleted, result.Status)
	assert.Equal(t, "summary", result.Synthesis)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
	assert.Len(t, result.SubResults, 3)
}

func TestRun_CycleSurfacesInReason(t *testing.T) {
	t.Parallel()

	goals := subGoals("a", "b")
	goals[0].Dependencies = []int{1}
	goals[1].Dependencies = []int{0}

	decider := &fakeDecider{fn: func(g research.Goal) decompose.Decision {
		if g.Description == "root" {
			return decompose.Decision{SubGoals: goals}
		}
		return decompose.Decision{Atomic: true}
	}}
	exec := &fakeExecutor{}
	sched, _ := newScheduler(research.Constraints{MaxDepth: 3, MaxGoals: 10}, decider, exec, &fakeSummarizer{})

	result := sched.Run(context.Background(), research.Goal{Description: "root"})

	// Cyclic members still execute, just unordered.
	assert.Len(t, exec.order(), 2)
	assert.Contains(t, result.Reason, "cycle")
}

func TestRun_SubCostsRollUp(t *testing.T) {
	t.Parallel()

	decider := &fakeDecider{fn: func(g research.Goal) decompose.Decision {
		if g.Description == "root" {
			return decompose.Decision{SubGoals: subGoals("a", "b"), Cost: 0.01}
		}
		return decompose.Decision{Atomic: true, Cost: 0.002}
	}}
	exec := &fakeExecutor{fn: func(g research.Goal) research.GoalResult {
		return research.GoalResult{Goal: g, Status: research.StatusCompleted, Cost: 0.005}
	}}
	sched, _ := newScheduler(research.Constraints{MaxDepth: 3, MaxGoals: 10, MaxCost: 10}, decider, exec, &fakeSummarizer{cost: 0.02})

	result := sched.Run(context.Background(), research.Goal{Description: "root"})

	// root decision + synthesis + two children (decision + execution each).
	want := 0.01 + 0.02 + 2*(0.002+0.005)
	assert.InDelta(t, want, result.Cost, 1e-9)
}

func TestAggregateStatus(t *testing.T) {
	t.Parallel()

	completed := research.GoalResult{Status: research.StatusCompleted}
	failed := research.GoalResult{Status: research.StatusFailed}
	constrained := research.GoalResult{Status: research.StatusConstrained}

	tests := []struct {
		name string
		subs []research.GoalResult
		want research.GoalStatus
	}{
		{"none", nil, research.StatusCompleted},
		{"any_success", []research.GoalResult{failed, completed, constrained}, research.StatusCompleted},
		{"all_failed", []research.GoalResult{failed, failed}, research.StatusFailed},
		{"mixed_no_success", []research.GoalResult{failed, constrained}, research.StatusConstrained},
		{"all_constrained", []research.GoalResult{constrained, constrained}, research.StatusConstrained},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, aggregateStatus(tc.subs))
		})
	}
}
