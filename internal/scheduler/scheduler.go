// Package scheduler drives the recursive goal-execution loop: budget
// gating, decompose-or-execute decisions, wave-ordered concurrent
// sub-goal execution, and bottom-up synthesis.
//
// Sub-goals each get their own goroutine; the run-wide concurrency
// limit is enforced at the network calls (provider and oracle requests)
// rather than on these goroutines. Gating the recursion itself would
// deadlock: a parent holding a slot waits on children who need slots.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrelab/inquest/internal/budget"
	"github.com/kestrelab/inquest/internal/decompose"
	"github.com/kestrelab/inquest/internal/evidence"
	"github.com/kestrelab/inquest/internal/research"
	"github.com/kestrelab/inquest/internal/waves"
)

// Decider chooses atomic-vs-decompose for a goal.
type Decider interface {
	Decide(ctx context.Context, goal research.Goal, ancestors []string, sample []research.Evidence) decompose.Decision
}

// AtomicExecutor runs a goal that will not be decomposed further.
type AtomicExecutor interface {
	ExecuteAtomic(ctx context.Context, goal research.Goal) research.GoalResult
}

// Summarizer merges evidence and sub-results into prose plus confidence,
// reporting the oracle cost it incurred.
type Summarizer interface {
	Synthesize(ctx context.Context, goal research.Goal, own []research.Evidence, subs []research.GoalResult) (text string, confidence float64, cost float64)
}

const sampleSize = 8

// Scheduler executes one research run's goal tree. All shared state (the
// budget tracker and evidence store) is injected at construction; goals
// and results are value types owned by the invocation that created them.
type Scheduler struct {
	constraints research.Constraints
	tracker     *budget.Tracker
	store       *evidence.Store
	decider     Decider
	executor    AtomicExecutor
	synth       Summarizer

	// Estimated charge for attempting one goal. Zero keeps goal
	// attempts free under a zero cost budget; the goal counter is the
	// binding limit either way.
	goalCost float64
}

// New creates a scheduler.
func New(constraints research.Constraints, tracker *budget.Tracker, store *evidence.Store, decider Decider, exec AtomicExecutor, synth Summarizer) *Scheduler {
	return &Scheduler{
		constraints: constraints,
		tracker:     tracker,
		store:       store,
		decider:     decider,
		executor:    exec,
		synth:       synth,
	}
}

// Run executes the goal tree rooted at goal and returns its result.
func (s *Scheduler) Run(ctx context.Context, goal research.Goal) research.GoalResult {
	return s.run(ctx, goal, nil)
}

func (s *Scheduler) run(ctx context.Context, goal research.Goal, ancestors []string) research.GoalResult {
	started := time.Now()
	goal.Status = research.StatusInProgress

	if ok, reason := s.tracker.TryCharge(s.goalCost, 1); !ok {
		log.Info().Str("goal", goal.Description).Int("depth", goal.Depth).Str("reason", reason).Msg("goal constrained by budget")
		return constrainedResult(goal, reason, time.Since(started))
	}

	// The depth ceiling is a hard stop on recursion: at or beyond it the
	// goal executes atomically no matter what decomposition would prefer.
	if goal.Depth >= s.constraints.MaxDepth {
		log.Debug().Str("goal", goal.Description).Int("depth", goal.Depth).Msg("depth ceiling reached, forcing atomic execution")
		return s.executor.ExecuteAtomic(ctx, goal)
	}

	decision := s.decider.Decide(ctx, goal, ancestors, s.store.Sample(sampleSize))
	if decision.Atomic {
		result := s.executor.ExecuteAtomic(ctx, goal)
		result.Cost += decision.Cost
		return result
	}

	return s.runDecomposed(ctx, goal, ancestors, decision, started)
}

func (s *Scheduler) runDecomposed(ctx context.Context, goal research.Goal, ancestors []string, decision decompose.Decision, started time.Time) research.GoalResult {
	groups, cyclic := waves.Group(decision.SubGoals)

	childAncestors := make([]string, len(ancestors), len(ancestors)+1)
	copy(childAncestors, ancestors)
	childAncestors = append(childAncestors, goal.Description)

	log.Info().
		Str("goal", goal.Description).
		Int("depth", goal.Depth).
		Int("sub_goals", len(decision.SubGoals)).
		Int("waves", len(groups)).
		Msg("goal decomposed")

	var subResults []research.GoalResult
	for wi, wave := range groups {
		// Budget may have run out mid-tree: mark every goal in this and
		// later waves constrained without attempting them.
		if s.tracker.Exhausted() {
			for _, rest := range groups[wi:] {
				for _, sg := range rest {
					subResults = append(subResults, constrainedResult(sg, "budget exhausted before goal was attempted", 0))
				}
			}
			break
		}

		results := make([]research.GoalResult, len(wave))
		var wg sync.WaitGroup
		for i, sg := range wave {
			wg.Add(1)
			go func(i int, sg research.Goal) {
				defer wg.Done()
				results[i] = s.run(ctx, sg, childAncestors)
			}(i, sg)
		}
		// Later waves may read evidence produced by any goal in this
		// wave, so wait for all of them, success or not.
		wg.Wait()
		subResults = append(subResults, results...)
	}

	text, confidence, synthCost := s.synth.Synthesize(ctx, goal, nil, subResults)

	result := research.GoalResult{
		Goal:       goal,
		Status:     aggregateStatus(subResults),
		SubResults: subResults,
		Synthesis:  text,
		Confidence: confidence,
		Duration:   time.Since(started),
		Cost:       decision.Cost + synthCost + totalCost(subResults),
	}
	if len(cyclic) > 0 {
		result.Reason = fmt.Sprintf("cycle detected among sub-goals %v; members ran unordered", cyclic)
	}

	log.Info().
		Str("goal", goal.Description).
		Int("depth", goal.Depth).
		Str("status", string(result.Status)).
		Float64("confidence", result.Confidence).
		Dur("duration", result.Duration).
		Msg("goal finished")
	return result
}

// aggregateStatus computes a parent's status from its children: any
// success completes the parent, a full wipeout fails it, and a mix of
// constrained and failed children (no successes) surfaces as constrained.
// Partial success is expressed through the confidence score.
func aggregateStatus(subs []research.GoalResult) research.GoalStatus {
	if len(subs) == 0 {
		return research.StatusCompleted
	}
	failed := 0
	for _, sub := range subs {
		switch sub.Status {
		case research.StatusCompleted:
			return research.StatusCompleted
		case research.StatusFailed:
			failed++
		}
	}
	if failed == len(subs) {
		return research.StatusFailed
	}
	return research.StatusConstrained
}

func totalCost(subs []research.GoalResult) float64 {
	var sum float64
	for _, sub := range subs {
		sum += sub.Cost
	}
	return sum
}

func constrainedResult(goal research.Goal, reason string, d time.Duration) research.GoalResult {
	return research.GoalResult{
		Goal:     goal,
		Status:   research.StatusConstrained,
		Reason:   reason,
		Duration: d,
	}
}
