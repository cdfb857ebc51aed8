// Package executor runs a single atomic goal against the relevant search
// providers, with per-provider retry and reformulation.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/kestrelab/inquest/internal/budget"
	"github.com/kestrelab/inquest/internal/classify"
	"github.com/kestrelab/inquest/internal/evidence"
	"github.com/kestrelab/inquest/internal/oracle"
	"github.com/kestrelab/inquest/internal/provider"
	"github.com/kestrelab/inquest/internal/research"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultResultLimit    = 5
)

const reformulateSchema = `{
  "type":"object",
  "properties":{"query":{"type":"string","minLength":1}},
  "required":["query"],
  "additionalProperties":false
}`

// Executor executes atomic goals. One executor is shared by the whole
// run; the semaphore it holds is the run-wide concurrency limit, shared
// with oracle calls at every depth.
type Executor struct {
	providers *provider.Registry
	oracle    oracle.Oracle
	store     *evidence.Store
	tracker   *budget.Tracker
	sem       *semaphore.Weighted

	maxRetries     int
	initialBackoff time.Duration
	resultLimit    int
}

// Option tweaks executor behavior.
type Option func(*Executor)

// WithMaxRetries caps retries per provider call.
func WithMaxRetries(n int) Option {
	return func(e *Executor) { e.maxRetries = n }
}

// WithInitialBackoff sets the first retry delay; it doubles per attempt.
func WithInitialBackoff(d time.Duration) Option {
	return func(e *Executor) { e.initialBackoff = d }
}

// WithResultLimit caps results requested per provider call.
func WithResultLimit(n int) Option {
	return func(e *Executor) { e.resultLimit = n }
}

// New creates an executor.
func New(providers *provider.Registry, orc oracle.Oracle, store *evidence.Store, tracker *budget.Tracker, sem *semaphore.Weighted, opts ...Option) *Executor {
	e := &Executor{
		providers:      providers,
		oracle:         orc,
		store:          store,
		tracker:        tracker,
		sem:            sem,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		resultLimit:    defaultResultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type providerOutcome struct {
	id    string
	items []research.Evidence
	cost  float64
	err   error
}

// ExecuteAtomic queries every relevant provider concurrently, classifies
// and recovers failures per provider, deduplicates successes against the
// shared store, and returns the goal result. One provider's permanent
// failure never fails the goal while another provider succeeded; zero
// relevant providers is an empty-but-valid completion.
func (e *Executor) ExecuteAtomic(ctx context.Context, goal research.Goal) research.GoalResult {
	started := time.Now()
	relevant := e.providers.Relevant(goal.Description)

	log.Debug().
		Str("goal", goal.Description).
		Int("depth", goal.Depth).
		Int("providers", len(relevant)).
		Msg("executing atomic goal")

	if len(relevant) == 0 {
		return research.GoalResult{
			Goal:     goal,
			Status:   research.StatusCompleted,
			Duration: time.Since(started),
		}
	}

	outcomes := make([]providerOutcome, len(relevant))
	var wg sync.WaitGroup
	for i, p := range relevant {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			items, cost, err := e.queryProvider(ctx, p, goal)
			outcomes[i] = providerOutcome{id: p.ID(), items: items, cost: cost, err: err}
		}(i, p)
	}
	wg.Wait()

	var collected []research.Evidence
	var failures []string
	var oracleCost float64
	succeeded := 0
	for _, out := range outcomes {
		oracleCost += out.cost
		if out.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", out.id, out.err))
			log.Warn().Str("provider", out.id).Str("goal", goal.Description).Err(out.err).Msg("provider failed permanently")
			continue
		}
		succeeded++
		for _, item := range out.items {
			if item.Title == "" && item.Snippet == "" {
				continue
			}
			item.OriginGoal = goal.Description
			collected = append(collected, item)
		}
	}

	added := e.store.Insert(collected...)

	result := research.GoalResult{
		Goal:     goal,
		Evidence: added,
		Duration: time.Since(started),
		Cost:     oracleCost,
	}
	if succeeded > 0 {
		result.Status = research.StatusCompleted
	} else {
		result.Status = research.StatusFailed
		result.Reason = strings.Join(failures, "; ")
	}

	log.Info().
		Str("goal", goal.Description).
		Int("depth", goal.Depth).
		Str("status", string(result.Status)).
		Int("evidence", len(added)).
		Dur("duration", result.Duration).
		Msg("atomic goal finished")
	return result
}

// queryProvider runs one provider with the retry/reformulate policy from
// the classifier: retryable errors back off exponentially up to the cap;
// a reformulable error gets exactly one oracle-revised query; anything
// else is a permanent failure for this provider only.
func (e *Executor) queryProvider(ctx context.Context, p provider.Provider, goal research.Goal) ([]research.Evidence, float64, error) {
	var oracleCost float64

	q, err := p.Query(goal.Description)
	if err != nil {
		return nil, 0, classify.Classify(err, 0)
	}

	reformulated := false
	backoff := e.initialBackoff
	for attempt := 0; ; attempt++ {
		items, status, err := e.attempt(ctx, p, q)
		if err == nil {
			return items, oracleCost, nil
		}
		if ctx.Err() != nil {
			return nil, oracleCost, ctx.Err()
		}

		apiErr := classify.Classify(err, status)
		if apiErr.Retryable && attempt < e.maxRetries {
			log.Debug().
				Str("provider", p.ID()).
				Int("attempt", attempt+1).
				Str("category", string(apiErr.Category)).
				Dur("backoff", backoff).
				Msg("retrying provider call")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, oracleCost, ctx.Err()
			}
			backoff *= 2
			continue
		}
		if apiErr.Reformulable && !reformulated {
			revised, cost, rerr := e.reformulate(ctx, goal, q, apiErr)
			oracleCost += cost
			if rerr != nil {
				log.Warn().Str("provider", p.ID()).Err(rerr).Msg("reformulation failed, giving up on provider")
				return nil, oracleCost, apiErr
			}
			log.Debug().Str("provider", p.ID()).Str("query", revised.Text).Msg("retrying with reformulated query")
			q = revised
			reformulated = true
			continue
		}
		return nil, oracleCost, apiErr
	}
}

func (e *Executor) attempt(ctx context.Context, p provider.Provider, q provider.Query) ([]research.Evidence, int, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer e.sem.Release(1)
	return p.Execute(ctx, q, e.resultLimit)
}

func (e *Executor) reformulate(ctx context.Context, goal research.Goal, q provider.Query, cause *classify.APIError) (provider.Query, float64, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
A search query was rejected by a search API and needs to be rephrased.

Research goal: %s
Rejected query: %s
Rejection: %s

Produce a single revised search query that preserves the goal's intent.
Output ONLY valid JSON matching the provided schema.
`, goal.Description, q.Text, cause.Message))

	raw, cost, err := e.oracle.Ask(ctx, prompt, reformulateSchema)
	e.tracker.Spend(cost)
	if err != nil {
		return provider.Query{}, cost, err
	}
	var out struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return provider.Query{}, cost, fmt.Errorf("parse reformulation: %w", err)
	}
	if strings.TrimSpace(out.Query) == "" {
		return provider.Query{}, cost, fmt.Errorf("reformulation produced empty query")
	}
	q.Text = out.Query
	return q, cost, nil
}
