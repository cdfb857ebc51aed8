// Package decompose decides whether a goal executes atomically or splits
// into dependent sub-goals, consulting the reasoning oracle.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kestrelab/inquest/internal/budget"
	"github.com/kestrelab/inquest/internal/oracle"
	"github.com/kestrelab/inquest/internal/research"
)

const decisionSchema = `{
  "type":"object",
  "properties":{
    "is_atomic":{"type":"boolean"},
    "sub_goals":{
      "type":"array",
      "items":{
        "type":"object",
        "properties":{
          "description":{"type":"string","minLength":1},
          "rationale":{"type":"string"},
          "depends_on":{"type":"array","items":{"type":"integer"}}
        },
        "required":["description"],
        "additionalProperties":false
      }
    }
  },
  "required":["is_atomic"],
  "additionalProperties":false
}`

const maxEvidenceSample = 8

// Decision is the sanitized outcome of one decomposition consultation.
// Cost is the oracle spend the consultation incurred.
type Decision struct {
	Atomic   bool
	SubGoals []research.Goal
	Cost     float64
}

// Controller asks the oracle whether to split a goal. Its only failure
// mode is "execute atomically": oracle errors, malformed output, and
// empty decompositions all degrade rather than abort the run.
type Controller struct {
	oracle      oracle.Oracle
	tracker     *budget.Tracker
	maxSubGoals int
}

// NewController creates a decomposition controller. maxSubGoals caps how
// many sub-goals one decomposition may declare; zero means a default of 6.
func NewController(orc oracle.Oracle, tracker *budget.Tracker, maxSubGoals int) *Controller {
	if maxSubGoals <= 0 {
		maxSubGoals = 6
	}
	return &Controller{oracle: orc, tracker: tracker, maxSubGoals: maxSubGoals}
}

// Decide consults the oracle with the goal, its ancestor stack, and a
// capped sample of evidence gathered so far, then validates the reply.
func (c *Controller) Decide(ctx context.Context, goal research.Goal, ancestors []string, sample []research.Evidence) Decision {
	prompt := c.buildPrompt(goal, ancestors, sample)

	raw, cost, err := c.oracle.Ask(ctx, prompt, decisionSchema)
	c.tracker.Spend(cost)
	if err != nil {
		log.Warn().Str("goal", goal.Description).Err(err).Msg("decomposition oracle failed, treating goal as atomic")
		return Decision{Atomic: true, Cost: cost}
	}

	var out struct {
		IsAtomic bool `json:"is_atomic"`
		SubGoals []struct {
			Description string `json:"description"`
			Rationale   string `json:"rationale"`
			DependsOn   []int  `json:"depends_on"`
		} `json:"sub_goals"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().Str("goal", goal.Description).Err(err).Msg("unparseable decomposition, treating goal as atomic")
		return Decision{Atomic: true, Cost: cost}
	}
	if out.IsAtomic || len(out.SubGoals) == 0 {
		return Decision{Atomic: true, Cost: cost}
	}

	if len(out.SubGoals) > c.maxSubGoals {
		log.Warn().
			Str("goal", goal.Description).
			Int("declared", len(out.SubGoals)).
			Int("cap", c.maxSubGoals).
			Msg("truncating oversized decomposition")
		out.SubGoals = out.SubGoals[:c.maxSubGoals]
	}

	// Skipping a blank sub-goal shifts every later sibling's position, so
	// dependency indices must be remapped to the filtered positions.
	remap := make([]int, len(out.SubGoals))
	kept := 0
	for i, sg := range out.SubGoals {
		if strings.TrimSpace(sg.Description) == "" {
			remap[i] = -1
			continue
		}
		remap[i] = kept
		kept++
	}

	subGoals := make([]research.Goal, 0, kept)
	for i, sg := range out.SubGoals {
		if remap[i] < 0 {
			continue
		}
		deps := make([]int, 0, len(sg.DependsOn))
		for _, d := range sg.DependsOn {
			// Bounds and self-reference checks against the declared
			// positions; deps on skipped goals are dropped too.
			// Unresolved cycles are the wave grouper's problem, not ours.
			if d < 0 || d >= len(out.SubGoals) || d == i || remap[d] < 0 {
				log.Warn().Int("sub_goal", i).Int("dependency", d).Msg("dropping invalid dependency declaration")
				continue
			}
			deps = append(deps, remap[d])
		}
		subGoals = append(subGoals, research.Goal{
			Description:  sg.Description,
			Rationale:    sg.Rationale,
			Dependencies: deps,
			Depth:        goal.Depth + 1,
			Status:       research.StatusPending,
		})
	}
	if len(subGoals) == 0 {
		return Decision{Atomic: true, Cost: cost}
	}
	return Decision{Atomic: false, SubGoals: subGoals, Cost: cost}
}

func (c *Controller) buildPrompt(goal research.Goal, ancestors []string, sample []research.Evidence) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(`
You are the planning step of a recursive research engine.
Decide whether the goal below can be answered with direct searches
(is_atomic=true) or should be split into smaller sub-goals
(is_atomic=false with 2-6 sub_goals).

Rules:
- Output ONLY valid JSON matching the provided schema.
- depends_on lists the zero-based indices of sibling sub-goals whose
  findings a sub-goal needs before it can start. Leave it empty for
  independent sub-goals.
- Do not restate an ancestor goal as a sub-goal.
- Prefer atomic when the goal is a single factual question.
`))
	b.WriteString("\n\nGoal: ")
	b.WriteString(goal.Description)
	if goal.Rationale != "" {
		b.WriteString("\nRationale: ")
		b.WriteString(goal.Rationale)
	}
	if len(ancestors) > 0 {
		b.WriteString("\n\nAncestor goals (outermost first):\n")
		for _, a := range ancestors {
			b.WriteString("- ")
			b.WriteString(a)
			b.WriteByte('\n')
		}
	}
	if len(sample) > 0 {
		if len(sample) > maxEvidenceSample {
			sample = sample[len(sample)-maxEvidenceSample:]
		}
		b.WriteString("\nEvidence already gathered:\n")
		for _, ev := range sample {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.SourceID, ev.Title, ev.Snippet)
		}
	}
	return b.String()
}
