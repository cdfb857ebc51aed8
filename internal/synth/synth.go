// Package synth merges a goal's evidence with its sub-results into a
// summary and a confidence score.
package synth

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

const synthesisSchema = `{
  "type":"object",
  "properties":{"summary":{"type":"string"}},
  "required":["summary"],
  "additionalProperties":false
}`

const maxSynthesisEvidence = 12

// Synthesizer produces per-goal summaries. Confidence is computed
// deterministically; the oracle call only contributes prose, so an
// oracle failure degrades to an empty synthesis, never a failed goal.
type Synthesizer struct {
	oracle  oracle.Oracle
	tracker *budget.Tracker
}

// New creates a synthesizer.
func New(orc oracle.Oracle, tracker *budget.Tracker) *Synthesizer {
	return &Synthesizer{oracle: orc, tracker: tracker}
}

// Synthesize combines the goal's own evidence and the sub-results into a
// natural-language summary plus a confidence score in [0,1]. The third
// return value is the oracle cost incurred.
func (s *Synthesizer) Synthesize(ctx context.Context, goal research.Goal, own []research.Evidence, subs []research.GoalResult) (string, float64, float64) {
	confidence := Confidence(own, subs)

	text, cost, err := s.summarize(ctx, goal, own, subs)
	if err != nil {
		log.Warn().Str("goal", goal.Description).Err(err).Msg("synthesis oracle failed, keeping deterministic confidence only")
		return "", confidence, cost
	}
	return text, confidence, cost
}

// Confidence derives a deterministic score from evidence count, source
// diversity, and the mean confidence of completed sub-results.
func Confidence(own []research.Evidence, subs []research.GoalResult) float64 {
	evidenceCount := len(own)
	sources := make(map[string]struct{})
	for _, ev := range own {
		sources[ev.SourceID] = struct{}{}
	}

	var subSum float64
	var subN int
	for _, sub := range subs {
		evidenceCount += sub.EvidenceCount()
		if sub.Status == research.StatusCompleted {
			subSum += sub.Confidence
			subN++
		}
	}

	score := 0.0
	switch {
	case evidenceCount >= 10:
		score += 0.5
	case evidenceCount > 0:
		score += 0.5 * float64(evidenceCount) / 10
	}
	switch {
	case len(sources) >= 3:
		score += 0.25
	case len(sources) > 0:
		score += 0.25 * float64(len(sources)) / 3
	}
	if subN > 0 {
		score += 0.25 * (subSum / float64(subN))
	} else if evidenceCount > 0 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func (s *Synthesizer) summarize(ctx context.Context, goal research.Goal, own []research.Evidence, subs []research.GoalResult) (string, float64, error) {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(`
You are the synthesis step of a research engine. Write a concise,
factual answer to the goal below using only the material provided.
Cite nothing that is not in the material. Output ONLY valid JSON
matching the provided schema.
`))
	b.WriteString("\n\nGoal: ")
	b.WriteString(goal.Description)

	// Atomic sub-goals carry evidence but no prose, so their evidence is
	// prompt material too, not just the parent's own findings.
	evidence := make([]research.Evidence, 0, len(own))
	evidence = append(evidence, own...)
	for _, sub := range subs {
		if len(evidence) >= maxSynthesisEvidence {
			break
		}
		evidence = append(evidence, sub.Evidence...)
	}
	if len(evidence) > maxSynthesisEvidence {
		evidence = evidence[:maxSynthesisEvidence]
	}
	if len(evidence) > 0 {
		b.WriteString("\n\nEvidence:\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.SourceID, ev.Title, ev.Snippet)
		}
	}
	hasSubs := false
	for _, sub := range subs {
		if sub.Synthesis == "" {
			continue
		}
		if !hasSubs {
			b.WriteString("\nSub-goal findings:\n")
			hasSubs = true
		}
		fmt.Fprintf(&b, "- %s: %s\n", sub.Goal.Description, sub.Synthesis)
	}
	if len(evidence) == 0 && !hasSubs {
		return "", 0, nil
	}

	raw, cost, err := s.oracle.Ask(ctx, b.String(), synthesisSchema)
	s.tracker.Spend(cost)
	if err != nil {
		return "", cost, err
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", cost, fmt.Errorf("parse synthesis: %w", err)
	}
	return out.Summary, cost, nil
}
