// Package research defines the core domain types for a research run:
// goals, evidence, results, and run constraints.
package research

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	StatusPending       GoalStatus = "pending"
	StatusInProgress    GoalStatus = "in_progress"
	StatusCompleted     GoalStatus = "completed"
	StatusFailed        GoalStatus = "failed"
	StatusConstrained   GoalStatus = "constrained"
	StatusCycleDetected GoalStatus = "cycle_detected"
)

// Terminal reports whether the status is a final state.
func (s GoalStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusConstrained, StatusCycleDetected:
		return true
	}
	return false
}

// Goal is a single unit of research intent. Goals are value types: each
// scheduler invocation owns the goal it was handed and never shares it
// by reference across branches.
type Goal struct {
	Description  string     `json:"description"`
	Rationale    string     `json:"rationale,omitempty"`
	Dependencies []int      `json:"dependencies,omitempty"`
	Depth        int        `json:"depth"`
	Status       GoalStatus `json:"status"`
}

// Constraints are the immutable limits for one research run.
type Constraints struct {
	MaxDepth      int           `json:"max_depth"`
	MaxTime       time.Duration `json:"max_time"`
	MaxCost       float64       `json:"max_cost"`
	MaxGoals      int           `json:"max_goals"`
	MaxConcurrent int           `json:"max_concurrent"`
}

// Evidence is a single discovered fact or document with provenance.
// RawContent keeps full fidelity; Snippet is bounded for prompt use.
type Evidence struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Snippet    string  `json:"snippet"`
	RawContent string  `json:"raw_content,omitempty"`
	Date       string  `json:"date,omitempty"`
	Relevance  float64 `json:"relevance,omitempty"`
	OriginGoal string  `json:"origin_goal,omitempty"`
}

// Key is the dedup identity of an evidence item within one run:
// source + URL, or source + content hash when the URL is absent.
func (e Evidence) Key() string {
	if e.URL != "" {
		return e.SourceID + "|" + e.URL
	}
	sum := sha256.Sum256([]byte(e.Snippet + e.RawContent))
	return e.SourceID + "|sha256:" + hex.EncodeToString(sum[:])
}

// GoalResult is the immutable outcome of one scheduler invocation.
type GoalResult struct {
	Goal       Goal          `json:"goal"`
	Status     GoalStatus    `json:"status"`
	Evidence   []Evidence    `json:"evidence,omitempty"`
	SubResults []GoalResult  `json:"sub_results,omitempty"`
	Synthesis  string        `json:"synthesis,omitempty"`
	Confidence float64       `json:"confidence"`
	Duration   time.Duration `json:"duration"`
	Cost       float64       `json:"cost"`
	Reason     string        `json:"reason,omitempty"`
}

// EvidenceCount returns the number of evidence items discovered by this
// goal and its whole subtree.
func (r GoalResult) EvidenceCount() int {
	n := len(r.Evidence)
	for _, sub := range r.SubResults {
		n += sub.EvidenceCount()
	}
	return n
}

// Walk visits this result and every descendant, depth-first.
func (r GoalResult) Walk(fn func(GoalResult)) {
	fn(r)
	for _, sub := range r.SubResults {
		sub.Walk(fn)
	}
}
