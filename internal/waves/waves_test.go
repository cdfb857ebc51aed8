package waves

import (
	"testing"

	"github.com/kestrelab/inquest/internal/research"
)

func goals(deps ...[]int) []research.Goal {
	out := make([]research.Goal, len(deps))
	for i, d := range deps {
		out[i] = research.Goal{Description: string(rune('a' + i)), Dependencies: d}
	}
	return out
}

func TestGroup_IndependentGoalsFormOneWave(t *testing.T) {
	t.Parallel()

	groups, cyclic := Group(goals(nil, nil, nil))
	if len(cyclic) != 0 {
		t.Fatalf("cyclic = %v, want none", cyclic)
	}
	if len(groups) != 1 {
		t.Fatalf("waves = %d, want 1", len(groups))
	}
	if len(groups[0]) != 3 {
		t.Fatalf("wave size = %d, want 3", len(groups[0]))
	}
}

func TestGroup_LayersRespectDependencies(t *testing.T) {
	t.Parallel()

	// c depends on both a and b: [[a, b], [c]].
	groups, cyclic := Group(goals(nil, nil, []int{0, 1}))
	if len(cyclic) != 0 {
		t.Fatalf("cyclic = %v, want none", cyclic)
	}
	if len(groups) != 2 {
		t.Fatalf("waves = %d, want 2", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 1 {
		t.Fatalf("wave sizes = %d,%d, want 2,1", len(groups[0]), len(groups[1]))
	}
	if groups[1][0].Description != "c" {
		t.Fatalf("second wave holds %q, want %q", groups[1][0].Description, "c")
	}
}

func TestGroup_ChainProducesOneWavePerGoal(t *testing.T) {
	t.Parallel()

	groups, cyclic := Group(goals(nil, []int{0}, []int{1}, []int{2}))
	if len(cyclic) != 0 {
		t.Fatalf("cyclic = %v, want none", cyclic)
	}
	if len(groups) != 4 {
		t.Fatalf("waves = %d, want 4", len(groups))
	}
	for i, wave := range groups {
		if len(wave) != 1 {
			t.Fatalf("wave %d size = %d, want 1", i, len(wave))
		}
	}
}

func TestGroup_CycleFallsBackToFinalWave(t *testing.T) {
	t.Parallel()

	// a and b depend on each other; c is independent.
	groups, cyclic := Group(goals([]int{1}, []int{0}, nil))
	if len(cyclic) != 2 {
		t.Fatalf("cyclic = %v, want two members", cyclic)
	}

	// Every goal is placed exactly once despite the cycle.
	total := 0
	for _, wave := range groups {
		total += len(wave)
	}
	if total != 3 {
		t.Fatalf("placed %d goals, want 3", total)
	}

	// The independent goal runs first; the cyclic pair forms the final wave.
	if len(groups) != 2 {
		t.Fatalf("waves = %d, want 2", len(groups))
	}
	if groups[0][0].Description != "c" {
		t.Fatalf("first wave holds %q, want %q", groups[0][0].Description, "c")
	}
	if len(groups[1]) != 2 {
		t.Fatalf("final wave size = %d, want 2", len(groups[1]))
	}
}

func TestGroup_FullCycleTerminates(t *testing.T) {
	t.Parallel()

	groups, cyclic := Group(goals([]int{2}, []int{0}, []int{1}))
	if len(cyclic) != 3 {
		t.Fatalf("cyclic = %v, want all three", cyclic)
	}
	if len(groups) != 1 || len(groups[0]) != 3 {
		t.Fatalf("expected a single wave of 3, got %d waves", len(groups))
	}
}

func TestGroup_DropsInvalidDependencyIndices(t *testing.T) {
	t.Parallel()

	// Out-of-range and self-referencing deps are ignored, leaving both
	// goals independent.
	subGoals := []research.Goal{
		{Description: "a", Dependencies: []int{-1, 99}},
		{Description: "b", Dependencies: []int{1}},
	}
	groups, cyclic := Group(subGoals)
	if len(cyclic) != 0 {
		t.Fatalf("cyclic = %v, want none", cyclic)
	}
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("expected one wave of 2, got %v", groups)
	}
}

func TestGroup_Empty(t *testing.T) {
	t.Parallel()

	groups, cyclic := Group(nil)
	if groups != nil || cyclic != nil {
		t.Fatalf("Group(nil) = %v, %v, want nil, nil", groups, cyclic)
	}
}
