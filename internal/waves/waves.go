// Package waves orders sibling sub-goals into concurrently executable
// groups that respect their declared dependencies.
package waves

import (
	"github.com/rs/zerolog/log"

	"github.com/kestrelab/inquest/internal/research"
)

// Group performs a Kahn-style topological layering over the sub-goals,
// treating dependency declarations as directed edges. Wave 0 holds all
// goals with no dependencies; wave k holds goals whose dependencies all
// landed in waves 0..k-1. Dependency indices that point outside the
// sibling set (or at the goal itself) are dropped with a warning.
//
// When a cycle leaves some goals unresolvable, all remaining goals are
// placed together in one final wave instead of failing: within a wave
// execution is unordered anyway, so cyclic members merely lose an
// ordering guarantee that could never be satisfied. The returned cyclic
// slice names their indices so callers can surface the degradation.
func Group(subGoals []research.Goal) (groups [][]research.Goal, cyclic []int) {
	n := len(subGoals)
	if n == 0 {
		return nil, nil
	}

	deps := make([][]int, n)
	for i, g := range subGoals {
		for _, d := range g.Dependencies {
			if d < 0 || d >= n || d == i {
				log.Warn().
					Int("goal", i).
					Int("dependency", d).
					Str("description", g.Description).
					Msg("dropping invalid dependency index")
				continue
			}
			deps[i] = append(deps[i], d)
		}
	}

	placed := make([]bool, n)
	remaining := n
	for remaining > 0 {
		var wave []research.Goal
		var waveIdx []int
		for i := range subGoals {
			if placed[i] {
				continue
			}
			ready := true
			for _, d := range deps[i] {
				if !placed[d] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, subGoals[i])
				waveIdx = append(waveIdx, i)
			}
		}

		if len(wave) == 0 {
			// Cycle: everything left depends on something unplaced.
			for i := range subGoals {
				if !placed[i] {
					wave = append(wave, subGoals[i])
					cyclic = append(cyclic, i)
				}
			}
			log.Warn().Ints("members", cyclic).Msg("cycle detected among sub-goal dependencies, running members unordered")
			groups = append(groups, wave)
			return groups, cyclic
		}

		for _, i := range waveIdx {
			placed[i] = true
		}
		remaining -= len(wave)
		groups = append(groups, wave)
	}
	return groups, nil
}
