// Package planner scores the remaining investigation actions with an
// f = g + h rule and picks the cheapest one. It holds no state between calls.
//
// The heuristic depends only on the current domains, so every candidate in a
// call receives the same h. Ranking therefore reduces to base cost, with h
// only shifting the reported scores.
package planner

import (
	"fmt"
	"sort"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/evidence"
)

// Evaluation is the score sheet for one candidate action.
type Evaluation struct {
	ActionID int    `json:"action_id"`
	Action   string `json:"action"`
	GCost    int    `json:"g_cost"`
	HCost    int    `json:"h_cost"`
	FCost    int    `json:"f_cost"`
}

// Heuristic estimates the remaining effort as twice the number of solutions
// still possible.
func Heuristic(store deduction.Store) int {
	return store.PossibleSolutions() * 2
}

// SelectBest scores every available action and returns the first one with the
// lowest f cost, plus all evaluations sorted ascending by f (ties keep input
// order). An empty action list yields (nil, nil): there is nothing left to
// investigate.
func SelectBest(actions []evidence.Action, cumulativeCost int, store deduction.Store) (*evidence.Action, []Evaluation) {
	if len(actions) == 0 {
		return nil, nil
	}
	h := Heuristic(store)
	evaluations := make([]Evaluation, 0, len(actions))
	best := -1
	for i, action := range actions {
		g := cumulativeCost + action.Cost
		eval := Evaluation{
			ActionID: action.ID,
			Action:   action.Description,
			GCost:    g,
			HCost:    h,
			FCost:    g + h,
		}
		evaluations = append(evaluations, eval)
		if best < 0 || eval.FCost < evaluations[best].FCost {
			best = i
		}
	}
	chosen := actions[best]
	sort.SliceStable(evaluations, func(i, j int) bool {
		return evaluations[i].FCost < evaluations[j].FCost
	})
	return &chosen, evaluations
}

// Explain renders the one-line reasoning shown next to a chosen action.
func Explain(action evidence.Action, fCost int) string {
	return fmt.Sprintf("Selected '%s' using A* algorithm (F-score: %.1f)", action.Description, float64(fCost))
}
