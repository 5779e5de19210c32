package detective

import (
	"fmt"
	"sync"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/evidence"
	"github.com/kingrea/casefile/internal/planner"
	"github.com/kingrea/casefile/internal/session"
)

// traceLimit is how many trace entries a move reports.
const traceLimit = 5

// Case is the detective's own view of one session. Its cost counter starts
// at zero when the case is created, independent of what the player spent.
type Case struct {
	mu sync.Mutex

	domains      deduction.Store
	totalCost    int
	actionsTaken int
	trace        []TraceEntry
}

// choice is one planner decision together with its explanation.
type choice struct {
	action      evidence.Action
	explanation string
	evaluations []planner.Evaluation
}

func newCase(snap session.Snapshot) *Case {
	return &Case{
		domains: snap.GameState.CurrentDomains.Clone(),
	}
}

// reset starts the case over from snap.
func (c *Case) reset(snap session.Snapshot) {
	c.domains = snap.GameState.CurrentDomains.Clone()
	c.totalCost = 0
	c.actionsTaken = 0
	c.trace = nil
}

// choose runs the planner over the snapshot and logs the decision to the
// trace. It reports false when no action is left.
func (c *Case) choose(snap session.Snapshot) (choice, bool) {
	best, evaluations := planner.SelectBest(snap.AvailableActions, c.totalCost, snap.GameState.CurrentDomains)
	if best == nil {
		return choice{}, false
	}
	explanation := planner.Explain(*best, evaluations[0].FCost)
	c.trace = append(c.trace, TraceEntry{
		Type:      "search",
		Algorithm: AlgorithmSearch,
		Message:   explanation,
		Details:   fmt.Sprintf("Evaluated %d actions", len(evaluations)),
	})
	return choice{action: *best, explanation: explanation, evaluations: evaluations}, true
}

// absorb folds an applied action back into the case.
func (c *Case) absorb(outcome session.Outcome) {
	c.domains = outcome.Snapshot.GameState.CurrentDomains.Clone()
	c.totalCost += outcome.Evidence.Cost
	c.actionsTaken++
	for _, step := range outcome.Reasoning.Steps {
		c.trace = append(c.trace, TraceEntry{
			Type:    string(step.Kind),
			Step:    string(step.Phase),
			Message: step.Message,
		})
	}
}

func (c *Case) solved() bool {
	return c.domains.IsSolved()
}

func (c *Case) solution() *deduction.Solution {
	solution, ok := c.domains.Solution()
	if !ok {
		return nil
	}
	return &solution
}

func (c *Case) recent() []TraceEntry {
	start := len(c.trace) - traceLimit
	if start < 0 {
		start = 0
	}
	out := make([]TraceEntry, len(c.trace)-start)
	copy(out, c.trace[start:])
	return out
}

func (c *Case) state(possible int, confidence float64, next string) State {
	return State{
		Solved:            c.solved(),
		Solution:          c.solution(),
		TotalCost:         c.totalCost,
		ActionsTaken:      c.actionsTaken,
		PossibleSolutions: possible,
		CurrentDomains:    c.domains.Clone(),
		Confidence:        confidence,
		Algorithm:         AlgorithmMove,
		NextBestAction:    next,
	}
}
