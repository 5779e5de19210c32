package session

import (
	"time"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/evidence"
)

// State is everything the orchestrator owns for one case. The constraint log
// is append-only and replayed in full on every propagation.
type State struct {
	ID                string
	Solution          deduction.Solution
	Domains           deduction.Store
	Available         []evidence.Action
	Taken             []evidence.Action
	TotalCost         int
	Constraints       []deduction.Constraint
	PossibleSolutions int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone deep-copies the state so stores never hand out shared slices.
func (s State) Clone() State {
	out := s
	out.Domains = s.Domains.Clone()
	out.Available = cloneActions(s.Available)
	out.Taken = cloneActions(s.Taken)
	if len(s.Constraints) > 0 {
		out.Constraints = make([]deduction.Constraint, len(s.Constraints))
		copy(out.Constraints, s.Constraints)
	}
	return out
}

// GameState is the public view of a case, without the hidden solution.
type GameState struct {
	CurrentDomains    deduction.Store   `json:"current_domains"`
	TotalCost         int               `json:"total_cost"`
	ActionsTaken      []evidence.Action `json:"actions_taken"`
	PossibleSolutions int               `json:"possible_solutions"`
	ConstraintsCount  int               `json:"constraints_count"`
}

// Snapshot pairs the public game state with the actions still on offer.
// Available actions never carry their clue.
type Snapshot struct {
	SessionID        string            `json:"session_id"`
	GameState        GameState         `json:"game_state"`
	AvailableActions []evidence.Action `json:"available_actions"`
}

// Solved reports whether every category is determined.
func (s Snapshot) Solved() bool {
	return deduction.IsSolved(s.GameState.CurrentDomains)
}

// Confidence reports how much of the search space has been ruled out.
func (s Snapshot) Confidence() float64 {
	return deduction.Confidence(s.GameState.PossibleSolutions)
}

// Reasoning summarizes what one action did to the domains.
type Reasoning struct {
	ConstraintsApplied int              `json:"constraints_applied"`
	Consistent         bool             `json:"consistent"`
	Steps              []deduction.Step `json:"steps"`
}

// Outcome is returned after an action has been applied.
type Outcome struct {
	Evidence  evidence.Action `json:"evidence"`
	Reasoning Reasoning       `json:"csp_result"`
	Snapshot  Snapshot        `json:"-"`
}

// Verdict is the result of an accusation.
type Verdict struct {
	Correct      bool               `json:"correct"`
	Solution     deduction.Solution `json:"solution"`
	TotalCost    int                `json:"total_cost"`
	ActionsTaken int                `json:"actions_taken"`
}

func (s State) snapshot() Snapshot {
	available := make([]evidence.Action, len(s.Available))
	for i, action := range s.Available {
		available[i] = action.Public()
	}
	taken := cloneActions(s.Taken)
	if taken == nil {
		taken = []evidence.Action{}
	}
	return Snapshot{
		SessionID: s.ID,
		GameState: GameState{
			CurrentDomains:    s.Domains.Clone(),
			TotalCost:         s.TotalCost,
			ActionsTaken:      taken,
			PossibleSolutions: s.PossibleSolutions,
			ConstraintsCount:  len(s.Constraints),
		},
		AvailableActions: available,
	}
}

func cloneActions(values []evidence.Action) []evidence.Action {
	if len(values) == 0 {
		return nil
	}
	out := make([]evidence.Action, len(values))
	copy(out, values)
	return out
}
