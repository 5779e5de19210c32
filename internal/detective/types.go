package detective

import (
	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/evidence"
	"github.com/kingrea/casefile/internal/planner"
)

// TraceEntry is one line of the detective's reasoning: either a search
// decision or a propagation step relayed from the game.
type TraceEntry struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm,omitempty"`
	Step      string `json:"step,omitempty"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

// Suggestion is the planner's pick for a case, not yet taken.
type Suggestion struct {
	Action      evidence.Action
	Explanation string
	Evaluations []planner.Evaluation
}

// State is the detective's summary of a case after a move.
type State struct {
	Solved            bool                `json:"solved"`
	Solution          *deduction.Solution `json:"solution"`
	TotalCost         int                 `json:"total_cost"`
	ActionsTaken      int                 `json:"actions_taken"`
	PossibleSolutions int                 `json:"possible_solutions"`
	CurrentDomains    deduction.Store     `json:"current_domains"`
	Confidence        float64             `json:"confidence"`
	Algorithm         string              `json:"algorithm"`
	NextBestAction    string              `json:"next_best_action,omitempty"`
}

// TakenAction describes the action a move applied.
type TakenAction struct {
	Action    string `json:"action"`
	Clue      string `json:"clue"`
	Cost      int    `json:"cost"`
	Reasoning string `json:"reasoning"`

	// Steps is the propagation trace of the action, for local clients.
	Steps []deduction.Step `json:"-"`
}

// Move is the result of MakeMove. Taken is nil when the case was already
// solved and nothing was done.
type Move struct {
	State State        `json:"ai_state"`
	Taken *TakenAction `json:"action_taken"`
	Trace []TraceEntry `json:"algorithm_explanation"`
}

// PathStep is one action in an AutoSolve run.
type PathStep struct {
	Step      int    `json:"step"`
	Action    string `json:"action"`
	Clue      string `json:"clue"`
	Cost      int    `json:"cost"`
	Reasoning string `json:"reasoning"`
	Type      string `json:"type"`
	Algorithm string `json:"algorithm"`
	Message   string `json:"message"`
	Details   string `json:"details"`

	Steps []deduction.Step `json:"-"`
}

// AutoResult is the outcome of AutoSolve.
type AutoResult struct {
	Solved       bool                `json:"solved"`
	Solution     *deduction.Solution `json:"solution"`
	StepsTaken   int                 `json:"steps_taken"`
	TotalCost    int                 `json:"total_cost"`
	SolutionPath []PathStep          `json:"solution_path"`
	FinalDomains deduction.Store     `json:"final_domains"`
}
