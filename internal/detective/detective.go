// Package detective plays a case on its own: it asks the planner for the
// cheapest next action, takes it through the game, and keeps a per-case trace
// of what it searched and what the propagator concluded.
package detective

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/session"
)

// ErrNoActions is returned when a case has nothing left to investigate.
var ErrNoActions = errors.New("detective: no actions available")

// DefaultMaxAutoSteps bounds AutoSolve when no limit is configured.
const DefaultMaxAutoSteps = 15

// maxStaleRetries bounds how often one move replans after its pick was taken
// by someone else.
const maxStaleRetries = 3

// Algorithm names reported with every detective state.
const (
	AlgorithmSearch = "A* Search"
	AlgorithmMove   = "A* Search + CSP"
	AlgorithmAuto   = "A* + CSP"
)

// Game is the slice of the session service the detective drives.
type Game interface {
	Snapshot(id string) (session.Snapshot, error)
	ApplyAction(id string, actionID int) (session.Outcome, error)
}

// Logger is the minimal logging contract the detective needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Recorder receives detective activity for metrics.
type Recorder interface {
	DetectiveMoved(mode string)
}

// Detective keeps one Case per session.
type Detective struct {
	game         Game
	maxAutoSteps int
	logger       Logger
	recorder     Recorder

	mu    sync.Mutex
	cases map[string]*Case
}

// Option customizes a Detective.
type Option func(*Detective)

// WithMaxAutoSteps caps how many actions AutoSolve may take. Values <= 0 keep
// the default.
func WithMaxAutoSteps(n int) Option {
	return func(d *Detective) {
		if n > 0 {
			d.maxAutoSteps = n
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(d *Detective) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Detective) {
		if r != nil {
			d.recorder = r
		}
	}
}

// New returns a detective playing through game.
func New(game Game, opts ...Option) (*Detective, error) {
	if game == nil {
		return nil, fmt.Errorf("detective: game is required")
	}
	d := &Detective{
		game:         game,
		maxAutoSteps: DefaultMaxAutoSteps,
		logger:       nopLogger{},
		recorder:     nopRecorder{},
		cases:        map[string]*Case{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// MaxAutoSteps reports the AutoSolve cap in effect.
func (d *Detective) MaxAutoSteps() int {
	return d.maxAutoSteps
}

// Suggest scores the actions still on offer for id without taking any. It
// uses a throwaway case, so the cumulative cost starts from zero and nothing
// is recorded.
func (d *Detective) Suggest(id string) (Suggestion, error) {
	snap, err := d.game.Snapshot(id)
	if err != nil {
		return Suggestion{}, err
	}
	c := newCase(snap)
	pick, ok := c.choose(snap)
	if !ok {
		return Suggestion{}, fmt.Errorf("%w: %s", ErrNoActions, id)
	}
	return Suggestion{
		Action:      pick.action,
		Explanation: pick.explanation,
		Evaluations: pick.evaluations,
	}, nil
}

// MakeMove takes the single best action for id. The case persists between
// calls; once its domains are solved further calls report the solution
// without acting. Moves on one case are serialized and each one plans from
// a snapshot read under the case lock.
func (d *Detective) MakeMove(id string) (Move, error) {
	c, err := d.lockedCase(id)
	if err != nil {
		return Move{}, err
	}
	defer c.mu.Unlock()

	snap, err := d.game.Snapshot(id)
	if err != nil {
		return Move{}, err
	}
	if c.solved() {
		return Move{State: c.state(1, 1.0, ""), Trace: c.recent()}, nil
	}

	pick, outcome, err := d.take(id, c, snap)
	if err != nil {
		return Move{}, err
	}
	d.recorder.DetectiveMoved("move")
	d.logger.Printf("detective %s: %s", id, pick.explanation)

	next := ""
	if upcoming, ok := c.choose(outcome.Snapshot); ok {
		next = upcoming.action.Description
	}
	possible := outcome.Snapshot.GameState.PossibleSolutions
	return Move{
		State: c.state(possible, deduction.Confidence(possible), next),
		Taken: &TakenAction{
			Action:    outcome.Evidence.Description,
			Clue:      outcome.Evidence.Clue,
			Cost:      outcome.Evidence.Cost,
			Reasoning: pick.explanation,
			Steps:     outcome.Reasoning.Steps,
		},
		Trace: c.recent(),
	}, nil
}

// AutoSolve restarts the case for id from the current session state and
// keeps taking the best action until the domains are solved, nothing is
// left, or the step cap is reached.
func (d *Detective) AutoSolve(id string) (AutoResult, error) {
	c, err := d.lockedCase(id)
	if err != nil {
		return AutoResult{}, err
	}
	defer c.mu.Unlock()

	snap, err := d.game.Snapshot(id)
	if err != nil {
		return AutoResult{}, err
	}
	c.reset(snap)

	path := []PathStep{}
	for iteration := 1; iteration <= d.maxAutoSteps && !c.solved(); iteration++ {
		pick, outcome, err := d.take(id, c, snap)
		if errors.Is(err, ErrNoActions) {
			break
		}
		if err != nil {
			return AutoResult{}, err
		}
		snap = outcome.Snapshot
		d.recorder.DetectiveMoved("auto")
		path = append(path, PathStep{
			Step:      iteration,
			Action:    outcome.Evidence.Description,
			Clue:      outcome.Evidence.Clue,
			Cost:      outcome.Evidence.Cost,
			Reasoning: pick.explanation,
			Type:      "search",
			Algorithm: AlgorithmAuto,
			Message:   fmt.Sprintf("Step %d: %s", iteration, outcome.Evidence.Description),
			Details:   pick.explanation,
			Steps:     outcome.Reasoning.Steps,
		})
	}

	final, err := d.game.Snapshot(id)
	if err != nil {
		return AutoResult{}, err
	}
	d.logger.Printf("detective %s: auto-solve took %d actions (solved=%t, cost %d)", id, c.actionsTaken, c.solved(), c.totalCost)
	return AutoResult{
		Solved:       c.solved(),
		Solution:     c.solution(),
		StepsTaken:   c.actionsTaken,
		TotalCost:    c.totalCost,
		SolutionPath: path,
		FinalDomains: final.GameState.CurrentDomains,
	}, nil
}

// take plans from snap and applies the pick. When the pick is gone by the
// time it is applied (the player took it in between), the snapshot is read
// again and the plan redone, up to maxStaleRetries times.
func (d *Detective) take(id string, c *Case, snap session.Snapshot) (choice, session.Outcome, error) {
	for attempt := 0; ; attempt++ {
		pick, ok := c.choose(snap)
		if !ok {
			return choice{}, session.Outcome{}, fmt.Errorf("%w: %s", ErrNoActions, id)
		}
		outcome, err := d.game.ApplyAction(id, pick.action.ID)
		if err == nil {
			c.absorb(outcome)
			return pick, outcome, nil
		}
		if !errors.Is(err, session.ErrActionNotFound) || attempt >= maxStaleRetries {
			return choice{}, session.Outcome{}, err
		}
		d.logger.Printf("detective %s: %q was taken elsewhere, replanning", id, pick.action.Description)
		if snap, err = d.game.Snapshot(id); err != nil {
			return choice{}, session.Outcome{}, err
		}
	}
}

// Forget drops the case kept for id.
func (d *Detective) Forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cases, id)
}

// lockedCase returns the case for id with its lock held, creating it from
// the session's current state on first use. Unknown sessions leave nothing
// behind.
func (d *Detective) lockedCase(id string) (*Case, error) {
	d.mu.Lock()
	c, ok := d.cases[id]
	d.mu.Unlock()
	if !ok {
		snap, err := d.game.Snapshot(id)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		if c, ok = d.cases[id]; !ok {
			c = newCase(snap)
			d.cases[id] = c
		}
		d.mu.Unlock()
	}
	c.mu.Lock()
	return c, nil
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) DetectiveMoved(string) {}
