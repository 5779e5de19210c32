// Package session orchestrates cases: it owns the hidden solution, the
// domains, the constraint log and the action lists, and is the only caller of
// the deduction, evidence and planner packages that mutates anything.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/evidence"
)

// ErrActionNotFound is returned when an action id is not available in a case,
// either because it never existed or because it was already taken.
var ErrActionNotFound = errors.New("session: action not available")

// Logger is the minimal logging contract the service needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Recorder receives case activity for metrics.
type Recorder interface {
	SessionStarted()
	ActionApplied(constraintKinds []string, consistent bool)
	Accused(correct bool)
}

// Service coordinates case lifecycles on top of a Store.
type Service struct {
	store    Store
	catalog  evidence.Catalog
	clock    func() time.Time
	newID    func() string
	logger   Logger
	recorder Recorder

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customizes the service.
type Option func(*Service)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRand fixes the source used to draw hidden solutions.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithIDGenerator overrides how ids are minted for cases started without one.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithCatalog replaces the built-in action catalog.
func WithCatalog(catalog evidence.Catalog) Option {
	return func(s *Service) {
		if len(catalog.Actions) > 0 {
			s.catalog = catalog
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New wires a service to its store.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	s := &Service{
		store:    store,
		catalog:  evidence.DefaultCatalog(),
		clock:    time.Now,
		newID:    func() string { return "session-" + uuid.NewString() },
		logger:   nopLogger{},
		recorder: nopRecorder{},
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start opens a case under id, or under a fresh id when id is blank. An
// existing case with the same id is replaced.
func (s *Service) Start(id string) (Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = s.newID()
	}
	solution := s.drawSolution()
	now := s.clock()
	domains := deduction.NewStore()
	state := State{
		ID:                id,
		Solution:          solution,
		Domains:           domains,
		Available:         s.catalog.Deal(solution),
		TotalCost:         0,
		PossibleSolutions: domains.PossibleSolutions(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.store.Put(state)
	s.recorder.SessionStarted()
	s.logger.Printf("session %s: case opened with %d actions", id, len(state.Available))
	return state.snapshot(), nil
}

// Snapshot returns the public view of a case.
func (s *Service) Snapshot(id string) (Snapshot, error) {
	state, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return state.snapshot(), nil
}

// ApplyAction takes an available action: it moves the action to the taken
// list, charges its cost, translates its clue into constraints, appends them
// to the case log and re-runs propagation over the whole log.
func (s *Service) ApplyAction(id string, actionID int) (Outcome, error) {
	var outcome Outcome
	state, err := s.store.Update(id, func(st *State) error {
		idx := indexOfAction(st.Available, actionID)
		if idx < 0 {
			return fmt.Errorf("%w: %d in %s", ErrActionNotFound, actionID, id)
		}
		action := st.Available[idx]
		st.Available = append(st.Available[:idx:idx], st.Available[idx+1:]...)
		st.Taken = append(st.Taken, action)
		st.TotalCost += action.Cost

		constraints := evidence.Translate(action.Description, action.Clue)
		reasoning := Reasoning{ConstraintsApplied: len(constraints), Consistent: true, Steps: []deduction.Step{}}
		if len(constraints) > 0 {
			for _, c := range constraints {
				reasoning.Steps = append(reasoning.Steps, evidence.Explain(c))
			}
			st.Constraints = append(st.Constraints, constraints...)
			domains, consistent, steps := deduction.Propagate(st.Domains, st.Constraints)
			st.Domains = domains
			reasoning.Consistent = consistent
			reasoning.Steps = append(reasoning.Steps, steps...)
		}
		st.PossibleSolutions = st.Domains.PossibleSolutions()
		st.UpdatedAt = s.clock()
		outcome = Outcome{Evidence: action, Reasoning: reasoning}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	kinds := make([]string, 0, outcome.Reasoning.ConstraintsApplied)
	for _, c := range state.Constraints[len(state.Constraints)-outcome.Reasoning.ConstraintsApplied:] {
		kinds = append(kinds, string(c.Kind))
	}
	s.recorder.ActionApplied(kinds, outcome.Reasoning.Consistent)
	if !outcome.Reasoning.Consistent {
		s.logger.Printf("session %s: domains inconsistent after %q", id, outcome.Evidence.Description)
	}
	s.logger.Printf("session %s: took %q (cost %d, %d constraints, %d possible)",
		id, outcome.Evidence.Description, outcome.Evidence.Cost, outcome.Reasoning.ConstraintsApplied, state.PossibleSolutions)
	outcome.Snapshot = state.snapshot()
	return outcome, nil
}

// Accuse compares a guess with the hidden solution. The case stays open.
func (s *Service) Accuse(id string, guess deduction.Solution) (Verdict, error) {
	state, err := s.store.Get(id)
	if err != nil {
		return Verdict{}, err
	}
	correct := state.Solution.Matches(guess)
	s.recorder.Accused(correct)
	s.logger.Printf("session %s: accused %s (correct=%t)", id, guess, correct)
	return Verdict{
		Correct:      correct,
		Solution:     state.Solution,
		TotalCost:    state.TotalCost,
		ActionsTaken: len(state.Taken),
	}, nil
}

// End discards a case.
func (s *Service) End(id string) {
	s.store.Delete(id)
}

// Len reports how many cases the store currently holds.
func (s *Service) Len() int {
	return s.store.Len()
}

func (s *Service) drawSolution() deduction.Solution {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	pick := func(c deduction.Category) string {
		values := deduction.Universe(c)
		return values[s.rng.IntN(len(values))]
	}
	return deduction.Solution{
		Suspect:  pick(deduction.CategorySuspect),
		Weapon:   pick(deduction.CategoryWeapon),
		Location: pick(deduction.CategoryLocation),
	}
}

func indexOfAction(actions []evidence.Action, id int) int {
	for i, action := range actions {
		if action.ID == id {
			return i
		}
	}
	return -1
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()              {}
func (nopRecorder) ActionApplied([]string, bool) {}
func (nopRecorder) Accused(bool)                 {}
