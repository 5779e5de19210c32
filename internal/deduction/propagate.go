package deduction

import "fmt"

// Kind selects how a constraint narrows a domain.
type Kind string

const (
	KindEliminate Kind = "eliminate"
	KindConfirm   Kind = "confirm"
)

// Constraint is one directed piece of evidence against a category.
type Constraint struct {
	Category Category `json:"category"`
	Value    string   `json:"value"`
	Kind     Kind     `json:"kind"`
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s=%s", c.Kind, c.Category, c.Value)
}

// Phase labels the stage that produced a Step.
type Phase string

const (
	PhaseElimination   Phase = "Elimination"
	PhaseConfirmation  Phase = "Confirmation"
	PhaseInconsistency Phase = "Inconsistency"
)

// StepKind is the coarse classification the UI colours steps by.
type StepKind string

const (
	StepElimination  StepKind = "elimination"
	StepConfirmation StepKind = "confirmation"
	StepError        StepKind = "error"
)

// Step is one entry of the reasoning trace. Steps are output only.
type Step struct {
	Phase   Phase    `json:"step"`
	Message string   `json:"message"`
	Kind    StepKind `json:"type"`
}

// MaxPropagationRounds caps the singleton propagation pass. With three
// categories of three values the fixed point arrives well before this.
const MaxPropagationRounds = 10

// Propagate replays the full constraint log against a copy of store, runs the
// singleton propagation pass and checks every domain is still non-empty.
// The input store is never modified. Replaying a constraint that already took
// effect is a no-op and emits no step.
func Propagate(store Store, constraints []Constraint) (Store, bool, []Step) {
	domains := store.Clone()
	var steps []Step

	for _, c := range constraints {
		if step, changed := apply(domains, c); changed {
			steps = append(steps, step)
		}
	}

	for round := 0; round < MaxPropagationRounds; round++ {
		changed := false
		for _, assigned := range categoryOrder {
			if len(domains[assigned]) != 1 {
				continue
			}
			value := domains[assigned][0]
			for _, other := range categoryOrder {
				if other == assigned {
					continue
				}
				candidates := domains[other]
				if len(candidates) <= 1 || !candidates.Contains(value) {
					continue
				}
				domains[other] = candidates.Without(value)
				changed = true
				steps = append(steps, Step{
					Phase:   PhaseElimination,
					Message: fmt.Sprintf("Removed %s from %s (already assigned to %s)", value, other, assigned),
					Kind:    StepElimination,
				})
			}
		}
		if !changed {
			break
		}
	}

	for _, c := range categoryOrder {
		if len(domains[c]) == 0 {
			steps = append(steps, Step{
				Phase:   PhaseInconsistency,
				Message: fmt.Sprintf("Domain of %s is empty - no solution possible", c),
				Kind:    StepError,
			})
			return domains, false, steps
		}
	}
	return domains, true, steps
}

func apply(domains Store, c Constraint) (Step, bool) {
	current := domains[c.Category]
	switch c.Kind {
	case KindEliminate:
		if !current.Contains(c.Value) {
			return Step{}, false
		}
		domains[c.Category] = current.Without(c.Value)
		return Step{
			Phase:   PhaseElimination,
			Message: fmt.Sprintf("Eliminated %s from %s", c.Value, c.Category),
			Kind:    StepElimination,
		}, true
	case KindConfirm:
		// A confirm never re-adds a value that was already eliminated.
		if len(current) <= 1 || !current.Contains(c.Value) {
			return Step{}, false
		}
		domains[c.Category] = Domain{c.Value}
		return Step{
			Phase:   PhaseConfirmation,
			Message: fmt.Sprintf("Confirmed %s as %s", c.Value, c.Category),
			Kind:    StepConfirmation,
		}, true
	}
	return Step{}, false
}
