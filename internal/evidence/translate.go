package evidence

import (
	"fmt"
	"strings"

	"github.com/kingrea/casefile/internal/deduction"
)

// keywordFamily maps clue phrases to a constraint kind for one category. The
// action text picks which value in the category the constraint targets.
type keywordFamily struct {
	category deduction.Category
	kind     deduction.Kind
	keywords []string
	targets  []string
}

// The table is fixed game balance. Families are checked in this order and
// more than one may fire for the same clue.
var keywordFamilies = []keywordFamily{
	{
		category: deduction.CategorySuspect,
		kind:     deduction.KindConfirm,
		keywords: []string{"nervous", "near the crime scene", "missing"},
		targets:  []string{"Butler", "Chef", "Gardener"},
	},
	{
		category: deduction.CategorySuspect,
		kind:     deduction.KindEliminate,
		keywords: []string{"alibi", "kitchen all evening", "working outside"},
		targets:  []string{"Butler", "Chef", "Gardener"},
	},
	{
		category: deduction.CategoryLocation,
		kind:     deduction.KindConfirm,
		keywords: []string{"struggle", "scattered", "footprints"},
		targets:  []string{"Kitchen", "Library", "Garden"},
	},
	{
		category: deduction.CategoryLocation,
		kind:     deduction.KindEliminate,
		keywords: []string{"undisturbed", "pristine", "no signs"},
		targets:  []string{"Kitchen", "Library", "Garden"},
	},
	{
		category: deduction.CategoryWeapon,
		kind:     deduction.KindConfirm,
		keywords: []string{"blood", "empty", "recent use"},
		targets:  []string{"Knife", "Poison", "Rope"},
	},
	{
		category: deduction.CategoryWeapon,
		kind:     deduction.KindEliminate,
		keywords: []string{"clean", "sealed and full", "unused"},
		targets:  []string{"Knife", "Poison", "Rope"},
	},
}

// Translate turns an action and the clue it revealed into constraints.
// Generic actions (alibis, footage, fingerprints) name no entity and yield
// nothing.
func Translate(action, clue string) []deduction.Constraint {
	lowerAction := strings.ToLower(action)
	lowerClue := strings.ToLower(clue)
	var out []deduction.Constraint
	for _, family := range keywordFamilies {
		if !containsAny(lowerClue, family.keywords) {
			continue
		}
		target, ok := firstTarget(lowerAction, family.targets)
		if !ok {
			continue
		}
		out = append(out, deduction.Constraint{
			Category: family.category,
			Value:    target,
			Kind:     family.kind,
		})
	}
	return out
}

// Explain renders the narrative step shown when a translated constraint is
// accepted into the case log.
func Explain(c deduction.Constraint) deduction.Step {
	confirm := c.Kind == deduction.KindConfirm
	var message string
	switch c.Category {
	case deduction.CategorySuspect:
		if confirm {
			message = fmt.Sprintf("Strong evidence points to %s as suspect", c.Value)
		} else {
			message = fmt.Sprintf("%s eliminated as suspect due to alibi", c.Value)
		}
	case deduction.CategoryLocation:
		if confirm {
			message = fmt.Sprintf("Evidence confirms %s as crime location", c.Value)
		} else {
			message = fmt.Sprintf("%s eliminated as crime location", c.Value)
		}
	case deduction.CategoryWeapon:
		if confirm {
			message = fmt.Sprintf("Evidence confirms %s as murder weapon", c.Value)
		} else {
			message = fmt.Sprintf("%s eliminated as murder weapon", c.Value)
		}
	default:
		message = c.String()
	}
	if confirm {
		return deduction.Step{Phase: deduction.PhaseConfirmation, Message: message, Kind: deduction.StepConfirmation}
	}
	return deduction.Step{Phase: deduction.PhaseElimination, Message: message, Kind: deduction.StepElimination}
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func firstTarget(action string, targets []string) (string, bool) {
	for _, target := range targets {
		if strings.Contains(action, strings.ToLower(target)) {
			return target, true
		}
	}
	return "", false
}
