package evidence

import (
	"fmt"
	"strings"

	"github.com/kingrea/casefile/internal/deduction"
)

// clueRule pairs an action keyword with the clue shown when the named value
// is (guilty) or is not (innocent) part of the solution.
type clueRule struct {
	keyword  string
	category deduction.Category
	value    string
	guilty   string
	innocent string
}

// Order matters: "gardener" must be tried before "garden".
var clueRules = []clueRule{
	{"butler", deduction.CategorySuspect, "Butler", "The Butler seems nervous and avoids eye contact.", "The Butler has a solid alibi."},
	{"chef", deduction.CategorySuspect, "Chef", "The Chef was seen near the crime scene.", "The Chef was in the kitchen all evening."},
	{"gardener", deduction.CategorySuspect, "Gardener", "The Gardener's tools are missing.", "The Gardener was working outside."},
	{"kitchen", deduction.CategoryLocation, "Kitchen", "Signs of struggle found in the Kitchen.", "The Kitchen appears undisturbed."},
	{"library", deduction.CategoryLocation, "Library", "Books are scattered in the Library.", "The Library is pristine."},
	{"garden", deduction.CategoryLocation, "Garden", "Footprints found in the Garden.", "The Garden shows no signs of disturbance."},
	{"knife", deduction.CategoryWeapon, "Knife", "The Knife has traces of blood.", "The Knife is clean."},
	{"poison", deduction.CategoryWeapon, "Poison", "Poison bottle found partially empty.", "Poison bottle is sealed and full."},
	{"rope", deduction.CategoryWeapon, "Rope", "Rope shows signs of recent use.", "The Rope is neatly coiled and unused."},
}

const genericClue = "Investigation reveals some useful information."

// Clue returns the text an action reveals when the hidden solution is
// solution. The result is fully determined by its inputs.
func Clue(action string, solution deduction.Solution) string {
	lower := strings.ToLower(action)
	for _, rule := range clueRules {
		if !strings.Contains(lower, rule.keyword) {
			continue
		}
		if solution.Value(rule.category) == rule.value {
			return rule.guilty
		}
		return rule.innocent
	}
	switch {
	case strings.Contains(lower, "alibi"):
		return "One suspect's alibi doesn't check out."
	case strings.Contains(lower, "footage"):
		return fmt.Sprintf("Camera shows someone near the %s.", solution.Location)
	case strings.Contains(lower, "fingerprint"):
		return fmt.Sprintf("Fingerprints match someone who frequents the %s.", solution.Location)
	}
	return genericClue
}
