package deduction

import "fmt"

// Category identifies one of the three fixed case variables.
type Category string

const (
	CategorySuspect  Category = "suspect"
	CategoryWeapon   Category = "weapon"
	CategoryLocation Category = "location"
)

// TotalSolutions is the size of the full search space (3 × 3 × 3).
const TotalSolutions = 27

var categoryOrder = []Category{CategorySuspect, CategoryWeapon, CategoryLocation}

var universes = map[Category][]string{
	CategorySuspect:  {"Butler", "Chef", "Gardener"},
	CategoryWeapon:   {"Knife", "Poison", "Rope"},
	CategoryLocation: {"Kitchen", "Library", "Garden"},
}

// Categories returns the categories in their canonical scan order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Universe returns the fixed value set for a category.
func Universe(c Category) []string {
	values := universes[c]
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	_, ok := universes[c]
	return ok
}

// Domain is the ordered list of remaining candidates for one category.
type Domain []string

// Contains reports whether value is still a candidate.
func (d Domain) Contains(value string) bool {
	for _, v := range d {
		if v == value {
			return true
		}
	}
	return false
}

// Without returns a copy of d with value removed.
func (d Domain) Without(value string) Domain {
	out := make(Domain, 0, len(d))
	for _, v := range d {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns an independent copy of d.
func (d Domain) Clone() Domain {
	out := make(Domain, len(d))
	copy(out, d)
	return out
}

// Store maps every category to its domain. Build one with NewStore; the
// three categories are always present.
type Store map[Category]Domain

// NewStore returns a store holding the full universe for every category.
func NewStore() Store {
	s := make(Store, len(categoryOrder))
	for _, c := range categoryOrder {
		s[c] = Domain(Universe(c))
	}
	return s
}

// Clone deep-copies the store so callers can replace rather than mutate.
func (s Store) Clone() Store {
	out := make(Store, len(categoryOrder))
	for _, c := range categoryOrder {
		out[c] = s[c].Clone()
	}
	return out
}

// PossibleSolutions is the product of the domain sizes.
func (s Store) PossibleSolutions() int {
	count := 1
	for _, c := range categoryOrder {
		count *= len(s[c])
	}
	return count
}

// IsSolved reports whether every category is down to a single candidate.
func (s Store) IsSolved() bool {
	return IsSolved(s)
}

// Solution returns the determined triple once the store is solved.
func (s Store) Solution() (Solution, bool) {
	if !s.IsSolved() {
		return Solution{}, false
	}
	return Solution{
		Suspect:  s[CategorySuspect][0],
		Weapon:   s[CategoryWeapon][0],
		Location: s[CategoryLocation][0],
	}, true
}

// IsSolved reports whether every category's domain has exactly one value.
func IsSolved(s Store) bool {
	for _, c := range categoryOrder {
		if len(s[c]) != 1 {
			return false
		}
	}
	return true
}

// Confidence maps the remaining solution count onto [0,1] against the full
// search space. Callers guarantee possible <= TotalSolutions; no clamping.
func Confidence(possible int) float64 {
	return 1.0 - float64(possible)/float64(TotalSolutions)
}

// Solution is one concrete suspect/weapon/location triple.
type Solution struct {
	Suspect  string `json:"suspect"`
	Weapon   string `json:"weapon"`
	Location string `json:"location"`
}

// Value returns the solution's value for category c.
func (s Solution) Value(c Category) string {
	switch c {
	case CategorySuspect:
		return s.Suspect
	case CategoryWeapon:
		return s.Weapon
	case CategoryLocation:
		return s.Location
	}
	return ""
}

// Matches reports whether every field of other equals s.
func (s Solution) Matches(other Solution) bool {
	return s == other
}

func (s Solution) String() string {
	return fmt.Sprintf("%s with the %s in the %s", s.Suspect, s.Weapon, s.Location)
}
