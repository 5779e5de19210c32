// Package evidence owns the investigation catalog, the clue each action
// reveals for a given hidden solution, and the keyword table that turns a
// clue into domain constraints.
package evidence

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/casefile/internal/deduction"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Action is one investigation step a player or the detective can take.
// Clue is empty until the catalog is dealt against a solution.
type Action struct {
	ID          int    `json:"id" yaml:"id"`
	Description string `json:"action" yaml:"action"`
	Cost        int    `json:"cost" yaml:"cost"`
	Clue        string `json:"clue,omitempty" yaml:"-"`
}

// Public strips the clue so the action can be shown before it is taken.
func (a Action) Public() Action {
	a.Clue = ""
	return a
}

// Catalog is the ordered list of actions available at the start of a case.
type Catalog struct {
	Version int      `yaml:"version"`
	Actions []Action `yaml:"actions"`
}

// DefaultCatalog returns the built-in twelve-action catalog.
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalogYAML(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("evidence: embedded catalog invalid: %v", err))
	}
	return catalog
}

// ParseCatalogYAML decodes and validates a catalog payload.
func ParseCatalogYAML(data []byte) (Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Catalog{}, fmt.Errorf("evidence: catalog payload is empty")
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("evidence: decode catalog: %w", err)
	}
	catalog = catalog.normalized()
	if err := catalog.Validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

// Validate rejects catalogs with blank actions, non-positive costs or
// duplicate ids.
func (c Catalog) Validate() error {
	if len(c.Actions) == 0 {
		return fmt.Errorf("evidence: catalog has no actions")
	}
	seen := make(map[int]struct{}, len(c.Actions))
	for i, action := range c.Actions {
		if action.ID <= 0 {
			return fmt.Errorf("evidence: actions[%d]: id must be positive", i)
		}
		if _, dup := seen[action.ID]; dup {
			return fmt.Errorf("evidence: actions[%d]: duplicate id %d", i, action.ID)
		}
		seen[action.ID] = struct{}{}
		if action.Description == "" {
			return fmt.Errorf("evidence: actions[%d]: action text is required", i)
		}
		if action.Cost <= 0 {
			return fmt.Errorf("evidence: actions[%d]: cost must be positive", i)
		}
	}
	return nil
}

// Deal returns a copy of the catalog's actions with each clue filled in for
// the given hidden solution.
func (c Catalog) Deal(solution deduction.Solution) []Action {
	out := make([]Action, len(c.Actions))
	for i, action := range c.Actions {
		action.Clue = Clue(action.Description, solution)
		out[i] = action
	}
	return out
}

func (c Catalog) normalized() Catalog {
	clone := Catalog{Version: c.Version}
	if clone.Version == 0 {
		clone.Version = 1
	}
	clone.Actions = make([]Action, len(c.Actions))
	for i, action := range c.Actions {
		action.Description = strings.TrimSpace(action.Description)
		clone.Actions[i] = action
	}
	return clone
}
