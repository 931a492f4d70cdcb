package rules

import (
	"fmt"
	"sync"

	"github.com/solatis/cdiscengine/internal/operations"
	"github.com/solatis/cdiscengine/internal/types"
)

// Catalog holds the validated rules of a run, indexed by core id. It is safe
// for concurrent use; Reload swaps the whole set atomically.
type Catalog struct {
	registry *operations.Registry

	mu       sync.RWMutex
	rules    []types.Rule
	byID     map[string]int
	rejected []Rejection
}

// Rejection records a rule left out of the catalog.
type Rejection struct {
	CoreID string `json:"core_id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// NewCatalog creates an empty catalog validating against registry.
func NewCatalog(registry *operations.Registry) *Catalog {
	return &Catalog{registry: registry, byID: make(map[string]int)}
}

// Reload loads rules from paths and replaces the catalog contents with the
// valid ones. A file that cannot be loaded keeps the previous contents.
func (c *Catalog) Reload(paths []string) ([]Rejection, error) {
	loaded, err := LoadPaths(paths)
	if err != nil {
		return nil, err
	}
	return c.Set(loaded), nil
}

// Set validates each rule on its own and replaces the catalog contents with
// the rules that pass. Invalid rules and repeated core ids are returned as
// rejections; they never affect the other rules.
func (c *Catalog) Set(rules []types.Rule) []Rejection {
	kept := make([]types.Rule, 0, len(rules))
	byID := make(map[string]int, len(rules))
	var rejected []Rejection
	for i := range rules {
		err := Validate(&rules[i], c.registry)
		if err == nil {
			if _, dup := byID[rules[i].CoreID]; dup {
				err = fmt.Errorf("%w: duplicate core_id %q", types.ErrInvalidRule, rules[i].CoreID)
			}
		}
		if err != nil {
			rejected = append(rejected, Rejection{CoreID: rules[i].CoreID, Reason: err.Error(), Err: err})
			continue
		}
		byID[rules[i].CoreID] = len(kept)
		kept = append(kept, rules[i])
	}

	c.mu.Lock()
	c.rules = kept
	c.byID = byID
	c.rejected = rejected
	c.mu.Unlock()
	return rejected
}

// Rejected returns the rejections of the last Set.
func (c *Catalog) Rejected() []Rejection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Rejection(nil), c.rejected...)
}

// Get returns the rule with the given core id.
func (c *Catalog) Get(coreID string) (types.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[coreID]
	if !ok {
		return types.Rule{}, false
	}
	return c.rules[i], true
}

// List returns the rules declaring standard (and version, when set).
func (c *Catalog) List(standard, version string) []types.Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := FilterByStandard(c.rules, standard, version)
	return append([]types.Rule(nil), out...)
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}
