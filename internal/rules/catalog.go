// Package rules implements the deterministic half of the reasoning engine:
// a cached catalog of rule definitions and an engine that dispatches each
// rule code to a pure evaluator function over a hierarchy context.
package rules

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// CatalogStore is the narrow read contract the catalog needs.
// *blackboard.Client satisfies it.
type CatalogStore interface {
	ListRules(ctx context.Context) ([]*blackboard.Rule, error)
}

// Catalog is an explicit, injected cache of rule definitions. It is
// populated at most once per process (on first use) and thereafter
// read-only, so concurrent readers need no coordination beyond the
// internal lock. Refresh re-fetches explicitly, for tests and for
// operators who have just changed stored rules.
//
// When the store is unreachable or holds no active rules, the catalog
// falls back to the built-in default set so analysis always has rules
// to work with.
type Catalog struct {
	store CatalogStore

	mu       sync.RWMutex
	rules    map[string]*blackboard.Rule
	loaded   bool
	fallback bool // true when the built-in defaults are in use
}

// NewCatalog creates a catalog backed by the given store.
// A nil store always serves the built-in defaults.
func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store}
}

// BuiltinRules returns the built-in default rule set used when the store
// is unavailable. Two rules: due-date urgency for tasks, and pillar
// alignment for tasks, projects and areas.
func BuiltinRules() []*blackboard.Rule {
	return []*blackboard.Rule{
		{
			Code:       RuleCodePriorityByDueDate,
			AppliesTo:  []blackboard.EntityType{blackboard.EntityTypeTask},
			IsActive:   true,
			BaseWeight: defaultBaseWeight,
		},
		{
			Code: RuleCodeAlignmentWithPillar,
			AppliesTo: []blackboard.EntityType{
				blackboard.EntityTypeTask,
				blackboard.EntityTypeProject,
				blackboard.EntityTypeArea,
			},
			IsActive:   true,
			BaseWeight: defaultBaseWeight,
		},
	}
}

// defaultBaseWeight applies to rules that do not specify a weight.
const defaultBaseWeight = 0.5

// ensureLoaded populates the cache on first use. Safe for concurrent callers;
// a refresh race re-fetches redundantly but never corrupts.
func (c *Catalog) ensureLoaded(ctx context.Context) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}
	c.Refresh(ctx)
}

// Refresh re-fetches rule definitions from the store, falling back to the
// built-in defaults on error or when no active rules exist.
func (c *Catalog) Refresh(ctx context.Context) {
	rules, fallback := c.fetch(ctx)

	byCode := make(map[string]*blackboard.Rule, len(rules))
	for _, r := range rules {
		if r.BaseWeight == 0 {
			// Stored rules without an explicit weight get the default
			copied := *r
			copied.BaseWeight = defaultBaseWeight
			r = &copied
		}
		byCode[r.Code] = r
	}

	c.mu.Lock()
	c.rules = byCode
	c.loaded = true
	c.fallback = fallback
	c.mu.Unlock()
}

func (c *Catalog) fetch(ctx context.Context) (rules []*blackboard.Rule, fallback bool) {
	if c.store == nil {
		return BuiltinRules(), true
	}

	stored, err := c.store.ListRules(ctx)
	if err != nil {
		log.Printf("[Catalog] Failed to load rules from store: %v (using built-in defaults)", err)
		return BuiltinRules(), true
	}

	active := 0
	for _, r := range stored {
		if r.IsActive {
			active++
		}
	}
	if active == 0 {
		log.Printf("[Catalog] No active rules in store, using built-in defaults")
		return BuiltinRules(), true
	}

	return stored, false
}

// Active returns the active rules applicable to the given entity type,
// sorted by code for deterministic evaluation order. Loads the catalog on
// first use.
func (c *Catalog) Active(ctx context.Context, entityType blackboard.EntityType) []*blackboard.Rule {
	c.ensureLoaded(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*blackboard.Rule
	for _, r := range c.rules {
		if r.IsActive && r.AppliesToType(entityType) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Get returns the cached definition for a rule code. It reads only the
// cache and never triggers a load: callers are expected to have evaluated
// rules (and therefore loaded the catalog) first.
func (c *Catalog) Get(code string) (*blackboard.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rules[code]
	return r, ok
}

// UsingFallback reports whether the built-in default rules are in use.
func (c *Catalog) UsingFallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallback
}

// All returns every cached rule sorted by code, loading on first use.
// Used by the CLI to display the effective catalog.
func (c *Catalog) All(ctx context.Context) []*blackboard.Rule {
	c.ensureLoaded(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*blackboard.Rule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
