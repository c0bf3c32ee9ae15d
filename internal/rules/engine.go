package rules

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/trellis/internal/hierarchy"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// Summary aggregates every rule result for one context. Slices are ordered
// by evaluation order (rule code order), with index i of AppliedRules
// matching index i of RuleReasoning.
type Summary struct {
	BaseScore       float64            `json:"base_score"`       // Sum of score_impact * base_weight over applied rules
	ScoreComponents map[string]float64 `json:"score_components"` // rule_code → raw score impact
	AppliedRules    []string           `json:"applied_rules"`    // Rule codes that actually fired, in order
	RuleReasoning   []string           `json:"rule_reasoning"`   // Reasoning strings, parallel to AppliedRules
	Recommendations []string           `json:"recommendations"`  // Rule-derived action suggestions, in order
}

// MaxAbsComponent returns the largest absolute raw score impact in the
// summary, or 0 when no rules fired. Used by the escalation policy to
// detect ambiguous rule signal.
func (s *Summary) MaxAbsComponent() float64 {
	max := 0.0
	for _, v := range s.ScoreComponents {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

// ComponentSpread returns max - min over the raw score components,
// or 0 when fewer than two rules fired.
func (s *Summary) ComponentSpread() float64 {
	if len(s.ScoreComponents) < 2 {
		return 0
	}
	first := true
	var min, max float64
	for _, v := range s.ScoreComponents {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

// HasComponent reports whether the given rule contributed to the summary.
func (s *Summary) HasComponent(ruleCode string) bool {
	_, ok := s.ScoreComponents[ruleCode]
	return ok
}

// Engine evaluates catalog rules against hierarchy contexts.
// Construction validates that every built-in catalog code has a registered
// evaluator; stored rules with unknown codes are skipped at evaluation time
// with a warning.
type Engine struct {
	catalog    *Catalog
	evaluators map[string]Evaluator
}

// NewEngine creates a rule engine over the given catalog with the built-in
// evaluators registered. Returns an error if a built-in rule definition has
// no evaluator, which would make the fallback catalog unusable.
func NewEngine(catalog *Catalog) (*Engine, error) {
	evaluators := builtinEvaluators()

	for _, r := range BuiltinRules() {
		if _, ok := evaluators[r.Code]; !ok {
			return nil, fmt.Errorf("built-in rule %q has no registered evaluator", r.Code)
		}
	}

	return &Engine{catalog: catalog, evaluators: evaluators}, nil
}

// Register adds (or replaces) an evaluator for a rule code. Intended for
// extensions that store additional rule definitions on the blackboard.
func (e *Engine) Register(code string, eval Evaluator) {
	e.evaluators[code] = eval
}

// Catalog returns the engine's rule catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Apply evaluates every active, applicable rule against the context and
// returns the aggregate summary. Pure with respect to its inputs: applying
// the same context twice yields an identical summary.
//
// Failure isolation: an unknown rule code is skipped with a warning; an
// evaluator that errors or panics is caught and its rule omitted. One bad
// rule never aborts the batch.
func (e *Engine) Apply(ctx context.Context, hctx *hierarchy.Context, entityType blackboard.EntityType) *Summary {
	summary := &Summary{
		ScoreComponents: make(map[string]float64),
		AppliedRules:    []string{},
		RuleReasoning:   []string{},
		Recommendations: []string{},
	}

	for _, rule := range e.catalog.Active(ctx, entityType) {
		eval, ok := e.evaluators[rule.Code]
		if !ok {
			log.Printf("[RuleEngine] No evaluator registered for rule %q, skipping", rule.Code)
			continue
		}

		res, err := safeEvaluate(eval, hctx)
		if err != nil {
			log.Printf("[RuleEngine] Rule %q failed: %v (omitting from summary)", rule.Code, err)
			continue
		}

		summary.BaseScore += res.ScoreImpact * rule.BaseWeight
		summary.ScoreComponents[rule.Code] = res.ScoreImpact
		summary.AppliedRules = append(summary.AppliedRules, rule.Code)
		summary.RuleReasoning = append(summary.RuleReasoning, res.Reasoning)
		if res.Recommendation != "" {
			summary.Recommendations = append(summary.Recommendations, res.Recommendation)
		}
	}

	return summary
}

// safeEvaluate runs an evaluator, converting panics into errors so a
// misbehaving rule cannot take down an analysis.
func safeEvaluate(eval Evaluator, hctx *hierarchy.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panicked: %v", r)
		}
	}()
	return eval(hctx)
}
