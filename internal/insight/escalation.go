package insight

import (
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// ambiguousSignalThreshold is the maximum absolute score component below
// which the rule signal is considered too weak to stand on its own.
const ambiguousSignalThreshold = 0.3

// ShouldEscalate decides whether an analysis needs the generative
// capability on top of rule evaluation. Pure function of its inputs; the
// catalog is only consulted for the requires_llm flag of applied rules.
//
// Triggers, in order:
//  1. detailed depth always escalates.
//  2. Any applied rule flagged requires_llm escalates.
//  3. An ambiguous rule signal (every component below the threshold)
//     escalates.
//  4. Otherwise escalate unless the depth is minimal.
func ShouldEscalate(summary *rules.Summary, depth blackboard.AnalysisDepth, catalog *rules.Catalog) bool {
	if depth == blackboard.DepthDetailed {
		return true
	}

	for _, code := range summary.AppliedRules {
		if rule, ok := catalog.Get(code); ok && rule.RequiresLLM {
			return true
		}
	}

	if summary.MaxAbsComponent() < ambiguousSignalThreshold {
		return true
	}

	return depth != blackboard.DepthMinimal
}
