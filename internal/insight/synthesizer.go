package insight

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/trellis/internal/augment"
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// Score thresholds used for classification, titles and tagging.
const (
	strongSignalThreshold = 0.8
	weakSignalThreshold   = -0.2
	highTagThreshold      = 0.8
)

// expiryByType pins how long each insight type stays fresh. Types not
// listed never expire.
var expiryByType = map[blackboard.InsightType]time.Duration{
	blackboard.InsightTypePriority:       6 * time.Hour,
	blackboard.InsightTypeObstacle:       24 * time.Hour,
	blackboard.InsightTypePattern:        7 * 24 * time.Hour,
	blackboard.InsightTypeAlignment:      3 * 24 * time.Hour,
	blackboard.InsightTypeRecommendation: 24 * time.Hour,
}

// impactByEntityType is the base impact of an insight per level of the
// hierarchy: the broader the scope, the higher the stakes.
var impactByEntityType = map[blackboard.EntityType]float64{
	blackboard.EntityTypePillar:  0.9,
	blackboard.EntityTypeArea:    0.7,
	blackboard.EntityTypeProject: 0.6,
	blackboard.EntityTypeTask:    0.4,
	blackboard.EntityTypeGlobal:  1.0,
}

// Synthesize merges rule output and optional augmentation output into one
// immutable insight. aug is nil when the generative capability was not
// invoked.
func Synthesize(userID string, entityType blackboard.EntityType, entityID string, summary *rules.Summary, aug *augment.Result, now time.Time) *blackboard.Insight {
	insightType := classify(summary, aug)
	title, headline := titleAndSummary(entityType, summary.BaseScore)

	reasoning := &Reasoning{Rules: summary, Augmentation: aug}
	payload, err := reasoning.Encode()
	if err != nil {
		log.Printf("[Synthesizer] Failed to encode reasoning payload: %v", err)
		payload = "{}"
	}

	ins := &blackboard.Insight{
		ID:                uuid.New().String(),
		UserID:            userID,
		EntityType:        entityType,
		EntityID:          entityID,
		InsightType:       insightType,
		Title:             title,
		Summary:           headline,
		DetailedReasoning: payload,
		ConfidenceScore:   confidence(summary, aug),
		ImpactScore:       impact(entityType, summary.BaseScore),
		ReasoningPath:     reasoningPath(summary),
		Recommendations:   mergeRecommendations(summary, aug),
		CreatedAtMs:       now.UnixMilli(),
	}

	if ttl, ok := expiryByType[insightType]; ok {
		ins.ExpiresAtMs = now.Add(ttl).UnixMilli()
	}

	ins.Tags = []string{string(entityType), string(insightType)}
	if ins.ConfidenceScore > highTagThreshold {
		ins.Tags = append(ins.Tags, "high_confidence")
	}
	if ins.ImpactScore > highTagThreshold {
		ins.Tags = append(ins.Tags, "high_impact")
	}

	return ins
}

// classify picks the insight type from the strongest available signal:
// an obstacle reported by augmentation wins, then a decisive base score,
// then the presence of an alignment component.
func classify(summary *rules.Summary, aug *augment.Result) blackboard.InsightType {
	if aug != nil && aug.ObstacleSignal {
		return blackboard.InsightTypeObstacle
	}
	if summary.BaseScore > strongSignalThreshold {
		return blackboard.InsightTypePriority
	}
	if summary.HasComponent(rules.RuleCodeAlignmentWithPillar) {
		return blackboard.InsightTypeAlignment
	}
	return blackboard.InsightTypeRecommendation
}

func titleAndSummary(entityType blackboard.EntityType, baseScore float64) (string, string) {
	label := entityLabel(entityType)
	switch {
	case baseScore > strongSignalThreshold:
		return fmt.Sprintf("High Priority %s", label),
			fmt.Sprintf("The rule evaluation strongly favours acting on this %s now (base score %.2f).", entityType, baseScore)
	case baseScore < weakSignalThreshold:
		return fmt.Sprintf("Low Priority %s", label),
			fmt.Sprintf("The rule evaluation suggests deprioritizing this %s for now (base score %.2f).", entityType, baseScore)
	default:
		return fmt.Sprintf("Balanced %s", label),
			fmt.Sprintf("The rule evaluation is mixed for this %s (base score %.2f); judgement is needed.", entityType, baseScore)
	}
}

func entityLabel(entityType blackboard.EntityType) string {
	switch entityType {
	case blackboard.EntityTypePillar:
		return "Pillar"
	case blackboard.EntityTypeArea:
		return "Area"
	case blackboard.EntityTypeProject:
		return "Project"
	case blackboard.EntityTypeTask:
		return "Task"
	case blackboard.EntityTypeGlobal:
		return "Overview"
	default:
		return string(entityType)
	}
}

// confidence starts from a fixed base and moves with the evidence: more
// applied rules and a successful augmentation raise it, a wide spread of
// rule components lowers it. Always clamped to [0,1].
func confidence(summary *rules.Summary, aug *augment.Result) float64 {
	score := 0.7

	if aug != nil && aug.Available {
		score += 0.1
	}

	ruleBonus := 0.05 * float64(len(summary.AppliedRules))
	if ruleBonus > 0.2 {
		ruleBonus = 0.2
	}
	score += ruleBonus

	if summary.ComponentSpread() > 1.0 {
		score -= 0.1
	}

	if aug != nil {
		score += aug.ConfidenceAdjustment
	}

	return clamp01(score)
}

func impact(entityType blackboard.EntityType, baseScore float64) float64 {
	score := impactByEntityType[entityType]
	if baseScore > strongSignalThreshold || baseScore < -strongSignalThreshold {
		score += 0.2
	}
	return clamp01(score)
}

// reasoningPath pairs each applied rule with its reasoning string.
func reasoningPath(summary *rules.Summary) []string {
	path := make([]string, 0, len(summary.AppliedRules))
	for i, code := range summary.AppliedRules {
		if i < len(summary.RuleReasoning) {
			path = append(path, fmt.Sprintf("%s: %s", code, summary.RuleReasoning[i]))
		}
	}
	return path
}

// mergeRecommendations keeps rule-derived suggestions first, then the
// augmentation's, truncated to the insight cap.
func mergeRecommendations(summary *rules.Summary, aug *augment.Result) []string {
	recs := make([]string, 0, blackboard.MaxRecommendations)
	recs = append(recs, summary.Recommendations...)
	if aug != nil {
		recs = append(recs, aug.Recommendations...)
	}
	if len(recs) > blackboard.MaxRecommendations {
		recs = recs[:blackboard.MaxRecommendations]
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
