package insight

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/trellis/internal/augment"
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

var synthNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func baseSummary() *rules.Summary {
	return &rules.Summary{
		BaseScore:       0.5,
		ScoreComponents: map[string]float64{rules.RuleCodePriorityByDueDate: 0.9},
		AppliedRules:    []string{rules.RuleCodePriorityByDueDate},
		RuleReasoning:   []string{"Due today"},
	}
}

func TestClassify(t *testing.T) {
	t.Run("obstacle signal wins", func(t *testing.T) {
		aug := &augment.Result{Available: true, ObstacleSignal: true}
		summary := baseSummary()
		summary.BaseScore = 0.95

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, aug, synthNow)
		assert.Equal(t, blackboard.InsightTypeObstacle, ins.InsightType)
	})

	t.Run("strong base score is priority reasoning", func(t *testing.T) {
		summary := baseSummary()
		summary.BaseScore = 0.95

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
		assert.Equal(t, blackboard.InsightTypePriority, ins.InsightType)
	})

	t.Run("alignment component present", func(t *testing.T) {
		summary := baseSummary()
		summary.ScoreComponents[rules.RuleCodeAlignmentWithPillar] = 0.3

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
		assert.Equal(t, blackboard.InsightTypeAlignment, ins.InsightType)
	})

	t.Run("fallback is recommendation", func(t *testing.T) {
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", baseSummary(), nil, synthNow)
		assert.Equal(t, blackboard.InsightTypeRecommendation, ins.InsightType)
	})
}

func TestTitles(t *testing.T) {
	cases := []struct {
		name      string
		baseScore float64
		title     string
	}{
		{"strong positive", 0.95, "High Priority Task"},
		{"strong negative", -0.5, "Low Priority Task"},
		{"mixed", 0.4, "Balanced Task"},
		{"boundary 0.8 is not high", 0.8, "Balanced Task"},
		{"boundary -0.2 is not low", -0.2, "Balanced Task"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := baseSummary()
			summary.BaseScore = tc.baseScore

			ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
			assert.Equal(t, tc.title, ins.Title)
			assert.NotEmpty(t, ins.Summary)
		})
	}
}

func TestConfidence(t *testing.T) {
	t.Run("rule-only single rule", func(t *testing.T) {
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", baseSummary(), nil, synthNow)
		assert.InDelta(t, 0.75, ins.ConfidenceScore, 1e-9)
	})

	t.Run("augmentation adds 0.1", func(t *testing.T) {
		aug := &augment.Result{Available: true}
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", baseSummary(), aug, synthNow)
		assert.InDelta(t, 0.85, ins.ConfidenceScore, 1e-9)
	})

	t.Run("failed augmentation applies the penalty", func(t *testing.T) {
		aug := &augment.Result{Available: false, ConfidenceAdjustment: augment.UnavailablePenalty}
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", baseSummary(), aug, synthNow)
		assert.InDelta(t, 0.55, ins.ConfidenceScore, 1e-9)
	})

	t.Run("rule bonus caps at 0.2", func(t *testing.T) {
		summary := baseSummary()
		summary.AppliedRules = []string{"a", "b", "c", "d", "e", "f"}
		summary.RuleReasoning = []string{"r", "r", "r", "r", "r", "r"}

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
		assert.InDelta(t, 0.9, ins.ConfidenceScore, 1e-9)
	})

	t.Run("wide component spread costs 0.1", func(t *testing.T) {
		summary := baseSummary()
		summary.ScoreComponents = map[string]float64{"a": 1.0, "b": -0.5}

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
		assert.InDelta(t, 0.65, ins.ConfidenceScore, 1e-9)
	})

	t.Run("clamped to 1 under stacked bonuses", func(t *testing.T) {
		summary := baseSummary()
		summary.AppliedRules = []string{"a", "b", "c", "d", "e"}
		aug := &augment.Result{Available: true, ConfidenceAdjustment: 0.5}

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, aug, synthNow)
		assert.Equal(t, 1.0, ins.ConfidenceScore)
	})

	t.Run("never negative with adversarial inputs", func(t *testing.T) {
		summary := baseSummary()
		summary.ScoreComponents = map[string]float64{"a": 3.0, "b": -3.0}
		aug := &augment.Result{Available: false, ConfidenceAdjustment: -5.0}

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, aug, synthNow)
		assert.Equal(t, 0.0, ins.ConfidenceScore)
	})
}

func TestImpact(t *testing.T) {
	cases := []struct {
		entityType blackboard.EntityType
		want       float64
	}{
		{blackboard.EntityTypePillar, 0.9},
		{blackboard.EntityTypeArea, 0.7},
		{blackboard.EntityTypeProject, 0.6},
		{blackboard.EntityTypeTask, 0.4},
		{blackboard.EntityTypeGlobal, 1.0},
	}

	for _, tc := range cases {
		t.Run(string(tc.entityType), func(t *testing.T) {
			ins := Synthesize("user-1", tc.entityType, "e1", baseSummary(), nil, synthNow)
			assert.InDelta(t, tc.want, ins.ImpactScore, 1e-9)
		})
	}

	t.Run("decisive base score adds 0.2 with clamping", func(t *testing.T) {
		summary := baseSummary()
		summary.BaseScore = 0.95

		task := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
		assert.InDelta(t, 0.6, task.ImpactScore, 1e-9)

		global := Synthesize("user-1", blackboard.EntityTypeGlobal, "", summary, nil, synthNow)
		assert.Equal(t, 1.0, global.ImpactScore)
	})
}

func TestExpiryAndTags(t *testing.T) {
	t.Run("priority reasoning expires in six hours", func(t *testing.T) {
		summary := baseSummary()
		summary.BaseScore = 0.95

		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)
		assert.Equal(t, synthNow.Add(6*time.Hour).UnixMilli(), ins.ExpiresAtMs)
	})

	t.Run("obstacle expires in one day", func(t *testing.T) {
		aug := &augment.Result{Available: true, ObstacleSignal: true}
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", baseSummary(), aug, synthNow)
		assert.Equal(t, synthNow.Add(24*time.Hour).UnixMilli(), ins.ExpiresAtMs)
	})

	t.Run("tags carry entity and insight type", func(t *testing.T) {
		summary := baseSummary()
		summary.BaseScore = 0.95

		ins := Synthesize("user-1", blackboard.EntityTypePillar, "p1", summary, nil, synthNow)
		assert.Contains(t, ins.Tags, "pillar")
		assert.Contains(t, ins.Tags, "priority_reasoning")
		assert.Contains(t, ins.Tags, "high_impact") // 0.9 + 0.2 clamps to 1.0
		assert.NotContains(t, ins.Tags, "high_confidence")
	})
}

func TestRecommendationsAndReasoningPath(t *testing.T) {
	summary := &rules.Summary{
		BaseScore:       0.5,
		ScoreComponents: map[string]float64{"a": 0.5, "b": 0.5},
		AppliedRules:    []string{"a", "b"},
		RuleReasoning:   []string{"reason a", "reason b"},
		Recommendations: []string{"rule rec 1", "rule rec 2", "rule rec 3"},
	}
	aug := &augment.Result{
		Available:       true,
		Recommendations: []string{"llm rec 1", "llm rec 2", "llm rec 3"},
	}

	ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, aug, synthNow)

	require.Len(t, ins.Recommendations, blackboard.MaxRecommendations)
	assert.Equal(t, []string{"rule rec 1", "rule rec 2", "rule rec 3", "llm rec 1", "llm rec 2"}, ins.Recommendations)
	assert.Equal(t, []string{"a: reason a", "b: reason b"}, ins.ReasoningPath)
	assert.NoError(t, ins.Validate())
}

func TestReasoningPayload(t *testing.T) {
	summary := baseSummary()

	t.Run("rule-only payload has no llm_insights key", func(t *testing.T) {
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, nil, synthNow)

		var payload map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(ins.DetailedReasoning), &payload))
		assert.Contains(t, payload, "rule_evaluation")
		assert.NotContains(t, payload, "llm_insights")
	})

	t.Run("augmented payload carries llm_insights", func(t *testing.T) {
		aug := &augment.Result{Available: true, RawResponse: "You should rest."}
		ins := Synthesize("user-1", blackboard.EntityTypeTask, "t1", summary, aug, synthNow)

		var payload map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(ins.DetailedReasoning), &payload))
		assert.Contains(t, payload, "llm_insights")
	})
}
