package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/trellis/internal/hierarchy"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// fakeStore is a CatalogStore returning canned rules or a canned error.
type fakeStore struct {
	rules []*blackboard.Rule
	err   error
}

func (f *fakeStore) ListRules(ctx context.Context) ([]*blackboard.Rule, error) {
	return f.rules, f.err
}

// taskContext builds a task context due at the given offset from now,
// linked to a pillar with the given time allocation (0 = no pillar).
func taskContext(dueIn time.Duration, hasDue bool, allocation float64) *hierarchy.Context {
	now := time.Now().UTC()
	task := &blackboard.Task{Name: "write report", Status: blackboard.TaskStatusTodo}
	if hasDue {
		task.DueDateMs = now.Add(dueIn).UnixMilli()
	}

	tc := &hierarchy.TaskContext{Task: task}
	if allocation > 0 {
		tc.Pillar = &blackboard.Pillar{Name: "Career", TimeAllocationPct: allocation}
	}

	return &hierarchy.Context{
		EntityType: blackboard.EntityTypeTask,
		UserID:     "user-1",
		Timestamp:  now,
		Task:       tc,
	}
}

func newTestEngine(t *testing.T, store CatalogStore) *Engine {
	t.Helper()
	engine, err := NewEngine(NewCatalog(store))
	require.NoError(t, err)
	return engine
}

func TestPriorityByDueDate(t *testing.T) {
	cases := []struct {
		name       string
		dueIn      time.Duration
		hasDue     bool
		wantImpact float64
	}{
		{"overdue", -26 * time.Hour, true, 1.0},
		{"due today", 0, true, 0.9},
		{"due within 3 days", 48 * time.Hour, true, 0.7},
		{"due within a week", 6 * 24 * time.Hour, true, 0.4},
		{"due later", 30 * 24 * time.Hour, true, 0.1},
		{"no due date", 0, false, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := evalPriorityByDueDate(taskContext(tc.dueIn, tc.hasDue, 0))
			require.NoError(t, err)
			assert.Equal(t, tc.wantImpact, res.ScoreImpact)
			assert.NotEmpty(t, res.Reasoning)
		})
	}

	t.Run("overdue reasoning counts days", func(t *testing.T) {
		res, err := evalPriorityByDueDate(taskContext(-3*24*time.Hour, true, 0))
		require.NoError(t, err)
		assert.Contains(t, res.Reasoning, "3 days overdue")
		assert.NotEmpty(t, res.Recommendation)
	})

	t.Run("errors without a task context", func(t *testing.T) {
		_, err := evalPriorityByDueDate(&hierarchy.Context{EntityType: blackboard.EntityTypeTask})
		assert.Error(t, err)
	})
}

func TestAlignmentWithPillar(t *testing.T) {
	t.Run("known allocation scales to [0,1]", func(t *testing.T) {
		res, err := evalAlignmentWithPillar(taskContext(0, false, 40))
		require.NoError(t, err)
		assert.InDelta(t, 0.4, res.ScoreImpact, 1e-9)
		assert.Contains(t, res.Reasoning, "Career")
	})

	t.Run("allocation above 100 clamps to 1.0", func(t *testing.T) {
		res, err := evalAlignmentWithPillar(taskContext(0, false, 150))
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.ScoreImpact)
	})

	t.Run("no pillar is a penalty", func(t *testing.T) {
		res, err := evalAlignmentWithPillar(taskContext(0, false, 0))
		require.NoError(t, err)
		assert.Equal(t, -0.2, res.ScoreImpact)
		assert.NotEmpty(t, res.Recommendation)
	})
}

func TestApplyWeightedAccumulation(t *testing.T) {
	store := &fakeStore{rules: []*blackboard.Rule{
		{Code: RuleCodePriorityByDueDate, AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 0.5},
		{Code: RuleCodeAlignmentWithPillar, AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 1.0},
	}}
	engine := newTestEngine(t, store)

	hctx := taskContext(-26*time.Hour, true, 40)
	summary := engine.Apply(context.Background(), hctx, blackboard.EntityTypeTask)

	// overdue 1.0 * 0.5 + alignment 0.4 * 1.0
	assert.InDelta(t, 0.9, summary.BaseScore, 1e-9)
	assert.Equal(t, []string{RuleCodeAlignmentWithPillar, RuleCodePriorityByDueDate}, summary.AppliedRules)
	assert.Len(t, summary.RuleReasoning, 2)
	assert.InDelta(t, 1.0, summary.ScoreComponents[RuleCodePriorityByDueDate], 1e-9)
	assert.InDelta(t, 0.4, summary.ScoreComponents[RuleCodeAlignmentWithPillar], 1e-9)
}

func TestApplyFallsBackToBuiltins(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		engine := newTestEngine(t, &fakeStore{err: errors.New("redis down")})

		summary := engine.Apply(context.Background(), taskContext(time.Hour, true, 30), blackboard.EntityTypeTask)

		assert.True(t, engine.Catalog().UsingFallback())
		assert.NotEmpty(t, summary.AppliedRules)
		assert.Len(t, summary.AppliedRules, 2)
	})

	t.Run("no active rules", func(t *testing.T) {
		store := &fakeStore{rules: []*blackboard.Rule{
			{Code: RuleCodePriorityByDueDate, AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: false},
		}}
		engine := newTestEngine(t, store)

		summary := engine.Apply(context.Background(), taskContext(time.Hour, true, 30), blackboard.EntityTypeTask)
		assert.True(t, engine.Catalog().UsingFallback())
		assert.NotEmpty(t, summary.AppliedRules)
	})
}

func TestApplyFailureIsolation(t *testing.T) {
	store := &fakeStore{rules: []*blackboard.Rule{
		{Code: "mystery_rule", AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 0.5},
		{Code: "broken_rule", AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 0.5},
		{Code: "panicky_rule", AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 0.5},
		{Code: RuleCodePriorityByDueDate, AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 0.5},
	}}
	engine := newTestEngine(t, store)
	engine.Register("broken_rule", func(*hierarchy.Context) (Result, error) {
		return Result{}, errors.New("boom")
	})
	engine.Register("panicky_rule", func(*hierarchy.Context) (Result, error) {
		panic("boom")
	})

	summary := engine.Apply(context.Background(), taskContext(time.Hour, true, 0), blackboard.EntityTypeTask)

	// Only the healthy known rule contributes; unknown, erroring and
	// panicking rules are omitted without aborting the batch.
	assert.Equal(t, []string{RuleCodePriorityByDueDate}, summary.AppliedRules)
	assert.False(t, summary.HasComponent("broken_rule"))
	assert.False(t, summary.HasComponent("mystery_rule"))
	assert.False(t, summary.HasComponent("panicky_rule"))
}

func TestApplyIdempotence(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{err: errors.New("offline")})
	hctx := taskContext(-50*time.Hour, true, 25)

	first := engine.Apply(context.Background(), hctx, blackboard.EntityTypeTask)
	second := engine.Apply(context.Background(), hctx, blackboard.EntityTypeTask)

	assert.Equal(t, first, second)
}

func TestApplyFiltersByEntityType(t *testing.T) {
	engine := newTestEngine(t, nil)

	pillarCtx := &hierarchy.Context{
		EntityType: blackboard.EntityTypePillar,
		Timestamp:  time.Now().UTC(),
		Pillar:     &hierarchy.PillarContext{Pillar: &blackboard.Pillar{Name: "Health", TimeAllocationPct: 30}},
	}
	summary := engine.Apply(context.Background(), pillarCtx, blackboard.EntityTypePillar)

	// Neither built-in rule applies to pillars
	assert.Empty(t, summary.AppliedRules)
	assert.Zero(t, summary.BaseScore)
}

func TestSummaryHelpers(t *testing.T) {
	t.Run("max abs over empty summary is zero", func(t *testing.T) {
		s := &Summary{ScoreComponents: map[string]float64{}}
		assert.Zero(t, s.MaxAbsComponent())
		assert.Zero(t, s.ComponentSpread())
	})

	t.Run("negative components count towards max abs", func(t *testing.T) {
		s := &Summary{ScoreComponents: map[string]float64{"a": -0.9, "b": 0.2}}
		assert.InDelta(t, 0.9, s.MaxAbsComponent(), 1e-9)
		assert.InDelta(t, 1.1, s.ComponentSpread(), 1e-9)
	})
}

func TestCatalogRefresh(t *testing.T) {
	store := &fakeStore{err: errors.New("offline")}
	catalog := NewCatalog(store)
	ctx := context.Background()

	assert.NotEmpty(t, catalog.Active(ctx, blackboard.EntityTypeTask))
	assert.True(t, catalog.UsingFallback())

	// Store comes back with a custom rule set
	store.err = nil
	store.rules = []*blackboard.Rule{
		{Code: "custom", AppliesTo: []blackboard.EntityType{blackboard.EntityTypeTask}, IsActive: true, BaseWeight: 0.8, RequiresLLM: true},
	}
	catalog.Refresh(ctx)

	assert.False(t, catalog.UsingFallback())
	rule, ok := catalog.Get("custom")
	require.True(t, ok)
	assert.True(t, rule.RequiresLLM)
	assert.Len(t, catalog.All(ctx), 1)
}
