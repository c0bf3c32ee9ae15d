package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/dyluth/trellis/internal/hierarchy"
)

// Built-in rule codes. New rules are added by storing a definition on the
// blackboard and registering an evaluator for its code.
const (
	RuleCodePriorityByDueDate   = "priority_by_due_date"
	RuleCodeAlignmentWithPillar = "alignment_with_pillar"
)

// Result is the output of evaluating one rule against one context.
type Result struct {
	RuleCode       string  // Which rule produced this result
	ScoreImpact    float64 // Raw impact before the catalog weight, may be negative
	Reasoning      string  // Human-readable explanation
	Recommendation string  // Optional action suggestion, "" if none
}

// Evaluator is a pure function mapping a hierarchy context to a rule result.
// Evaluators must not mutate the context. Returning an error (or panicking)
// causes the rule to be omitted from the summary without aborting the batch.
type Evaluator func(*hierarchy.Context) (Result, error)

// builtinEvaluators returns the evaluator registry for the built-in rule codes.
func builtinEvaluators() map[string]Evaluator {
	return map[string]Evaluator{
		RuleCodePriorityByDueDate:   evalPriorityByDueDate,
		RuleCodeAlignmentWithPillar: evalAlignmentWithPillar,
	}
}

// evalPriorityByDueDate scores a task by how soon its due date is:
// overdue 1.0, due today 0.9, within 3 days 0.7, within 7 days 0.4,
// later 0.1, no due date 0.0.
func evalPriorityByDueDate(hctx *hierarchy.Context) (Result, error) {
	if hctx.Task == nil || hctx.Task.Task == nil {
		return Result{}, fmt.Errorf("due date rule requires a task context")
	}
	task := hctx.Task.Task

	res := Result{RuleCode: RuleCodePriorityByDueDate}

	if !task.HasDueDate() {
		res.ScoreImpact = 0.0
		res.Reasoning = "No due date set"
		return res, nil
	}

	today := startOfDay(hctx.Timestamp)
	dueDay := startOfDay(time.UnixMilli(task.DueDateMs).In(hctx.Timestamp.Location()))

	switch {
	case dueDay.Before(today):
		days := int(math.Round(today.Sub(dueDay).Hours() / 24))
		res.ScoreImpact = 1.0
		res.Reasoning = fmt.Sprintf("%d %s overdue", days, pluralDays(days))
		res.Recommendation = fmt.Sprintf("Clear the overdue task '%s' before taking on new work", task.Name)
	case dueDay.Equal(today):
		res.ScoreImpact = 0.9
		res.Reasoning = "Due today"
	case !dueDay.After(today.AddDate(0, 0, 3)):
		res.ScoreImpact = 0.7
		res.Reasoning = "Due within 3 days"
	case !dueDay.After(today.AddDate(0, 0, 7)):
		res.ScoreImpact = 0.4
		res.Reasoning = "Due within the week"
	default:
		res.ScoreImpact = 0.1
		res.Reasoning = "Due date is more than a week away"
	}

	return res, nil
}

// evalAlignmentWithPillar scores how strongly the entity's pillar claims the
// user's time. A known positive allocation maps to min(allocation/100, 1.0);
// an unknown or zero allocation is a -0.2 penalty.
func evalAlignmentWithPillar(hctx *hierarchy.Context) (Result, error) {
	res := Result{RuleCode: RuleCodeAlignmentWithPillar}

	allocation, ok := hctx.PillarAllocation()
	if !ok || allocation <= 0 {
		res.ScoreImpact = -0.2
		res.Reasoning = "Not linked to a pillar with a time allocation"
		res.Recommendation = "Link this work to a pillar so it counts towards your stated priorities"
		return res, nil
	}

	res.ScoreImpact = math.Min(allocation/100, 1.0)
	res.Reasoning = fmt.Sprintf("Aligned with pillar '%s' (%.0f%% time allocation)", hctx.PillarName(), allocation)
	return res, nil
}

// startOfDay truncates a time to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
