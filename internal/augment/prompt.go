// Package augment escalates an analysis to the generative capability:
// it builds a context-specific prompt, makes the single opaque call, and
// parses the free-text reply into a small structured result. All failures
// degrade to an unavailable result with a fixed confidence penalty - this
// package never lets an error escape to the pipeline.
package augment

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/trellis/internal/hierarchy"
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// BuildPrompt restates the entity context in compact key:value form together
// with the rule summary, then appends an instruction block whose verbosity
// scales with the analysis depth.
func BuildPrompt(hctx *hierarchy.Context, summary *rules.Summary, depth blackboard.AnalysisDepth) string {
	var b strings.Builder

	b.WriteString("You are a productivity coach analysing one part of a user's goal hierarchy.\n\n")
	b.WriteString("Context:\n")
	writeContextLines(&b, hctx)

	b.WriteString("\nRule evaluation:\n")
	fmt.Fprintf(&b, "base_score: %.2f\n", summary.BaseScore)
	for i, code := range summary.AppliedRules {
		reasoning := ""
		if i < len(summary.RuleReasoning) {
			reasoning = summary.RuleReasoning[i]
		}
		fmt.Fprintf(&b, "%s: %.2f (%s)\n", code, summary.ScoreComponents[code], reasoning)
	}

	b.WriteString("\n")
	writeInstructions(&b, depth)

	return b.String()
}

func writeContextLines(b *strings.Builder, hctx *hierarchy.Context) {
	fmt.Fprintf(b, "entity_type: %s\n", hctx.EntityType)

	switch {
	case hctx.Task != nil:
		t := hctx.Task
		fmt.Fprintf(b, "task: %s\n", t.Task.Name)
		if t.Task.Description != "" {
			fmt.Fprintf(b, "description: %s\n", t.Task.Description)
		}
		fmt.Fprintf(b, "status: %s\n", valueOr(string(t.Task.Status), "unset"))
		fmt.Fprintf(b, "priority: %s\n", valueOr(t.Task.Priority, "unset"))
		if t.Task.HasDueDate() {
			fmt.Fprintf(b, "due: %s\n", time.UnixMilli(t.Task.DueDateMs).UTC().Format("2006-01-02"))
		}
		if t.Project != nil {
			fmt.Fprintf(b, "project: %s (importance %d)\n", t.Project.Name, t.Project.Importance)
		}
		if t.Area != nil {
			fmt.Fprintf(b, "area: %s (importance %d)\n", t.Area.Name, t.Area.Importance)
		}
		if t.Pillar != nil {
			fmt.Fprintf(b, "pillar: %s (%.0f%% time allocation)\n", t.Pillar.Name, t.Pillar.TimeAllocationPct)
		}
		fmt.Fprintf(b, "dependencies: %d (%d blocking)\n", len(t.Dependencies), len(t.BlockingDependencies))

	case hctx.Project != nil:
		p := hctx.Project
		fmt.Fprintf(b, "project: %s (importance %d)\n", p.Project.Name, p.Project.Importance)
		if p.Pillar != nil {
			fmt.Fprintf(b, "pillar: %s (%.0f%% time allocation)\n", p.Pillar.Name, p.Pillar.TimeAllocationPct)
		}
		writeStats(b, p.Stats)

	case hctx.Area != nil:
		a := hctx.Area
		fmt.Fprintf(b, "area: %s (importance %d)\n", a.Area.Name, a.Area.Importance)
		fmt.Fprintf(b, "projects: %d\n", len(a.Projects))
		if a.Pillar != nil {
			fmt.Fprintf(b, "pillar: %s (%.0f%% time allocation)\n", a.Pillar.Name, a.Pillar.TimeAllocationPct)
		}
		writeStats(b, a.Stats)

	case hctx.Pillar != nil:
		p := hctx.Pillar
		fmt.Fprintf(b, "pillar: %s (%.0f%% time allocation)\n", p.Pillar.Name, p.Pillar.TimeAllocationPct)
		fmt.Fprintf(b, "areas: %d\n", len(p.Areas))
		writeStats(b, p.Stats)

	case hctx.Global != nil:
		g := hctx.Global
		fmt.Fprintf(b, "pillars: %d\n", len(g.Pillars))
		fmt.Fprintf(b, "areas: %d\n", len(g.Areas))
		fmt.Fprintf(b, "projects: %d\n", len(g.Projects))
		fmt.Fprintf(b, "tasks: %d\n", len(g.Tasks))
		writeStats(b, g.Stats)
	}
}

func writeStats(b *strings.Builder, stats hierarchy.TaskStats) {
	fmt.Fprintf(b, "tasks_total: %d\ntasks_completed: %d\ntasks_overdue: %d\ncompletion_rate: %.0f%%\n",
		stats.Total, stats.Completed, stats.Overdue, stats.CompletionRate*100)
}

// writeInstructions appends the depth-scaled instruction block:
// 2 short instructions at minimal, 3 at balanced, 5 headed sections at detailed.
func writeInstructions(b *strings.Builder, depth blackboard.AnalysisDepth) {
	switch depth {
	case blackboard.DepthMinimal:
		b.WriteString("Instructions:\n")
		b.WriteString("1. In one sentence, state whether this deserves attention today.\n")
		b.WriteString("2. Give one concrete recommendation.\n")

	case blackboard.DepthDetailed:
		b.WriteString("Instructions - respond under these headings:\n")
		b.WriteString("1. Priority Reasoning: why this does or does not deserve attention now.\n")
		b.WriteString("2. Alignment: how this fits the user's pillars and time allocations.\n")
		b.WriteString("3. Pattern Recognition: any recurring behaviour the statistics suggest.\n")
		b.WriteString("4. Obstacles: anything blocking progress, including dependencies.\n")
		b.WriteString("5. Recommendations: up to three concrete next actions.\n")

	default: // balanced
		b.WriteString("Instructions:\n")
		b.WriteString("1. Briefly explain the priority signal from the rule evaluation.\n")
		b.WriteString("2. Note anything that looks blocked or misaligned.\n")
		b.WriteString("3. Give up to two concrete recommendations.\n")
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
