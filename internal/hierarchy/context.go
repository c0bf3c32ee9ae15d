// Package hierarchy builds transient analysis contexts from the blackboard.
//
// A Context captures one entity together with its resolved ancestor chain
// (task → project → area → pillar), its immediate children, related records
// such as dependencies, and simple task statistics. Contexts are built fresh
// per analysis call and never persisted.
package hierarchy

import (
	"time"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// Context is the transient input to rule evaluation. Exactly one of the
// per-kind sub-structs is populated, matching EntityType. Missing ancestors
// or relations are nil rather than errors: the aggregator resolves
// best-effort.
type Context struct {
	EntityType blackboard.EntityType
	EntityID   string // "" for global contexts
	UserID     string
	Timestamp  time.Time // when the context was assembled

	Task    *TaskContext
	Project *ProjectContext
	Area    *AreaContext
	Pillar  *PillarContext
	Global  *GlobalContext
}

// Found reports whether the primary entity was resolved. A context whose
// primary lookup failed is returned empty and signals "not found".
func (c *Context) Found() bool {
	switch c.EntityType {
	case blackboard.EntityTypeTask:
		return c.Task != nil
	case blackboard.EntityTypeProject:
		return c.Project != nil
	case blackboard.EntityTypeArea:
		return c.Area != nil
	case blackboard.EntityTypePillar:
		return c.Pillar != nil
	case blackboard.EntityTypeGlobal:
		return c.Global != nil
	default:
		return false
	}
}

// TaskContext is the resolved context for a single task. Ancestors are
// resolved by sequential lookups and any missing link leaves the remaining
// fields nil.
type TaskContext struct {
	Task                 *blackboard.Task
	Project              *blackboard.Project // nil if the task has no project or it is missing
	Area                 *blackboard.Area    // nil if unresolvable
	Pillar               *blackboard.Pillar  // nil if unresolvable
	Dependencies         []*blackboard.Task  // resolved dependency records
	BlockingDependencies []*blackboard.Task  // the incomplete subset of Dependencies
}

// ProjectContext is the resolved context for a project: its ancestors, its
// tasks and their aggregate statistics.
type ProjectContext struct {
	Project *blackboard.Project
	Area    *blackboard.Area
	Pillar  *blackboard.Pillar
	Tasks   []*blackboard.Task
	Stats   TaskStats
}

// AreaContext is the resolved context for an area: its pillar, its projects
// and statistics over all tasks in those projects.
type AreaContext struct {
	Area     *blackboard.Area
	Pillar   *blackboard.Pillar
	Projects []*blackboard.Project
	Stats    TaskStats
}

// PillarContext is the resolved context for a pillar: its areas and
// statistics over every task under the pillar's subtree.
type PillarContext struct {
	Pillar *blackboard.Pillar
	Areas  []*blackboard.Area
	Stats  TaskStats
}

// GlobalContext holds the user's complete hierarchy for whole-system analysis.
type GlobalContext struct {
	Pillars  []*blackboard.Pillar
	Areas    []*blackboard.Area
	Projects []*blackboard.Project
	Tasks    []*blackboard.Task
	Stats    TaskStats
}

// TaskStats is a simple aggregate over a collection of tasks.
// A task is overdue when its due date has passed and it is not completed.
type TaskStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"` // Completed/Total, 0 when Total is 0
	OverdueRate    float64 `json:"overdue_rate"`    // Overdue/Total, 0 when Total is 0
}

// ComputeTaskStats aggregates a task collection at the given instant.
func ComputeTaskStats(tasks []*blackboard.Task, now time.Time) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	nowMs := now.UnixMilli()

	for _, t := range tasks {
		if t.Completed() {
			stats.Completed++
			continue
		}
		if t.HasDueDate() && t.DueDateMs < nowMs {
			stats.Overdue++
		}
	}

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
		stats.OverdueRate = float64(stats.Overdue) / float64(stats.Total)
	}

	return stats
}

// PillarAllocation returns the time allocation percentage of the pillar the
// context's entity rolls up to, or (0, false) when no pillar is known.
// Used by the alignment rule for task, project and area contexts.
func (c *Context) PillarAllocation() (float64, bool) {
	var pillar *blackboard.Pillar
	switch {
	case c.Task != nil:
		pillar = c.Task.Pillar
	case c.Project != nil:
		pillar = c.Project.Pillar
	case c.Area != nil:
		pillar = c.Area.Pillar
	case c.Pillar != nil:
		pillar = c.Pillar.Pillar
	}

	if pillar == nil {
		return 0, false
	}
	return pillar.TimeAllocationPct, true
}

// PillarName returns the display name of the resolved pillar, or "".
func (c *Context) PillarName() string {
	var pillar *blackboard.Pillar
	switch {
	case c.Task != nil:
		pillar = c.Task.Pillar
	case c.Project != nil:
		pillar = c.Project.Pillar
	case c.Area != nil:
		pillar = c.Area.Pillar
	case c.Pillar != nil:
		pillar = c.Pillar.Pillar
	}

	if pillar == nil {
		return ""
	}
	return pillar.Name
}
