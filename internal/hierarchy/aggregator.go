package hierarchy

import (
	"context"
	"log"
	"time"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// Store is the narrow read contract the aggregator needs from the blackboard.
// *blackboard.Client satisfies it.
type Store interface {
	GetPillar(ctx context.Context, id string) (*blackboard.Pillar, error)
	GetArea(ctx context.Context, id string) (*blackboard.Area, error)
	GetProject(ctx context.Context, id string) (*blackboard.Project, error)
	GetTask(ctx context.Context, id string) (*blackboard.Task, error)
	ListPillars(ctx context.Context, userID string) ([]*blackboard.Pillar, error)
	ListAreas(ctx context.Context, userID string) ([]*blackboard.Area, error)
	ListProjects(ctx context.Context, userID string) ([]*blackboard.Project, error)
	ListTasks(ctx context.Context, userID string) ([]*blackboard.Task, error)
	ListTasksByIDs(ctx context.Context, ids []string) ([]*blackboard.Task, error)
}

// Aggregator assembles analysis contexts from the blackboard.
// Lookups are best-effort: a missing ancestor or relation leaves its field
// nil, and only a failed primary lookup yields an empty (not-found) context.
type Aggregator struct {
	store Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// GetContext loads the entity identified by (entityType, entityID) and its
// surrounding hierarchy for the given user. For global contexts entityID is
// ignored. The returned context is never nil; use Context.Found() to detect
// a missing primary entity.
func (a *Aggregator) GetContext(ctx context.Context, userID string, entityType blackboard.EntityType, entityID string) *Context {
	hctx := &Context{
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Timestamp:  time.Now().UTC(),
	}

	switch entityType {
	case blackboard.EntityTypeTask:
		hctx.Task = a.taskContext(ctx, entityID)
	case blackboard.EntityTypeProject:
		hctx.Project = a.projectContext(ctx, userID, entityID, hctx.Timestamp)
	case blackboard.EntityTypeArea:
		hctx.Area = a.areaContext(ctx, userID, entityID, hctx.Timestamp)
	case blackboard.EntityTypePillar:
		hctx.Pillar = a.pillarContext(ctx, userID, entityID, hctx.Timestamp)
	case blackboard.EntityTypeGlobal:
		hctx.EntityID = ""
		hctx.Global = a.globalContext(ctx, userID, hctx.Timestamp)
	default:
		log.Printf("[Aggregator] Unknown entity type %q, returning empty context", entityType)
	}

	return hctx
}

// taskContext resolves a task and walks its ancestor chain, tolerating any
// missing link. Dependencies are fetched in one batch.
func (a *Aggregator) taskContext(ctx context.Context, taskID string) *TaskContext {
	task, err := a.store.GetTask(ctx, taskID)
	if err != nil {
		if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch task %s: %v", taskID, err)
		}
		return nil
	}

	tc := &TaskContext{Task: task}

	if task.ProjectID != "" {
		if project, err := a.store.GetProject(ctx, task.ProjectID); err == nil {
			tc.Project = project
		} else if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch project %s: %v (continuing)", task.ProjectID, err)
		}
	}

	if tc.Project != nil && tc.Project.AreaID != "" {
		if area, err := a.store.GetArea(ctx, tc.Project.AreaID); err == nil {
			tc.Area = area
		} else if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch area %s: %v (continuing)", tc.Project.AreaID, err)
		}
	}

	if tc.Area != nil && tc.Area.PillarID != "" {
		if pillar, err := a.store.GetPillar(ctx, tc.Area.PillarID); err == nil {
			tc.Pillar = pillar
		} else if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch pillar %s: %v (continuing)", tc.Area.PillarID, err)
		}
	}

	if len(task.DependencyIDs) > 0 {
		deps, err := a.store.ListTasksByIDs(ctx, task.DependencyIDs)
		if err != nil {
			log.Printf("[Aggregator] Failed to fetch dependencies for task %s: %v (continuing)", taskID, err)
		} else {
			tc.Dependencies = deps
			for _, dep := range deps {
				if !dep.Completed() {
					tc.BlockingDependencies = append(tc.BlockingDependencies, dep)
				}
			}
		}
	}

	return tc
}

// projectContext resolves a project, its ancestors, its tasks and their stats.
func (a *Aggregator) projectContext(ctx context.Context, userID, projectID string, now time.Time) *ProjectContext {
	project, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch project %s: %v", projectID, err)
		}
		return nil
	}

	pc := &ProjectContext{Project: project}

	if project.AreaID != "" {
		if area, err := a.store.GetArea(ctx, project.AreaID); err == nil {
			pc.Area = area
			if area.PillarID != "" {
				if pillar, err := a.store.GetPillar(ctx, area.PillarID); err == nil {
					pc.Pillar = pillar
				}
			}
		}
	}

	pc.Tasks = filterTasksByProject(a.listTasksQuiet(ctx, userID), map[string]bool{projectID: true})
	pc.Stats = ComputeTaskStats(pc.Tasks, now)
	return pc
}

// areaContext resolves an area, its pillar, its projects and statistics over
// every task in those projects.
func (a *Aggregator) areaContext(ctx context.Context, userID, areaID string, now time.Time) *AreaContext {
	area, err := a.store.GetArea(ctx, areaID)
	if err != nil {
		if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch area %s: %v", areaID, err)
		}
		return nil
	}

	ac := &AreaContext{Area: area}

	if area.PillarID != "" {
		if pillar, err := a.store.GetPillar(ctx, area.PillarID); err == nil {
			ac.Pillar = pillar
		}
	}

	projectIDs := make(map[string]bool)
	for _, p := range a.listProjectsQuiet(ctx, userID) {
		if p.AreaID == areaID {
			ac.Projects = append(ac.Projects, p)
			projectIDs[p.ID] = true
		}
	}

	tasks := filterTasksByProject(a.listTasksQuiet(ctx, userID), projectIDs)
	ac.Stats = ComputeTaskStats(tasks, now)
	return ac
}

// pillarContext resolves a pillar, its areas and statistics over the tasks
// in the pillar's whole subtree.
func (a *Aggregator) pillarContext(ctx context.Context, userID, pillarID string, now time.Time) *PillarContext {
	pillar, err := a.store.GetPillar(ctx, pillarID)
	if err != nil {
		if !blackboard.IsNotFound(err) {
			log.Printf("[Aggregator] Failed to fetch pillar %s: %v", pillarID, err)
		}
		return nil
	}

	pc := &PillarContext{Pillar: pillar}

	areaIDs := make(map[string]bool)
	for _, area := range a.listAreasQuiet(ctx, userID) {
		if area.PillarID == pillarID {
			pc.Areas = append(pc.Areas, area)
			areaIDs[area.ID] = true
		}
	}

	projectIDs := make(map[string]bool)
	for _, p := range a.listProjectsQuiet(ctx, userID) {
		if areaIDs[p.AreaID] {
			projectIDs[p.ID] = true
		}
	}

	tasks := filterTasksByProject(a.listTasksQuiet(ctx, userID), projectIDs)
	pc.Stats = ComputeTaskStats(tasks, now)
	return pc
}

// globalContext loads the user's complete hierarchy. Individual collection
// failures are swallowed and leave that collection empty; the context itself
// is always returned (global analysis has no single primary record to miss).
func (a *Aggregator) globalContext(ctx context.Context, userID string, now time.Time) *GlobalContext {
	gc := &GlobalContext{
		Pillars:  a.listPillarsQuiet(ctx, userID),
		Areas:    a.listAreasQuiet(ctx, userID),
		Projects: a.listProjectsQuiet(ctx, userID),
		Tasks:    a.listTasksQuiet(ctx, userID),
	}
	gc.Stats = ComputeTaskStats(gc.Tasks, now)
	return gc
}

func (a *Aggregator) listPillarsQuiet(ctx context.Context, userID string) []*blackboard.Pillar {
	pillars, err := a.store.ListPillars(ctx, userID)
	if err != nil {
		log.Printf("[Aggregator] Failed to list pillars for %s: %v (continuing)", userID, err)
		return nil
	}
	return pillars
}

func (a *Aggregator) listAreasQuiet(ctx context.Context, userID string) []*blackboard.Area {
	areas, err := a.store.ListAreas(ctx, userID)
	if err != nil {
		log.Printf("[Aggregator] Failed to list areas for %s: %v (continuing)", userID, err)
		return nil
	}
	return areas
}

func (a *Aggregator) listProjectsQuiet(ctx context.Context, userID string) []*blackboard.Project {
	projects, err := a.store.ListProjects(ctx, userID)
	if err != nil {
		log.Printf("[Aggregator] Failed to list projects for %s: %v (continuing)", userID, err)
		return nil
	}
	return projects
}

func (a *Aggregator) listTasksQuiet(ctx context.Context, userID string) []*blackboard.Task {
	tasks, err := a.store.ListTasks(ctx, userID)
	if err != nil {
		log.Printf("[Aggregator] Failed to list tasks for %s: %v (continuing)", userID, err)
		return nil
	}
	return tasks
}

func filterTasksByProject(tasks []*blackboard.Task, projectIDs map[string]bool) []*blackboard.Task {
	var out []*blackboard.Task
	for _, t := range tasks {
		if projectIDs[t.ProjectID] {
			out = append(out, t)
		}
	}
	return out
}
