// Package scorer ranks a user's actionable tasks for "today" with a
// five-component additive score breakdown, so every position in the list
// can be explained back to the user.
package scorer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/dyluth/trellis/internal/llm"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// Store is the read surface the scorer needs. *blackboard.Client
// satisfies it.
type Store interface {
	GetUserProfile(ctx context.Context, userID string) (*blackboard.UserProfile, error)
	ListTasks(ctx context.Context, userID string) ([]*blackboard.Task, error)
	ListProjectsByIDs(ctx context.Context, ids []string) ([]*blackboard.Project, error)
	ListAreasByIDs(ctx context.Context, ids []string) ([]*blackboard.Area, error)
	ListTasksByIDs(ctx context.Context, ids []string) ([]*blackboard.Task, error)
}

// Score component values. Each component is either zero or its fixed
// value; Total is always their exact sum.
const (
	UrgencyOverdue  = 100
	UrgencyDueToday = 80
	PriorityBonus   = 30
	ProjectBonus    = 50
	AreaBonus       = 25
	DependencyBonus = 60

	importanceThreshold = 4
)

// Breakdown is the per-task score decomposition.
type Breakdown struct {
	Urgency         int      `json:"urgency"`                  // 100 overdue, 80 due today, 0 otherwise
	PriorityBonus   int      `json:"priority_bonus"`           // 30 iff the stated priority is "high"
	ProjectBonus    int      `json:"project_importance_bonus"` // 50 iff the linked project's importance >= 4
	AreaBonus       int      `json:"area_importance_bonus"`    // 25 iff the linked area's importance >= 4
	DependencyBonus int      `json:"dependency_bonus"`         // 60 iff every dependency is completed
	Total           int      `json:"total"`
	Reasons         []string `json:"reasons"`
}

// ScoredTask is one ranked entry in a day plan.
type ScoredTask struct {
	TaskID          string    `json:"task_id"`
	TaskName        string    `json:"task_name"`
	ProjectID       string    `json:"project_id,omitempty"`
	ProjectName     string    `json:"project_name,omitempty"`
	AreaID          string    `json:"area_id,omitempty"`
	AreaName        string    `json:"area_name,omitempty"`
	Score           int       `json:"score"`
	Breakdown       Breakdown `json:"breakdown"`
	CoachingMessage string    `json:"coaching_message,omitempty"`
	AIPowered       bool      `json:"ai_powered"`
}

// DayPlan is the caller-facing output: the ranked task list for one day.
type DayPlan struct {
	Date        string       `json:"date"`         // ISO date in the user's timezone
	GeneratedAt string       `json:"generated_at"` // RFC3339
	Tasks       []ScoredTask `json:"tasks"`
}

// Scorer computes day plans. gen may be nil (no coaching notes).
type Scorer struct {
	store Store
	gen   llm.Generator
	now   func() time.Time
}

func NewScorer(store Store, gen llm.Generator) *Scorer {
	return &Scorer{store: store, gen: gen, now: time.Now}
}

// ScoreToday ranks the user's incomplete tasks and returns the top topN
// with coaching notes when a generative capability is configured. A task
// fetch failure yields an empty (but valid) plan, never an error.
func (s *Scorer) ScoreToday(ctx context.Context, userID string, topN int) *DayPlan {
	now := s.now()
	loc := s.userLocation(ctx, userID)
	localNow := now.In(loc)

	plan := &DayPlan{
		Date:        localNow.Format("2006-01-02"),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Tasks:       []ScoredTask{},
	}

	all, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		log.Printf("[Scorer] Failed to list tasks for %s: %v (returning empty plan)", userID, err)
		return plan
	}

	tasks := filterActionable(all)
	if len(tasks) == 0 {
		return plan
	}

	projects, areas, deps := s.resolveRelated(ctx, tasks)

	scored := make([]ScoredTask, 0, len(tasks))
	for _, task := range tasks {
		scored = append(scored, scoreTask(task, projects, areas, deps, localNow))
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topN < 0 {
		topN = 0
	}
	if len(scored) > topN {
		scored = scored[:topN]
	}

	s.addCoaching(ctx, scored)

	plan.Tasks = scored
	return plan
}

// userLocation resolves the user's timezone, defaulting to UTC on any
// failure.
func (s *Scorer) userLocation(ctx context.Context, userID string) *time.Location {
	profile, err := s.store.GetUserProfile(ctx, userID)
	if err != nil || profile.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		log.Printf("[Scorer] Unknown timezone %q for %s, using UTC", profile.Timezone, userID)
		return time.UTC
	}
	return loc
}

// filterActionable keeps incomplete tasks: status unset, todo,
// in_progress or review.
func filterActionable(tasks []*blackboard.Task) []*blackboard.Task {
	out := make([]*blackboard.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Completed() {
			out = append(out, t)
		}
	}
	return out
}

// resolveRelated bulk-fetches every referenced project, each project's
// area, and every dependency task in three batched reads.
func (s *Scorer) resolveRelated(ctx context.Context, tasks []*blackboard.Task) (map[string]*blackboard.Project, map[string]*blackboard.Area, map[string]*blackboard.Task) {
	projectIDs := make([]string, 0, len(tasks))
	depIDs := make([]string, 0)
	seenProjects := make(map[string]bool)
	seenDeps := make(map[string]bool)

	for _, t := range tasks {
		if t.ProjectID != "" && !seenProjects[t.ProjectID] {
			seenProjects[t.ProjectID] = true
			projectIDs = append(projectIDs, t.ProjectID)
		}
		for _, dep := range t.DependencyIDs {
			if !seenDeps[dep] {
				seenDeps[dep] = true
				depIDs = append(depIDs, dep)
			}
		}
	}

	projects := make(map[string]*blackboard.Project)
	for _, p := range s.listProjectsQuiet(ctx, projectIDs) {
		projects[p.ID] = p
	}

	areaIDs := make([]string, 0, len(projects))
	seenAreas := make(map[string]bool)
	for _, p := range projects {
		if p.AreaID != "" && !seenAreas[p.AreaID] {
			seenAreas[p.AreaID] = true
			areaIDs = append(areaIDs, p.AreaID)
		}
	}

	areas := make(map[string]*blackboard.Area)
	for _, a := range s.listAreasQuiet(ctx, areaIDs) {
		areas[a.ID] = a
	}

	deps := make(map[string]*blackboard.Task)
	for _, d := range s.listTasksQuiet(ctx, depIDs) {
		deps[d.ID] = d
	}

	return projects, areas, deps
}

func (s *Scorer) listProjectsQuiet(ctx context.Context, ids []string) []*blackboard.Project {
	if len(ids) == 0 {
		return nil
	}
	out, err := s.store.ListProjectsByIDs(ctx, ids)
	if err != nil {
		log.Printf("[Scorer] Failed to batch-read projects: %v", err)
		return nil
	}
	return out
}

func (s *Scorer) listAreasQuiet(ctx context.Context, ids []string) []*blackboard.Area {
	if len(ids) == 0 {
		return nil
	}
	out, err := s.store.ListAreasByIDs(ctx, ids)
	if err != nil {
		log.Printf("[Scorer] Failed to batch-read areas: %v", err)
		return nil
	}
	return out
}

func (s *Scorer) listTasksQuiet(ctx context.Context, ids []string) []*blackboard.Task {
	if len(ids) == 0 {
		return nil
	}
	out, err := s.store.ListTasksByIDs(ctx, ids)
	if err != nil {
		log.Printf("[Scorer] Failed to batch-read dependency tasks: %v", err)
		return nil
	}
	return out
}

// scoreTask computes the five-component breakdown for one task. localNow
// carries the user's timezone and defines "today".
func scoreTask(task *blackboard.Task, projects map[string]*blackboard.Project, areas map[string]*blackboard.Area, deps map[string]*blackboard.Task, localNow time.Time) ScoredTask {
	var b Breakdown

	if task.HasDueDate() {
		due := time.UnixMilli(task.DueDateMs).In(localNow.Location())
		dueDay := startOfDay(due)
		today := startOfDay(localNow)
		switch {
		case dueDay.Before(today):
			b.Urgency = UrgencyOverdue
			b.Reasons = append(b.Reasons, fmt.Sprintf("Overdue since %s", due.Format("2006-01-02")))
		case dueDay.Equal(today):
			b.Urgency = UrgencyDueToday
			b.Reasons = append(b.Reasons, "Due today")
		}
	}

	if task.Priority == blackboard.TaskPriorityHigh {
		b.PriorityBonus = PriorityBonus
		b.Reasons = append(b.Reasons, "Marked high priority")
	}

	st := ScoredTask{TaskID: task.ID, TaskName: task.Name}

	if project, ok := projects[task.ProjectID]; ok {
		st.ProjectID = project.ID
		st.ProjectName = project.Name
		if project.Importance >= importanceThreshold {
			b.ProjectBonus = ProjectBonus
			b.Reasons = append(b.Reasons, fmt.Sprintf("Project %q is important (%d/5)", project.Name, project.Importance))
		}
		if area, ok := areas[project.AreaID]; ok {
			st.AreaID = area.ID
			st.AreaName = area.Name
			if area.Importance >= importanceThreshold {
				b.AreaBonus = AreaBonus
				b.Reasons = append(b.Reasons, fmt.Sprintf("Area %q is important (%d/5)", area.Name, area.Importance))
			}
		}
	}

	if dependenciesMet(task, deps) {
		b.DependencyBonus = DependencyBonus
		if len(task.DependencyIDs) > 0 {
			b.Reasons = append(b.Reasons, "All dependencies completed")
		} else {
			b.Reasons = append(b.Reasons, "Nothing blocking this task")
		}
	} else {
		b.Reasons = append(b.Reasons, "Waiting on incomplete dependencies")
	}

	b.Total = b.Urgency + b.PriorityBonus + b.ProjectBonus + b.AreaBonus + b.DependencyBonus
	st.Score = b.Total
	st.Breakdown = b
	return st
}

// dependenciesMet reports whether every listed dependency is completed.
// An empty dependency list counts as met. A dependency missing from the
// store counts as incomplete.
func dependenciesMet(task *blackboard.Task, deps map[string]*blackboard.Task) bool {
	for _, id := range task.DependencyIDs {
		dep, ok := deps[id]
		if !ok || !dep.Completed() {
			return false
		}
	}
	return true
}

// addCoaching requests one short motivational note per task. A per-task
// failure leaves that task without a note and does not affect the others.
func (s *Scorer) addCoaching(ctx context.Context, tasks []ScoredTask) {
	if s.gen == nil {
		return
	}
	for i := range tasks {
		note, err := s.gen.Send(ctx, coachingPrompt(&tasks[i]))
		if err != nil || note == "" {
			if err != nil {
				log.Printf("[Scorer] Coaching note failed for task %s: %v", tasks[i].TaskID, err)
			}
			continue
		}
		tasks[i].CoachingMessage = note
		tasks[i].AIPowered = true
	}
}

func coachingPrompt(st *ScoredTask) string {
	prompt := fmt.Sprintf("In one or two sentences, motivate the user to work on the task %q today.", st.TaskName)
	if st.ProjectName != "" {
		prompt += fmt.Sprintf(" It belongs to the project %q", st.ProjectName)
		if st.AreaName != "" {
			prompt += fmt.Sprintf(" in the area %q", st.AreaName)
		}
		prompt += "."
	}
	return prompt
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
