package scorer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/trellis/pkg/blackboard"
)

const testUser = "user-1"

// fakeStore serves in-memory records and supports per-call error
// injection.
type fakeStore struct {
	profile  *blackboard.UserProfile
	tasks    []*blackboard.Task
	projects map[string]*blackboard.Project
	areas    map[string]*blackboard.Area
	byID     map[string]*blackboard.Task

	listTasksErr error
	profileErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[string]*blackboard.Project),
		areas:    make(map[string]*blackboard.Area),
		byID:     make(map[string]*blackboard.Task),
	}
}

func (f *fakeStore) GetUserProfile(ctx context.Context, userID string) (*blackboard.UserProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile == nil {
		return nil, errors.New("profile not found")
	}
	return f.profile, nil
}

func (f *fakeStore) ListTasks(ctx context.Context, userID string) ([]*blackboard.Task, error) {
	if f.listTasksErr != nil {
		return nil, f.listTasksErr
	}
	return f.tasks, nil
}

func (f *fakeStore) ListProjectsByIDs(ctx context.Context, ids []string) ([]*blackboard.Project, error) {
	var out []*blackboard.Project
	for _, id := range ids {
		if p, ok := f.projects[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAreasByIDs(ctx context.Context, ids []string) ([]*blackboard.Area, error) {
	var out []*blackboard.Area
	for _, id := range ids {
		if a, ok := f.areas[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTasksByIDs(ctx context.Context, ids []string) ([]*blackboard.Task, error) {
	var out []*blackboard.Task
	for _, id := range ids {
		if t, ok := f.byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) addTask(t *blackboard.Task) *blackboard.Task {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.UserID = testUser
	f.tasks = append(f.tasks, t)
	f.byID[t.ID] = t
	return t
}

// coachGen answers every coaching request, optionally failing on a
// prompt substring.
type coachGen struct {
	failOn string
	calls  int
}

func (g *coachGen) Send(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.failOn != "" && strings.Contains(prompt, g.failOn) {
		return "", errors.New("model offline")
	}
	return "You have got this.", nil
}

func fixedNow() time.Time {
	return time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
}

func newTestScorer(store Store, gen *coachGen) *Scorer {
	var s *Scorer
	if gen != nil {
		s = NewScorer(store, gen)
	} else {
		s = NewScorer(store, nil)
	}
	s.now = fixedNow
	return s
}

func TestScoreBreakdownMaxedOut(t *testing.T) {
	store := newFakeStore()

	area := &blackboard.Area{ID: uuid.New().String(), UserID: testUser, Name: "Fitness", Importance: 5}
	project := &blackboard.Project{ID: uuid.New().String(), UserID: testUser, AreaID: area.ID, Name: "Marathon", Importance: 5}
	store.areas[area.ID] = area
	store.projects[project.ID] = project

	store.addTask(&blackboard.Task{
		Name:      "Long run",
		ProjectID: project.ID,
		Priority:  blackboard.TaskPriorityHigh,
		DueDateMs: fixedNow().Add(-24 * time.Hour).UnixMilli(), // due yesterday
	})

	plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
	require.Len(t, plan.Tasks, 1)

	got := plan.Tasks[0]
	assert.Equal(t, Breakdown{
		Urgency:         100,
		PriorityBonus:   30,
		ProjectBonus:    50,
		AreaBonus:       25,
		DependencyBonus: 60,
		Total:           265,
		Reasons:         got.Breakdown.Reasons,
	}, got.Breakdown)
	assert.Equal(t, 265, got.Score)
	assert.Equal(t, "Marathon", got.ProjectName)
	assert.Equal(t, "Fitness", got.AreaName)
	assert.NotEmpty(t, got.Breakdown.Reasons)
}

func TestScoreBareTask(t *testing.T) {
	// No due date, low priority, no project: only the vacuous dependency
	// bonus applies.
	store := newFakeStore()
	store.addTask(&blackboard.Task{Name: "Sort photos", Priority: blackboard.TaskPriorityLow})

	plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
	require.Len(t, plan.Tasks, 1)

	b := plan.Tasks[0].Breakdown
	assert.Equal(t, 0, b.Urgency)
	assert.Equal(t, 0, b.PriorityBonus)
	assert.Equal(t, 0, b.ProjectBonus)
	assert.Equal(t, 0, b.AreaBonus)
	assert.Equal(t, 60, b.DependencyBonus)
	assert.Equal(t, 60, b.Total)
}

func TestScoreUrgencyLadder(t *testing.T) {
	cases := []struct {
		name    string
		due     time.Duration
		hasDue  bool
		urgency int
	}{
		{"overdue", -48 * time.Hour, true, 100},
		{"due today", 2 * time.Hour, true, 80},
		{"due next week", 7 * 24 * time.Hour, true, 0},
		{"no due date", 0, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			task := &blackboard.Task{Name: "t"}
			if tc.hasDue {
				task.DueDateMs = fixedNow().Add(tc.due).UnixMilli()
			}
			store.addTask(task)

			plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
			require.Len(t, plan.Tasks, 1)
			assert.Equal(t, tc.urgency, plan.Tasks[0].Breakdown.Urgency)
		})
	}
}

func TestScoreDependencies(t *testing.T) {
	store := newFakeStore()

	done := store.addTask(&blackboard.Task{Name: "done dep", Status: blackboard.TaskStatusDone})
	open := store.addTask(&blackboard.Task{Name: "open dep", Status: blackboard.TaskStatusTodo})

	unblocked := store.addTask(&blackboard.Task{Name: "unblocked", DependencyIDs: []string{done.ID}})
	blocked := store.addTask(&blackboard.Task{Name: "blocked", DependencyIDs: []string{done.ID, open.ID}})
	ghost := store.addTask(&blackboard.Task{Name: "ghost dep", DependencyIDs: []string{uuid.New().String()}})

	plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)

	byName := make(map[string]ScoredTask)
	for _, st := range plan.Tasks {
		byName[st.TaskName] = st
	}

	assert.Equal(t, 60, byName[unblocked.Name].Breakdown.DependencyBonus)
	assert.Equal(t, 0, byName[blocked.Name].Breakdown.DependencyBonus)
	assert.Equal(t, 0, byName[ghost.Name].Breakdown.DependencyBonus)
}

func TestScoreFiltersCompletedTasks(t *testing.T) {
	store := newFakeStore()
	store.addTask(&blackboard.Task{Name: "open", Status: blackboard.TaskStatusTodo})
	store.addTask(&blackboard.Task{Name: "reviewing", Status: blackboard.TaskStatusReview})
	store.addTask(&blackboard.Task{Name: "unset status"})
	store.addTask(&blackboard.Task{Name: "finished", Status: blackboard.TaskStatusDone})

	plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)

	require.Len(t, plan.Tasks, 3)
	for _, st := range plan.Tasks {
		assert.NotEqual(t, "finished", st.TaskName)
	}
}

func TestScoreStableSort(t *testing.T) {
	// Three tasks share a total of 60; their fetch order must survive the
	// sort. A high-priority task outranks them all.
	store := newFakeStore()
	store.addTask(&blackboard.Task{Name: "first"})
	store.addTask(&blackboard.Task{Name: "second"})
	store.addTask(&blackboard.Task{Name: "third"})
	store.addTask(&blackboard.Task{Name: "urgent", Priority: blackboard.TaskPriorityHigh})

	plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)

	require.Len(t, plan.Tasks, 4)
	assert.Equal(t, "urgent", plan.Tasks[0].TaskName)
	assert.Equal(t, "first", plan.Tasks[1].TaskName)
	assert.Equal(t, "second", plan.Tasks[2].TaskName)
	assert.Equal(t, "third", plan.Tasks[3].TaskName)
}

func TestScoreTopN(t *testing.T) {
	store := newFakeStore()
	for _, name := range []string{"a", "b", "c"} {
		store.addTask(&blackboard.Task{Name: name})
	}
	scorer := newTestScorer(store, nil)
	ctx := context.Background()

	t.Run("zero returns an empty plan", func(t *testing.T) {
		plan := scorer.ScoreToday(ctx, testUser, 0)
		assert.NotEmpty(t, plan.Date)
		assert.Empty(t, plan.Tasks)
	})

	t.Run("negative behaves like zero", func(t *testing.T) {
		plan := scorer.ScoreToday(ctx, testUser, -3)
		assert.Empty(t, plan.Tasks)
	})

	t.Run("truncates to n", func(t *testing.T) {
		plan := scorer.ScoreToday(ctx, testUser, 2)
		assert.Len(t, plan.Tasks, 2)
	})
}

func TestScoreTimezone(t *testing.T) {
	t.Run("profile timezone shifts the date", func(t *testing.T) {
		store := newFakeStore()
		store.profile = &blackboard.UserProfile{UserID: testUser, Timezone: "Pacific/Auckland"}
		store.addTask(&blackboard.Task{Name: "t"})

		// 12:00 UTC on 2026-05-20 is already 2026-05-21 in Auckland.
		plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
		assert.Equal(t, "2026-05-21", plan.Date)
	})

	t.Run("missing profile falls back to UTC", func(t *testing.T) {
		store := newFakeStore()
		store.profileErr = errors.New("store down")
		store.addTask(&blackboard.Task{Name: "t"})

		plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
		assert.Equal(t, "2026-05-20", plan.Date)
	})

	t.Run("unknown timezone falls back to UTC", func(t *testing.T) {
		store := newFakeStore()
		store.profile = &blackboard.UserProfile{UserID: testUser, Timezone: "Mars/Olympus"}
		store.addTask(&blackboard.Task{Name: "t"})

		plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
		assert.Equal(t, "2026-05-20", plan.Date)
	})
}

func TestScoreTaskFetchFailure(t *testing.T) {
	store := newFakeStore()
	store.listTasksErr = errors.New("store down")

	plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)

	require.NotNil(t, plan)
	assert.Empty(t, plan.Tasks)
	assert.NotEmpty(t, plan.Date)
	assert.NotEmpty(t, plan.GeneratedAt)
}

func TestCoaching(t *testing.T) {
	t.Run("notes on every returned task", func(t *testing.T) {
		store := newFakeStore()
		store.addTask(&blackboard.Task{Name: "walk"})
		store.addTask(&blackboard.Task{Name: "read"})
		gen := &coachGen{}

		plan := newTestScorer(store, gen).ScoreToday(context.Background(), testUser, 10)

		require.Len(t, plan.Tasks, 2)
		assert.Equal(t, 2, gen.calls)
		for _, st := range plan.Tasks {
			assert.Equal(t, "You have got this.", st.CoachingMessage)
			assert.True(t, st.AIPowered)
		}
	})

	t.Run("per-task failure is isolated", func(t *testing.T) {
		store := newFakeStore()
		store.addTask(&blackboard.Task{Name: "walk"})
		store.addTask(&blackboard.Task{Name: "read"})
		gen := &coachGen{failOn: "walk"}

		plan := newTestScorer(store, gen).ScoreToday(context.Background(), testUser, 10)

		byName := make(map[string]ScoredTask)
		for _, st := range plan.Tasks {
			byName[st.TaskName] = st
		}
		assert.Empty(t, byName["walk"].CoachingMessage)
		assert.False(t, byName["walk"].AIPowered)
		assert.Equal(t, "You have got this.", byName["read"].CoachingMessage)
		assert.True(t, byName["read"].AIPowered)
	})

	t.Run("no generator means no notes", func(t *testing.T) {
		store := newFakeStore()
		store.addTask(&blackboard.Task{Name: "walk"})

		plan := newTestScorer(store, nil).ScoreToday(context.Background(), testUser, 10)
		require.Len(t, plan.Tasks, 1)
		assert.False(t, plan.Tasks[0].AIPowered)
	})
}
