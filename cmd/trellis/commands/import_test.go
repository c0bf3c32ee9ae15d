package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/trellis/pkg/blackboard"
)

func parseDoc(t *testing.T, content string) *hierarchyDoc {
	t.Helper()
	var doc hierarchyDoc
	require.NoError(t, yaml.Unmarshal([]byte(content), &doc))
	return &doc
}

const sampleDoc = `
timezone: Europe/London
pillars:
  - name: Health
    time_allocation_pct: 30
    areas:
      - name: Fitness
        importance: 5
        projects:
          - name: Marathon
            importance: 4
            tasks:
              - name: Buy running shoes
                priority: high
              - name: Long run
                status: todo
                due_date: 2026-09-06T09:00:00Z
                depends_on: ["Buy running shoes"]
`

func TestBuildRecords(t *testing.T) {
	recs, err := buildRecords(parseDoc(t, sampleDoc), "user-1")
	require.NoError(t, err)

	require.Len(t, recs.pillars, 1)
	require.Len(t, recs.areas, 1)
	require.Len(t, recs.projects, 1)
	require.Len(t, recs.tasks, 2)

	assert.Equal(t, "Health", recs.pillars[0].Name)
	assert.Equal(t, recs.pillars[0].ID, recs.areas[0].PillarID)
	assert.Equal(t, recs.areas[0].ID, recs.projects[0].AreaID)

	shoes, run := recs.tasks[0], recs.tasks[1]
	assert.Equal(t, recs.projects[0].ID, run.ProjectID)
	assert.Equal(t, []string{shoes.ID}, run.DependencyIDs)
	assert.Equal(t, blackboard.TaskStatusTodo, run.Status)
	assert.NotZero(t, run.DueDateMs)
	assert.Equal(t, "high", shoes.Priority)
}

func TestBuildRecordsValidation(t *testing.T) {
	cases := []struct {
		name   string
		doc    string
		errMsg string
	}{
		{
			name:   "no pillars",
			doc:    "timezone: UTC\n",
			errMsg: "no pillars",
		},
		{
			name: "unknown dependency",
			doc: `
pillars:
  - name: P
    areas:
      - name: A
        projects:
          - name: Pr
            tasks:
              - name: T
                depends_on: ["Ghost"]
`,
			errMsg: "unknown task",
		},
		{
			name: "self dependency",
			doc: `
pillars:
  - name: P
    areas:
      - name: A
        projects:
          - name: Pr
            tasks:
              - name: T
                depends_on: ["T"]
`,
			errMsg: "depends on itself",
		},
		{
			name: "duplicate task names",
			doc: `
pillars:
  - name: P
    areas:
      - name: A
        projects:
          - name: Pr
            tasks:
              - name: T
              - name: T
`,
			errMsg: "duplicate task name",
		},
		{
			name: "invalid status",
			doc: `
pillars:
  - name: P
    areas:
      - name: A
        projects:
          - name: Pr
            tasks:
              - name: T
                status: paused
`,
			errMsg: "task",
		},
		{
			name: "invalid due date",
			doc: `
pillars:
  - name: P
    areas:
      - name: A
        projects:
          - name: Pr
            tasks:
              - name: T
                due_date: next tuesday
`,
			errMsg: "invalid due_date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildRecords(parseDoc(t, tc.doc), "user-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestParseDueDate(t *testing.T) {
	t.Run("RFC3339", func(t *testing.T) {
		ms, err := parseDueDate("2026-09-06T09:00:00Z")
		require.NoError(t, err)
		assert.NotZero(t, ms)
	})

	t.Run("bare date", func(t *testing.T) {
		ms, err := parseDueDate("2026-09-06")
		require.NoError(t, err)
		assert.NotZero(t, ms)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseDueDate("soon")
		assert.Error(t, err)
	})
}
