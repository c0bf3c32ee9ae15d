package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/pkg/blackboard"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yml>",
	Short: "Load a goal hierarchy onto the blackboard",
	Long: `Load a pillars/areas/projects/tasks document onto the blackboard.

The document nests the hierarchy the way you think about it:

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
                - name: Long run
                  priority: high
                  due_date: 2026-09-06T09:00:00Z
                  depends_on: ["Buy running shoes"]

Task dependencies reference other tasks in the same document by name and
are validated before anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// hierarchyDoc is the import file layout.
type hierarchyDoc struct {
	Timezone string      `yaml:"timezone,omitempty"`
	Pillars  []pillarDoc `yaml:"pillars"`
}

type pillarDoc struct {
	Name              string    `yaml:"name"`
	TimeAllocationPct float64   `yaml:"time_allocation_pct"`
	Areas             []areaDoc `yaml:"areas,omitempty"`
}

type areaDoc struct {
	Name       string       `yaml:"name"`
	Importance int          `yaml:"importance"`
	Projects   []projectDoc `yaml:"projects,omitempty"`
}

type projectDoc struct {
	Name       string    `yaml:"name"`
	Importance int       `yaml:"importance"`
	Tasks      []taskDoc `yaml:"tasks,omitempty"`
}

type taskDoc struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Status      string   `yaml:"status,omitempty"`
	Priority    string   `yaml:"priority,omitempty"`
	DueDate     string   `yaml:"due_date,omitempty"` // RFC3339
	DependsOn   []string `yaml:"depends_on,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return printer.Error(
			"failed to read hierarchy document",
			err.Error(),
			nil,
		)
	}

	var doc hierarchyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return printer.Error(
			"failed to parse hierarchy document",
			err.Error(),
			[]string{"Check that the file is valid YAML"},
		)
	}

	records, err := buildRecords(&doc, cfg.UserID)
	if err != nil {
		return printer.Error(
			"invalid hierarchy document",
			err.Error(),
			[]string{"Fix the document and re-run the import"},
		)
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	if err := records.write(ctx, client, doc.Timezone, cfg.UserID); err != nil {
		return printer.Error(
			"import failed",
			err.Error(),
			[]string{"The blackboard may hold a partial import; re-running is safe"},
		)
	}

	printer.Success("Imported %d pillar(s), %d area(s), %d project(s), %d task(s)\n",
		len(records.pillars), len(records.areas), len(records.projects), len(records.tasks))
	return nil
}

// importRecords holds the flattened, link-validated hierarchy ready to
// write.
type importRecords struct {
	pillars  []*blackboard.Pillar
	areas    []*blackboard.Area
	projects []*blackboard.Project
	tasks    []*blackboard.Task
}

// buildRecords flattens the document into store records. Runs two passes
// over tasks so depends_on can reference any task in the document by name,
// regardless of order.
func buildRecords(doc *hierarchyDoc, userID string) (*importRecords, error) {
	if len(doc.Pillars) == 0 {
		return nil, fmt.Errorf("document defines no pillars")
	}

	recs := &importRecords{}
	taskIDByName := make(map[string]string)
	taskDeps := make(map[string][]string) // task ID → dependency names

	for _, p := range doc.Pillars {
		if p.Name == "" {
			return nil, fmt.Errorf("pillar with empty name")
		}
		pillar := &blackboard.Pillar{
			ID:                uuid.New().String(),
			UserID:            userID,
			Name:              p.Name,
			TimeAllocationPct: p.TimeAllocationPct,
		}
		recs.pillars = append(recs.pillars, pillar)

		for _, a := range p.Areas {
			if a.Name == "" {
				return nil, fmt.Errorf("area with empty name under pillar %q", p.Name)
			}
			area := &blackboard.Area{
				ID:         uuid.New().String(),
				UserID:     userID,
				PillarID:   pillar.ID,
				Name:       a.Name,
				Importance: a.Importance,
			}
			recs.areas = append(recs.areas, area)

			for _, pr := range a.Projects {
				if pr.Name == "" {
					return nil, fmt.Errorf("project with empty name under area %q", a.Name)
				}
				project := &blackboard.Project{
					ID:         uuid.New().String(),
					UserID:     userID,
					AreaID:     area.ID,
					Name:       pr.Name,
					Importance: pr.Importance,
				}
				recs.projects = append(recs.projects, project)

				for _, td := range pr.Tasks {
					task, err := buildTask(&td, userID, project.ID)
					if err != nil {
						return nil, fmt.Errorf("task %q under project %q: %w", td.Name, pr.Name, err)
					}
					if _, dup := taskIDByName[task.Name]; dup {
						return nil, fmt.Errorf("duplicate task name %q (depends_on references would be ambiguous)", task.Name)
					}
					taskIDByName[task.Name] = task.ID
					taskDeps[task.ID] = td.DependsOn
					recs.tasks = append(recs.tasks, task)
				}
			}
		}
	}

	// Second pass: resolve dependency names to IDs.
	for _, task := range recs.tasks {
		for _, depName := range taskDeps[task.ID] {
			depID, ok := taskIDByName[depName]
			if !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", task.Name, depName)
			}
			if depID == task.ID {
				return nil, fmt.Errorf("task %q depends on itself", task.Name)
			}
			task.DependencyIDs = append(task.DependencyIDs, depID)
		}
	}

	return recs, nil
}

func buildTask(td *taskDoc, userID, projectID string) (*blackboard.Task, error) {
	if td.Name == "" {
		return nil, fmt.Errorf("empty name")
	}

	status := blackboard.TaskStatus(td.Status)
	if err := status.Validate(); err != nil {
		return nil, err
	}

	task := &blackboard.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		ProjectID:   projectID,
		Name:        td.Name,
		Description: td.Description,
		Status:      status,
		Priority:    td.Priority,
	}

	if td.DueDate != "" {
		dueMs, err := parseDueDate(td.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDateMs = dueMs
	}

	return task, nil
}

// parseDueDate accepts RFC3339 or a bare date.
func parseDueDate(spec string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.Parse("2006-01-02", spec); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, fmt.Errorf("invalid due_date %q (use RFC3339 like '2026-09-06T09:00:00Z' or '2026-09-06')", spec)
}

func (r *importRecords) write(ctx context.Context, client *blackboard.Client, timezone, userID string) error {
	for _, p := range r.pillars {
		if err := client.CreatePillar(ctx, p); err != nil {
			return fmt.Errorf("pillar %q: %w", p.Name, err)
		}
	}
	for _, a := range r.areas {
		if err := client.CreateArea(ctx, a); err != nil {
			return fmt.Errorf("area %q: %w", a.Name, err)
		}
	}
	for _, p := range r.projects {
		if err := client.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("project %q: %w", p.Name, err)
		}
	}
	for _, t := range r.tasks {
		if err := client.CreateTask(ctx, t); err != nil {
			return fmt.Errorf("task %q: %w", t.Name, err)
		}
	}

	if timezone != "" {
		profile := &blackboard.UserProfile{UserID: userID, Timezone: timezone}
		if err := client.PutUserProfile(ctx, profile); err != nil {
			return fmt.Errorf("user profile: %w", err)
		}
	}

	return nil
}
