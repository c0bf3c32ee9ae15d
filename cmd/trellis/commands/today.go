package commands

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/internal/scorer"
)

var (
	todayTopN int
	todayJSON bool
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Rank today's tasks with an explained score breakdown",
	Long: `Rank your incomplete tasks for today.

Each task gets a five-component score: urgency (overdue or due today),
stated priority, project importance, area importance, and whether its
dependencies are all complete. The breakdown is printed alongside the
score so the ranking is never a black box.

When a generative capability is configured, the top tasks also carry a
short coaching note.

Examples:
  # Your top tasks for today
  trellis today

  # More of the list, as JSON
  trellis today --top 10 --json`,
	RunE: runToday,
}

func init() {
	todayCmd.Flags().IntVarP(&todayTopN, "top", "t", 3, "How many tasks to return")
	todayCmd.Flags().BoolVar(&todayJSON, "json", false, "Print the day plan as JSON")
	rootCmd.AddCommand(todayCmd)
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	topN := cfg.Scoring.TopN
	if cmd.Flags().Changed("top") {
		topN = todayTopN
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	plan := scorer.NewScorer(client, generator(cfg)).ScoreToday(context.Background(), cfg.UserID, topN)

	if todayJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	printer.Info("Plan for %s\n", plan.Date)

	if len(plan.Tasks) == 0 {
		printer.Info("\nNothing to do - no incomplete tasks found.\n")
		return nil
	}

	for i, st := range plan.Tasks {
		printer.Info("\n%d. %s (%d points)\n", i+1, st.TaskName, st.Score)
		if st.ProjectName != "" {
			if st.AreaName != "" {
				printer.Info("   %s / %s\n", st.AreaName, st.ProjectName)
			} else {
				printer.Info("   %s\n", st.ProjectName)
			}
		}
		for _, reason := range st.Breakdown.Reasons {
			printer.Info("   • %s\n", reason)
		}
		if st.CoachingMessage != "" {
			printer.Info("   💬 %s\n", st.CoachingMessage)
		}
	}

	return nil
}
