package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/augment"
	"github.com/dyluth/trellis/internal/hierarchy"
	"github.com/dyluth/trellis/internal/insight"
	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

var (
	analyzeDepth string
	analyzeJSON  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <pillar|area|project|task|global> [id]",
	Short: "Analyze one entity (or everything) and store the insight",
	Long: `Run the full analysis pipeline against one entity, or the whole
hierarchy with 'global'.

The pipeline aggregates the entity's context, evaluates every applicable
rule, escalates to the generative capability when the depth or the rule
signal calls for it, and stores the synthesized insight on the
blackboard.

Depths:
  minimal  - rules only, unless a rule demands escalation
  balanced - escalates unless the rule signal is decisive (default)
  detailed - always escalates, with a structured response format

Examples:
  # Analyze a task by ID
  trellis analyze task 4f8a2c1e-...

  # Quick rule-only pass over a project
  trellis analyze project 9b1d... --depth minimal

  # Whole-hierarchy review as JSON
  trellis analyze global --depth detailed --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeDepth, "depth", "d", "", "Analysis depth: minimal, balanced or detailed (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the insight as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entityType := blackboard.EntityType(args[0])
	if err := entityType.Validate(); err != nil {
		return printer.Error(
			"unknown entity type",
			fmt.Sprintf("%q is not an entity type.", args[0]),
			[]string{"Valid types: pillar, area, project, task, global"},
		)
	}

	var entityID string
	if len(args) > 1 {
		entityID = args[1]
	}
	if entityType != blackboard.EntityTypeGlobal && entityID == "" {
		return printer.Error(
			"missing entity ID",
			fmt.Sprintf("Analyzing a %s needs its ID.", entityType),
			[]string{fmt.Sprintf("trellis analyze %s <id>", entityType)},
		)
	}

	depth := cfg.DefaultDepth()
	if analyzeDepth != "" {
		depth = blackboard.AnalysisDepth(analyzeDepth)
		if err := depth.Validate(); err != nil {
			return printer.Error(
				"invalid depth",
				fmt.Sprintf("%q is not an analysis depth.", analyzeDepth),
				[]string{"Valid depths: minimal, balanced, detailed"},
			)
		}
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	catalog := rules.NewCatalog(client)
	engine, err := rules.NewEngine(catalog)
	if err != nil {
		return printer.Error(
			"failed to build rule engine",
			err.Error(),
			nil,
		)
	}

	analyzer := insight.NewAnalyzer(
		hierarchy.NewAggregator(client),
		engine,
		augment.NewAdapter(generator(cfg), nil),
		client,
	)

	ins := analyzer.Analyze(context.Background(), insight.Request{
		UserID:     cfg.UserID,
		EntityType: entityType,
		EntityID:   entityID,
		Depth:      depth,
	})

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ins)
	}

	printInsight(ins)
	return nil
}

// printInsight renders one insight for humans.
func printInsight(ins *blackboard.Insight) {
	if ins.InsightType == blackboard.InsightTypeError {
		printer.Warning("%s\n", ins.Title)
	} else {
		printer.Success("%s\n", ins.Title)
	}
	printer.Info("\n%s\n", ins.Summary)
	printer.Info("\nType: %s   Confidence: %.0f%%   Impact: %.0f%%\n",
		ins.InsightType, ins.ConfidenceScore*100, ins.ImpactScore*100)

	if len(ins.ReasoningPath) > 0 {
		printer.Info("\nReasoning:\n")
		for _, step := range ins.ReasoningPath {
			printer.Info("  • %s\n", step)
		}
	}

	if len(ins.Recommendations) > 0 {
		printer.Info("\nRecommendations:\n")
		for i, rec := range ins.Recommendations {
			printer.Info("  %d. %s\n", i+1, rec)
		}
	}

	if len(ins.Tags) > 0 {
		printer.Info("\nTags: %s\n", strings.Join(ins.Tags, ", "))
	}
	printer.Info("Insight ID: %s\n", ins.ID)
}
