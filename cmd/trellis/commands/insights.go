package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/insights"
	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/internal/resolver"
	"github.com/dyluth/trellis/internal/timespec"
)

var (
	insightsSince          string
	insightsUntil          string
	insightsTypeGlob       string
	insightsEntityType     string
	insightsOutputFormat   string
	insightsIncludeExpired bool
)

var insightsCmd = &cobra.Command{
	Use:   "insights [INSIGHT_ID]",
	Short: "Inspect stored insights",
	Long: `Inspect stored insights in list or get mode.

List Mode (no INSIGHT_ID):
  Displays an overview of the user's insights as a table or JSONL.
  Expired insights are hidden unless --include-expired is set.

Get Mode (with INSIGHT_ID):
  Displays complete details of a single insight as pretty-printed JSON.
  Accepts a full UUID or a unique prefix of at least 6 characters.

Examples:
  # List current insights
  trellis insights

  # Only obstacle insights about tasks, from the last day
  trellis insights --type 'obstacle_*' --entity task --since 24h

  # Pipe to jq
  trellis insights --output jsonl | jq 'select(.confidence_score > 0.8)'

  # Inspect one insight by short ID
  trellis insights 4f8a2c`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInsights,
}

func init() {
	insightsCmd.Flags().StringVar(&insightsSince, "since", "", "Only insights created after this time ('1h30m', '2026-08-31' or RFC3339)")
	insightsCmd.Flags().StringVar(&insightsUntil, "until", "", "Only insights created before this time ('1h30m', '2026-08-31' or RFC3339)")
	insightsCmd.Flags().StringVar(&insightsTypeGlob, "type", "", "Filter by insight type glob, e.g. 'priority_*'")
	insightsCmd.Flags().StringVar(&insightsEntityType, "entity", "", "Filter by entity type: pillar, area, project, task or global")
	insightsCmd.Flags().StringVarP(&insightsOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	insightsCmd.Flags().BoolVar(&insightsIncludeExpired, "include-expired", false, "Show insights past their expiry")
	rootCmd.AddCommand(insightsCmd)
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	isGetMode := len(args) > 0

	var outputFormat insights.OutputFormat
	if !isGetMode {
		switch insightsOutputFormat {
		case "default":
			outputFormat = insights.OutputFormatDefault
		case "jsonl":
			outputFormat = insights.OutputFormatJSONL
		default:
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", insightsOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	if isGetMode {
		insightID, err := resolver.ResolveInsightID(ctx, client, args[0])
		if err != nil {
			if ambiguous, ok := err.(*resolver.AmbiguousError); ok {
				fmt.Fprintln(os.Stderr, resolver.FormatAmbiguousError(ambiguous))
				return fmt.Errorf("ambiguous insight ID")
			}
			if resolver.IsNotFoundError(err) {
				return printer.Error(
					fmt.Sprintf("no insight matches '%s'", args[0]),
					"The prefix did not match any stored insight.",
					[]string{"List insights:\n  trellis insights"},
				)
			}
			return err
		}
		return insights.GetInsight(ctx, client, insightID, os.Stdout)
	}

	sinceMs, untilMs, err := timespec.ParseRange(insightsSince, insightsUntil)
	if err != nil {
		return printer.Error(
			"invalid time range",
			err.Error(),
			[]string{"Use a duration like '1h30m' or an RFC3339 timestamp"},
		)
	}

	filters := &insights.FilterCriteria{
		SinceTimestampMs: sinceMs,
		UntilTimestampMs: untilMs,
		TypeGlob:         insightsTypeGlob,
		EntityType:       insightsEntityType,
		IncludeExpired:   insightsIncludeExpired,
	}

	return insights.ListInsights(ctx, client, cfg.UserID, outputFormat, filters, time.Now().UnixMilli(), os.Stdout)
}
