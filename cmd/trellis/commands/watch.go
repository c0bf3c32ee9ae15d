package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/trellis/internal/printer"
	"github.com/dyluth/trellis/internal/watch"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream insights as they are written",
	Long: `Stream insight events from the blackboard as analyses produce them.

Useful alongside a second terminal running analyses, or to feed another
process with everything the engine concludes.

Output Formats:
  default - Human-readable one-line events
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch insights arrive
  trellis watch

  # Export events as JSON
  trellis watch --output=json > insights.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch.StreamInsights(ctx, client, outputFormat, os.Stdout)
}
