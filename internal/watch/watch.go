package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// OutputFormat specifies how streamed insight events are rendered.
type OutputFormat string

const (
	// OutputFormatDefault renders human-readable one-line events
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON renders line-delimited JSON for scripting
	OutputFormatJSON OutputFormat = "json"
)

// StreamInsights subscribes to the insight event channel and writes each
// event to w as it arrives. Blocks until ctx is cancelled or the
// subscription closes. Malformed events are reported inline and skipped.
func StreamInsights(ctx context.Context, client *blackboard.Client, format OutputFormat, w io.Writer) error {
	sub, err := client.SubscribeInsightEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to insight events: %w", err)
	}
	defer sub.Close()

	if format == OutputFormatDefault {
		fmt.Fprintf(w, "Watching for insights (Ctrl+C to stop)...\n\n")
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "⚠️  Skipping malformed event: %v\n", err)

		case insight, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(w, insight, format); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w io.Writer, insight *blackboard.Insight, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(insight)
		if err != nil {
			return fmt.Errorf("failed to marshal insight event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	created := time.UnixMilli(insight.CreatedAtMs).Format("15:04:05")
	_, err := fmt.Fprintf(w, "[%s] %s %s %s (confidence %.0f%%)\n",
		created,
		eventMarker(insight.InsightType),
		insight.InsightType,
		insight.Title,
		insight.ConfidenceScore*100,
	)
	return err
}

func eventMarker(t blackboard.InsightType) string {
	switch t {
	case blackboard.InsightTypeObstacle:
		return "🚧"
	case blackboard.InsightTypeError:
		return "❌"
	case blackboard.InsightTypePriority:
		return "🔥"
	default:
		return "💡"
	}
}
