package insights

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// FormatTable writes insights as a formatted table to the provided writer.
// The table includes columns: ID, TYPE, ENTITY, CONF, AGE, and TITLE
// (truncated). Returns the number of insights formatted.
func FormatTable(w io.Writer, insights []*blackboard.Insight, userID string, nowMs int64) int {
	if len(insights) == 0 {
		fmt.Fprintf(w, "No insights found for user '%s'\n", userID)
		return 0
	}

	fmt.Fprintf(w, "Insights for user '%s':\n\n", userID)

	fmt.Fprintf(w, "%-10s %-12s %-8s %-5s %-8s %s\n",
		"ID", "TYPE", "ENTITY", "CONF", "AGE", "TITLE")
	fmt.Fprintf(w, "%-10s %-12s %-8s %-5s %-8s %s\n",
		"----------", "------------", "--------", "-----", "--------", "----------------------------------------")

	for _, ins := range insights {
		fmt.Fprintf(w, "%-10s %-12s %-8s %-5s %-8s %s\n",
			formatID(ins.ID),
			formatType(ins.InsightType),
			string(ins.EntityType),
			formatConfidence(ins.ConfidenceScore),
			formatTimestamp(ins.CreatedAtMs, nowMs),
			formatTitle(ins, nowMs),
		)
	}

	countMsg := "insight"
	if len(insights) != 1 {
		countMsg = "insights"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(insights), countMsg)

	return len(insights)
}

// FormatJSONL writes insights as line-delimited JSON (JSONL) to the
// provided writer. Each insight is written as a single JSON object on its
// own line. This format is ideal for streaming and processing with tools
// like jq.
func FormatJSONL(w io.Writer, insights []*blackboard.Insight) error {
	for _, insight := range insights {
		data, err := json.Marshal(insight)
		if err != nil {
			return fmt.Errorf("failed to marshal insight to JSON: %w", err)
		}

		_, err = fmt.Fprintf(w, "%s\n", string(data))
		if err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single insight as pretty-printed JSON to the
// provided writer. Used in get mode to display complete insight details.
func FormatSingleJSON(w io.Writer, insight *blackboard.Insight) error {
	data, err := json.MarshalIndent(insight, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal insight to JSON: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)

	return nil
}

// formatID truncates insight ID to first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatType shortens insight type names for table display.
func formatType(t blackboard.InsightType) string {
	switch t {
	case blackboard.InsightTypePriority:
		return "priority"
	case blackboard.InsightTypeAlignment:
		return "alignment"
	case blackboard.InsightTypeObstacle:
		return "obstacle"
	case blackboard.InsightTypePattern:
		return "pattern"
	case blackboard.InsightTypeRecommendation:
		return "recommend"
	case blackboard.InsightTypeError:
		return "error"
	}

	name := string(t)
	if len(name) > 12 {
		return name[:9] + "..."
	}
	return name
}

// formatTitle truncates the title to 40 characters for table display and
// marks stale insights. Empty titles return "-".
func formatTitle(ins *blackboard.Insight, nowMs int64) string {
	title := strings.TrimSpace(ins.Title)
	if title == "" {
		title = "-"
	}
	if len(title) > 40 {
		title = title[:37] + "..."
	}
	if ins.ExpiresAtMs > 0 && ins.ExpiresAtMs < nowMs {
		title += " (expired)"
	}
	return title
}

// formatConfidence renders the confidence score as a compact percentage.
func formatConfidence(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

// formatTimestamp formats Unix timestamp in milliseconds to human-readable time.
// Shows relative time like "2m ago", "1h ago", etc.
func formatTimestamp(timestampMs, nowMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Duration(nowMs-timestampMs) * time.Millisecond
	if diff < 0 {
		diff = 0
	}

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
