package insights

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// OutputFormat specifies how to format the insight list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated titles
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete insights as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for the insights list command.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	TypeGlob         string // Glob pattern for insight type, empty = no filter
	EntityType       string // Exact match on entity type, empty = no filter
	IncludeExpired   bool   // When false, insights past their expiry are hidden
}

// matchesFilter returns true if the insight matches all filter criteria.
// nowMs anchors the expiry check.
func (fc *FilterCriteria) matchesFilter(ins *blackboard.Insight, nowMs int64) bool {
	if fc.SinceTimestampMs > 0 && ins.CreatedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && ins.CreatedAtMs > fc.UntilTimestampMs {
		return false
	}

	// Type filtering - glob pattern matching
	if fc.TypeGlob != "" {
		matched, err := filepath.Match(fc.TypeGlob, string(ins.InsightType))
		if err != nil || !matched {
			return false
		}
	}

	if fc.EntityType != "" && string(ins.EntityType) != fc.EntityType {
		return false
	}

	if !fc.IncludeExpired && ins.ExpiresAtMs > 0 && ins.ExpiresAtMs < nowMs {
		return false
	}

	return true
}

// ListInsights retrieves a user's insights and writes them to the provided
// writer. Insights come back from the store oldest first, so the output is
// chronological. Applies filter criteria if provided.
func ListInsights(ctx context.Context, bbClient *blackboard.Client, userID string, format OutputFormat, filters *FilterCriteria, nowMs int64, w io.Writer) error {
	all, err := bbClient.ListInsights(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list insights: %w", err)
	}

	var insights []*blackboard.Insight
	for _, ins := range all {
		if filters != nil && !filters.matchesFilter(ins, nowMs) {
			continue
		}
		insights = append(insights, ins)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, insights, userID, nowMs)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, insights); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
