package insights

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dyluth/trellis/pkg/blackboard"
)

// GetInsight retrieves a single insight by ID and writes it as
// pretty-printed JSON to the writer. Returns an error if the insight ID is
// invalid or the insight does not exist. Uses IsNotFound() to distinguish
// "not found" errors from other errors.
func GetInsight(ctx context.Context, bbClient *blackboard.Client, insightID string, w io.Writer) error {
	if _, err := uuid.Parse(insightID); err != nil {
		return fmt.Errorf("invalid insight ID format: must be a valid UUID")
	}

	insight, err := bbClient.GetInsight(ctx, insightID)
	if err != nil {
		if blackboard.IsNotFound(err) {
			return &InsightNotFoundError{InsightID: insightID}
		}
		return fmt.Errorf("failed to fetch insight: %w", err)
	}

	if err := FormatSingleJSON(w, insight); err != nil {
		return fmt.Errorf("failed to format insight: %w", err)
	}

	return nil
}

// InsightNotFoundError represents a specific "insight not found" error.
// This allows callers to distinguish not-found errors from other failures.
type InsightNotFoundError struct {
	InsightID string
}

func (e *InsightNotFoundError) Error() string {
	return fmt.Sprintf("insight with ID '%s' not found", e.InsightID)
}

// IsNotFound returns true if the error is an InsightNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*InsightNotFoundError)
	return ok
}
