package insight

import (
	"encoding/json"
	"fmt"

	"github.com/dyluth/trellis/internal/augment"
	"github.com/dyluth/trellis/internal/rules"
)

// Reasoning is the full merged evaluation detail behind one insight. The
// Augmentation pointer is nil when the generative capability was not
// invoked; it never carries an empty placeholder.
type Reasoning struct {
	Rules        *rules.Summary
	Augmentation *augment.Result
}

// ToMap flattens the reasoning into the generic shape stored with the
// insight. The llm_insights key is present only when augmentation ran.
func (r *Reasoning) ToMap() map[string]any {
	m := map[string]any{
		"rule_evaluation": r.Rules,
	}
	if r.Augmentation != nil {
		m["llm_insights"] = r.Augmentation
	}
	return m
}

// Encode serializes the reasoning into the opaque JSON payload carried by
// the stored insight.
func (r *Reasoning) Encode() (string, error) {
	data, err := json.Marshal(r.ToMap())
	if err != nil {
		return "", fmt.Errorf("failed to encode reasoning payload: %w", err)
	}
	return string(data), nil
}
