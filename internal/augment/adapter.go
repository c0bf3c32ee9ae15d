package augment

import (
	"context"
	"log"

	"github.com/dyluth/trellis/internal/hierarchy"
	"github.com/dyluth/trellis/internal/llm"
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// UnavailablePenalty is the fixed confidence adjustment applied when the
// generative capability is unconfigured or its call fails.
const UnavailablePenalty = -0.2

// Result is the structured outcome of one augmentation attempt.
type Result struct {
	Available            bool     `json:"llm_available"`
	RawResponse          string   `json:"raw_response,omitempty"` // only set when Available
	Recommendations      []string `json:"recommendations,omitempty"`
	ObstacleSignal       bool     `json:"obstacle_signal,omitempty"`
	ConfidenceAdjustment float64  `json:"confidence_adjustment"` // UnavailablePenalty on failure, 0 on success
}

// Adapter escalates one analysis to the generative capability and parses
// the reply. It never returns an error: failures yield an unavailable
// Result carrying the fixed penalty.
type Adapter struct {
	gen    llm.Generator
	parser Parser
}

// NewAdapter creates an augmentation adapter. gen may be nil (capability
// not configured); a nil parser uses the default KeywordParser.
func NewAdapter(gen llm.Generator, parser Parser) *Adapter {
	if parser == nil {
		parser = KeywordParser{}
	}
	return &Adapter{gen: gen, parser: parser}
}

// Configured reports whether a generative capability is wired in.
func (a *Adapter) Configured() bool {
	return a.gen != nil
}

// Augment builds the depth-scaled prompt, invokes the capability once and
// parses the reply. Any failure - unconfigured capability, transport error,
// empty reply - degrades to {Available: false, ConfidenceAdjustment: -0.2}.
func (a *Adapter) Augment(ctx context.Context, hctx *hierarchy.Context, summary *rules.Summary, depth blackboard.AnalysisDepth) *Result {
	if a.gen == nil {
		return unavailableResult()
	}

	prompt := BuildPrompt(hctx, summary, depth)

	raw, err := a.gen.Send(ctx, prompt)
	if err != nil {
		log.Printf("[Augment] Generative call failed: %v (degrading to rule-only)", err)
		return unavailableResult()
	}
	if raw == "" {
		log.Printf("[Augment] Generative call returned empty reply (degrading to rule-only)")
		return unavailableResult()
	}

	parsed := a.parser.Parse(raw)

	return &Result{
		Available:       true,
		RawResponse:     raw,
		Recommendations: parsed.Recommendations,
		ObstacleSignal:  parsed.ObstacleSignal,
	}
}

func unavailableResult() *Result {
	return &Result{
		Available:            false,
		ConfidenceAdjustment: UnavailablePenalty,
	}
}
