package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/trellis/internal/augment"
	"github.com/dyluth/trellis/internal/hierarchy"
	"github.com/dyluth/trellis/internal/rules"
	"github.com/dyluth/trellis/pkg/blackboard"
)

// Writer persists synthesized insights. *blackboard.Client satisfies it.
type Writer interface {
	CreateInsight(ctx context.Context, insight *blackboard.Insight) error
}

// Request names one analysis: whose hierarchy, which entity, how deep.
type Request struct {
	UserID     string
	EntityType blackboard.EntityType
	EntityID   string // "" for global analysis
	Depth      blackboard.AnalysisDepth
}

// Analyzer runs the full analysis pipeline: context aggregation, rule
// evaluation, conditional augmentation, synthesis and the store write.
type Analyzer struct {
	aggregator *hierarchy.Aggregator
	engine     *rules.Engine
	adapter    *augment.Adapter
	writer     Writer
	now        func() time.Time
}

// NewAnalyzer wires the pipeline together. writer may be nil (dry run,
// nothing persisted).
func NewAnalyzer(aggregator *hierarchy.Aggregator, engine *rules.Engine, adapter *augment.Adapter, writer Writer) *Analyzer {
	return &Analyzer{
		aggregator: aggregator,
		engine:     engine,
		adapter:    adapter,
		writer:     writer,
		now:        time.Now,
	}
}

// Analyze runs one analysis and always returns a valid insight. Failures
// inside the pipeline degrade step by step; anything that still escapes is
// caught here and converted to an analysis_error insight, so callers never
// see a panic or an error value.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (ins *blackboard.Insight) {
	now := a.now().UTC()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Analyzer] Panic during analysis of %s %s: %v", req.EntityType, req.EntityID, r)
			ins = a.errorInsight(ctx, req, fmt.Sprintf("analysis panicked: %v", r), now)
		}
	}()

	depth := req.Depth
	if depth == "" {
		depth = blackboard.DepthBalanced
	}
	if err := depth.Validate(); err != nil {
		return a.errorInsight(ctx, req, err.Error(), now)
	}
	if err := req.EntityType.Validate(); err != nil {
		return a.errorInsight(ctx, req, err.Error(), now)
	}
	if req.EntityType != blackboard.EntityTypeGlobal && req.EntityID == "" {
		return a.errorInsight(ctx, req, "entity_id is required for non-global analysis", now)
	}

	hctx := a.aggregator.GetContext(ctx, req.UserID, req.EntityType, req.EntityID)
	if !hctx.Found() {
		return a.errorInsight(ctx, req, fmt.Sprintf("%s %s not found", req.EntityType, req.EntityID), now)
	}

	summary := a.engine.Apply(ctx, hctx, req.EntityType)

	var augResult *augment.Result
	if ShouldEscalate(summary, depth, a.engine.Catalog()) {
		augResult = a.adapter.Augment(ctx, hctx, summary, depth)
	}

	insight := Synthesize(req.UserID, req.EntityType, req.EntityID, summary, augResult, now)
	a.write(ctx, insight)
	return insight
}

// write persists the insight when a writer is configured. A write failure
// is logged but never discards the synthesized result.
func (a *Analyzer) write(ctx context.Context, insight *blackboard.Insight) {
	if a.writer == nil {
		return
	}
	if err := a.writer.CreateInsight(ctx, insight); err != nil {
		log.Printf("[Analyzer] Failed to persist insight %s: %v (returning it anyway)", insight.ID, err)
	}
}

// errorInsight is the terminal fallback shape: zero confidence, zero
// impact, one generic recommendation. It is persisted like any other
// insight so the failure is visible to readers.
func (a *Analyzer) errorInsight(ctx context.Context, req Request, reason string, now time.Time) *blackboard.Insight {
	payload, err := json.Marshal(map[string]any{"error": reason})
	if err != nil {
		payload = []byte("{}")
	}

	// The fallback must itself pass Insight.Validate: coerce an unknown
	// entity type, or a non-global type with no entity ID, to global.
	entityType := req.EntityType
	if entityType.Validate() != nil || (entityType != blackboard.EntityTypeGlobal && req.EntityID == "") {
		entityType = blackboard.EntityTypeGlobal
	}

	entityID := req.EntityID
	if entityType == blackboard.EntityTypeGlobal {
		entityID = ""
	}

	ins := &blackboard.Insight{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		EntityType:        entityType,
		EntityID:          entityID,
		InsightType:       blackboard.InsightTypeError,
		Title:             "Analysis Failed",
		Summary:           fmt.Sprintf("The analysis could not be completed: %s", reason),
		DetailedReasoning: string(payload),
		ConfidenceScore:   0,
		ImpactScore:       0,
		Recommendations:   []string{"Re-run the analysis once the underlying data is available."},
		Tags:              []string{string(entityType), string(blackboard.InsightTypeError)},
		CreatedAtMs:       now.UnixMilli(),
	}

	a.write(ctx, ins)
	return ins
}
