// Package blackboard provides type-safe Go definitions and Redis schema patterns
// for the Trellis blackboard. The blackboard is the shared store where the
// reasoning engine reads the user's goal hierarchy (pillars, areas, projects,
// tasks) and appends the insights it produces.
//
// All Redis keys and channels are namespaced by instance name to enable
// multiple Trellis instances to safely coexist on a single Redis server.
package blackboard

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityType identifies a level of the goal hierarchy, or the whole
// hierarchy when analysis is requested globally.
type EntityType string

const (
	// EntityTypePillar is the broadest level: a life domain with a time allocation
	EntityTypePillar EntityType = "pillar"

	// EntityTypeArea is a focus area within a pillar
	EntityTypeArea EntityType = "area"

	// EntityTypeProject is a concrete initiative within an area
	EntityTypeProject EntityType = "project"

	// EntityTypeTask is the most granular level: a single actionable item
	EntityTypeTask EntityType = "task"

	// EntityTypeGlobal addresses the user's whole hierarchy rather than one record
	EntityTypeGlobal EntityType = "global"
)

// Validate checks if the EntityType is a valid enum value.
func (et EntityType) Validate() error {
	switch et {
	case EntityTypePillar, EntityTypeArea, EntityTypeProject, EntityTypeTask, EntityTypeGlobal:
		return nil
	default:
		return fmt.Errorf("unknown entity type: %q", et)
	}
}

// TaskStatus defines the lifecycle state of a task.
// An empty status is treated as "not started" by the engine.
type TaskStatus string

const (
	// TaskStatusTodo indicates the task has not been started
	TaskStatusTodo TaskStatus = "todo"

	// TaskStatusInProgress indicates the task is actively being worked
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusReview indicates the task is awaiting review
	TaskStatusReview TaskStatus = "review"

	// TaskStatusDone indicates the task is completed
	TaskStatusDone TaskStatus = "done"
)

// Validate checks if the TaskStatus is a valid enum value.
// The empty string is valid and means "unset".
func (ts TaskStatus) Validate() error {
	switch ts {
	case "", TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return nil
	default:
		return fmt.Errorf("unknown task status: %q", ts)
	}
}

// Task priority values recognised by the engine. Priorities are stored as
// free-form strings; only "high" carries scoring weight.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// AnalysisDepth controls how much work the insight pipeline does: whether
// generative augmentation is considered and how verbose its prompt is.
type AnalysisDepth string

const (
	// DepthMinimal runs rules only unless another escalation trigger fires
	DepthMinimal AnalysisDepth = "minimal"

	// DepthBalanced is the default: escalates unless rule output is decisive
	DepthBalanced AnalysisDepth = "balanced"

	// DepthDetailed always escalates and requests the full augmentation format
	DepthDetailed AnalysisDepth = "detailed"
)

// Validate checks if the AnalysisDepth is a valid enum value.
func (d AnalysisDepth) Validate() error {
	switch d {
	case DepthMinimal, DepthBalanced, DepthDetailed:
		return nil
	default:
		return fmt.Errorf("unknown analysis depth: %q", d)
	}
}

// InsightType classifies what a synthesized insight is about.
type InsightType string

const (
	// InsightTypePriority explains why an entity is (or is not) a priority
	InsightTypePriority InsightType = "priority_reasoning"

	// InsightTypeAlignment analyses how well an entity aligns with its pillar
	InsightTypeAlignment InsightType = "alignment_analysis"

	// InsightTypeObstacle identifies something blocking progress
	InsightTypeObstacle InsightType = "obstacle_identification"

	// InsightTypePattern captures a recurring behaviour across entities
	InsightTypePattern InsightType = "pattern_recognition"

	// InsightTypeRecommendation is the catch-all advisory type
	InsightTypeRecommendation InsightType = "recommendation"

	// InsightTypeError marks the terminal fallback when analysis itself failed
	InsightTypeError InsightType = "analysis_error"
)

// Validate checks if the InsightType is a valid enum value.
func (it InsightType) Validate() error {
	switch it {
	case InsightTypePriority, InsightTypeAlignment, InsightTypeObstacle,
		InsightTypePattern, InsightTypeRecommendation, InsightTypeError:
		return nil
	default:
		return fmt.Errorf("unknown insight type: %q", it)
	}
}

// Pillar is the broadest hierarchy level: a life domain such as "Health"
// with a stated share of the user's time.
type Pillar struct {
	ID                string  `json:"id"`                  // UUID
	UserID            string  `json:"user_id"`             // Owning user
	Name              string  `json:"name"`                // Display name
	TimeAllocationPct float64 `json:"time_allocation_pct"` // Intended share of the user's time, 0-100
	CreatedAtMs       int64   `json:"created_at_ms"`       // Unix timestamp in milliseconds
}

// Area is a focus area within a pillar, e.g. "Strength training" under "Health".
type Area struct {
	ID          string `json:"id"`            // UUID
	UserID      string `json:"user_id"`       // Owning user
	PillarID    string `json:"pillar_id"`     // Parent pillar UUID ("" if unlinked)
	Name        string `json:"name"`          // Display name
	Importance  int    `json:"importance"`    // 1 (lowest) to 5 (highest)
	CreatedAtMs int64  `json:"created_at_ms"` // Unix timestamp in milliseconds
}

// Project is a concrete initiative within an area.
type Project struct {
	ID          string `json:"id"`            // UUID
	UserID      string `json:"user_id"`       // Owning user
	AreaID      string `json:"area_id"`       // Parent area UUID ("" if unlinked)
	Name        string `json:"name"`          // Display name
	Importance  int    `json:"importance"`    // 1 (lowest) to 5 (highest)
	CreatedAtMs int64  `json:"created_at_ms"` // Unix timestamp in milliseconds
}

// Task is the most granular hierarchy level: a single actionable item.
type Task struct {
	ID            string     `json:"id"`             // UUID
	UserID        string     `json:"user_id"`        // Owning user
	ProjectID     string     `json:"project_id"`     // Parent project UUID ("" if unlinked)
	Name          string     `json:"name"`           // Display name
	Description   string     `json:"description"`    // Free-form detail
	Status        TaskStatus `json:"status"`         // Lifecycle state ("" = unset)
	Priority      string     `json:"priority"`       // "low", "medium", "high" (free-form tolerated)
	DueDateMs     int64      `json:"due_date_ms"`    // Unix timestamp in milliseconds, 0 = no due date
	DependencyIDs []string   `json:"dependency_ids"` // Task UUIDs this task depends on
	CreatedAtMs   int64      `json:"created_at_ms"`  // Unix timestamp in milliseconds
}

// Completed reports whether the task is in a terminal done state.
func (t *Task) Completed() bool {
	return t.Status == TaskStatusDone
}

// HasDueDate reports whether the task carries a due date.
func (t *Task) HasDueDate() bool {
	return t.DueDateMs > 0
}

// UserProfile carries the per-user settings the engine needs.
// The only field the engine reads today is the IANA timezone.
type UserProfile struct {
	UserID   string `json:"user_id"`
	Timezone string `json:"timezone"` // IANA name, e.g. "Europe/London"; "" = UTC
}

// Rule is a stored rule definition. The engine caches these in its Rule
// Catalog and dispatches each code to a registered evaluator function.
type Rule struct {
	Code        string       `json:"code"`         // Unique rule code, e.g. "priority_by_due_date"
	AppliesTo   []EntityType `json:"applies_to"`   // Entity types this rule evaluates
	IsActive    bool         `json:"is_active"`    // Inactive rules are never evaluated
	BaseWeight  float64      `json:"base_weight"`  // Multiplier applied to the rule's score impact
	RequiresLLM bool         `json:"requires_llm"` // Firing this rule forces generative escalation
}

// AppliesToType reports whether the rule applies to the given entity type.
func (r *Rule) AppliesToType(et EntityType) bool {
	for _, t := range r.AppliesTo {
		if t == et {
			return true
		}
	}
	return false
}

// Insight is the durable output of the insight pipeline: a structured,
// confidence-scored explanation or recommendation about one entity (or the
// whole hierarchy). Insights are immutable once written - a later analysis
// produces a new insight rather than updating an old one. ExpiresAtMs tells
// readers when to treat the insight as stale.
type Insight struct {
	ID                string      `json:"id"`                 // UUID
	UserID            string      `json:"user_id"`            // Owning user
	EntityType        EntityType  `json:"entity_type"`        // What the insight is about
	EntityID          string      `json:"entity_id"`          // UUID of the subject entity, "" for global
	InsightType       InsightType `json:"insight_type"`       // Classification
	Title             string      `json:"title"`              // Short headline
	Summary           string      `json:"summary"`            // One-paragraph explanation
	DetailedReasoning string      `json:"detailed_reasoning"` // Opaque JSON payload: full rule + augmentation detail
	ConfidenceScore   float64     `json:"confidence_score"`   // Always in [0,1]
	ImpactScore       float64     `json:"impact_score"`       // Always in [0,1]
	ReasoningPath     []string    `json:"reasoning_path"`     // Ordered human-readable reasoning entries
	Recommendations   []string    `json:"recommendations"`    // At most 5 action suggestions
	ExpiresAtMs       int64       `json:"expires_at_ms"`      // Unix timestamp in milliseconds, 0 = never expires
	Tags              []string    `json:"tags"`               // Derived labels for filtering
	CreatedAtMs       int64       `json:"created_at_ms"`      // Unix timestamp in milliseconds
}

// MaxRecommendations is the hard cap on recommendations carried by one insight.
const MaxRecommendations = 5

// Validate checks if the Insight has valid field values.
// Returns an error if any validation fails.
func (i *Insight) Validate() error {
	if !isValidUUID(i.ID) {
		return fmt.Errorf("invalid insight ID: not a valid UUID")
	}

	if i.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	if err := i.EntityType.Validate(); err != nil {
		return fmt.Errorf("invalid entity type: %w", err)
	}

	if i.EntityType != EntityTypeGlobal && i.EntityID == "" {
		return fmt.Errorf("entity_id is required for entity type %q", i.EntityType)
	}

	if err := i.InsightType.Validate(); err != nil {
		return fmt.Errorf("invalid insight type: %w", err)
	}

	if i.ConfidenceScore < 0 || i.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score must be in [0,1], got %v", i.ConfidenceScore)
	}

	if i.ImpactScore < 0 || i.ImpactScore > 1 {
		return fmt.Errorf("impact_score must be in [0,1], got %v", i.ImpactScore)
	}

	if len(i.Recommendations) > MaxRecommendations {
		return fmt.Errorf("at most %d recommendations allowed, got %d", MaxRecommendations, len(i.Recommendations))
	}

	return nil
}

// Validate checks if the Task has valid field values.
func (t *Task) Validate() error {
	if !isValidUUID(t.ID) {
		return fmt.Errorf("invalid task ID: not a valid UUID")
	}

	if t.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	if t.Name == "" {
		return fmt.Errorf("task name cannot be empty")
	}

	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	for idx, depID := range t.DependencyIDs {
		if !isValidUUID(depID) {
			return fmt.Errorf("invalid dependency at index %d: not a valid UUID", idx)
		}
	}

	return nil
}

// Validate checks if the Pillar has valid field values.
func (p *Pillar) Validate() error {
	if !isValidUUID(p.ID) {
		return fmt.Errorf("invalid pillar ID: not a valid UUID")
	}
	if p.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("pillar name cannot be empty")
	}
	if p.TimeAllocationPct < 0 || p.TimeAllocationPct > 100 {
		return fmt.Errorf("time_allocation_pct must be in [0,100], got %v", p.TimeAllocationPct)
	}
	return nil
}

// Validate checks if the Area has valid field values.
func (a *Area) Validate() error {
	if !isValidUUID(a.ID) {
		return fmt.Errorf("invalid area ID: not a valid UUID")
	}
	if a.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("area name cannot be empty")
	}
	return nil
}

// Validate checks if the Project has valid field values.
func (p *Project) Validate() error {
	if !isValidUUID(p.ID) {
		return fmt.Errorf("invalid project ID: not a valid UUID")
	}
	if p.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	return nil
}

// Validate checks if the Rule has valid field values.
func (r *Rule) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("rule code cannot be empty")
	}

	if len(r.AppliesTo) == 0 {
		return fmt.Errorf("rule %q must apply to at least one entity type", r.Code)
	}

	for _, et := range r.AppliesTo {
		if err := et.Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Code, err)
		}
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
