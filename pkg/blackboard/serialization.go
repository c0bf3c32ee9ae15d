package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like
// arrays are JSON-encoded into single hash fields. This provides a balance
// between queryability (individual fields) and flexibility (complex structures).

// PillarToHash converts a Pillar struct to a Redis hash format.
func PillarToHash(p *Pillar) map[string]interface{} {
	return map[string]interface{}{
		"id":                  p.ID,
		"user_id":             p.UserID,
		"name":                p.Name,
		"time_allocation_pct": p.TimeAllocationPct,
		"created_at_ms":       p.CreatedAtMs,
	}
}

// HashToPillar converts a Redis hash to a Pillar struct.
func HashToPillar(hash map[string]string) (*Pillar, error) {
	allocation, err := parseFloatField(hash, "time_allocation_pct")
	if err != nil {
		return nil, err
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Pillar{
		ID:                hash["id"],
		UserID:            hash["user_id"],
		Name:              hash["name"],
		TimeAllocationPct: allocation,
		CreatedAtMs:       createdAtMs,
	}, nil
}

// AreaToHash converts an Area struct to a Redis hash format.
func AreaToHash(a *Area) map[string]interface{} {
	return map[string]interface{}{
		"id":            a.ID,
		"user_id":       a.UserID,
		"pillar_id":     a.PillarID,
		"name":          a.Name,
		"importance":    a.Importance,
		"created_at_ms": a.CreatedAtMs,
	}
}

// HashToArea converts a Redis hash to an Area struct.
func HashToArea(hash map[string]string) (*Area, error) {
	importance, err := parseIntField(hash, "importance")
	if err != nil {
		return nil, err
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Area{
		ID:          hash["id"],
		UserID:      hash["user_id"],
		PillarID:    hash["pillar_id"],
		Name:        hash["name"],
		Importance:  importance,
		CreatedAtMs: createdAtMs,
	}, nil
}

// ProjectToHash converts a Project struct to a Redis hash format.
func ProjectToHash(p *Project) map[string]interface{} {
	return map[string]interface{}{
		"id":            p.ID,
		"user_id":       p.UserID,
		"area_id":       p.AreaID,
		"name":          p.Name,
		"importance":    p.Importance,
		"created_at_ms": p.CreatedAtMs,
	}
}

// HashToProject converts a Redis hash to a Project struct.
func HashToProject(hash map[string]string) (*Project, error) {
	importance, err := parseIntField(hash, "importance")
	if err != nil {
		return nil, err
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Project{
		ID:          hash["id"],
		UserID:      hash["user_id"],
		AreaID:      hash["area_id"],
		Name:        hash["name"],
		Importance:  importance,
		CreatedAtMs: createdAtMs,
	}, nil
}

// TaskToHash converts a Task struct to a Redis hash format.
// The dependency ID array is JSON-encoded.
func TaskToHash(t *Task) (map[string]interface{}, error) {
	depsJSON, err := json.Marshal(t.DependencyIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dependency_ids: %w", err)
	}

	return map[string]interface{}{
		"id":             t.ID,
		"user_id":        t.UserID,
		"project_id":     t.ProjectID,
		"name":           t.Name,
		"description":    t.Description,
		"status":         string(t.Status),
		"priority":       t.Priority,
		"due_date_ms":    t.DueDateMs,
		"dependency_ids": string(depsJSON),
		"created_at_ms":  t.CreatedAtMs,
	}, nil
}

// HashToTask converts a Redis hash to a Task struct.
// JSON fields are decoded back to Go types.
func HashToTask(hash map[string]string) (*Task, error) {
	var deps []string
	if depsJSON := hash["dependency_ids"]; depsJSON != "" {
		if err := json.Unmarshal([]byte(depsJSON), &deps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dependency_ids: %w", err)
		}
	}

	// Ensure we have an empty slice instead of nil for consistency
	if deps == nil {
		deps = []string{}
	}

	dueDateMs, _ := strconv.ParseInt(hash["due_date_ms"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Task{
		ID:            hash["id"],
		UserID:        hash["user_id"],
		ProjectID:     hash["project_id"],
		Name:          hash["name"],
		Description:   hash["description"],
		Status:        TaskStatus(hash["status"]),
		Priority:      hash["priority"],
		DueDateMs:     dueDateMs,
		DependencyIDs: deps,
		CreatedAtMs:   createdAtMs,
	}, nil
}

// RuleToHash converts a Rule struct to a Redis hash format.
// The applies_to array is JSON-encoded.
func RuleToHash(r *Rule) (map[string]interface{}, error) {
	appliesJSON, err := json.Marshal(r.AppliesTo)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal applies_to: %w", err)
	}

	return map[string]interface{}{
		"code":         r.Code,
		"applies_to":   string(appliesJSON),
		"is_active":    r.IsActive,
		"base_weight":  r.BaseWeight,
		"requires_llm": r.RequiresLLM,
	}, nil
}

// HashToRule converts a Redis hash to a Rule struct.
func HashToRule(hash map[string]string) (*Rule, error) {
	var appliesTo []EntityType
	if appliesJSON := hash["applies_to"]; appliesJSON != "" {
		if err := json.Unmarshal([]byte(appliesJSON), &appliesTo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal applies_to: %w", err)
		}
	}

	baseWeight, err := parseFloatField(hash, "base_weight")
	if err != nil {
		return nil, err
	}

	isActive, _ := strconv.ParseBool(hash["is_active"])
	requiresLLM, _ := strconv.ParseBool(hash["requires_llm"])

	return &Rule{
		Code:        hash["code"],
		AppliesTo:   appliesTo,
		IsActive:    isActive,
		BaseWeight:  baseWeight,
		RequiresLLM: requiresLLM,
	}, nil
}

// InsightToHash converts an Insight struct to a Redis hash format.
// Array fields (reasoning_path, recommendations, tags) are JSON-encoded.
func InsightToHash(i *Insight) (map[string]interface{}, error) {
	reasoningJSON, err := json.Marshal(i.ReasoningPath)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reasoning_path: %w", err)
	}

	recsJSON, err := json.Marshal(i.Recommendations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	tagsJSON, err := json.Marshal(i.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	return map[string]interface{}{
		"id":                 i.ID,
		"user_id":            i.UserID,
		"entity_type":        string(i.EntityType),
		"entity_id":          i.EntityID,
		"insight_type":       string(i.InsightType),
		"title":              i.Title,
		"summary":            i.Summary,
		"detailed_reasoning": i.DetailedReasoning,
		"confidence_score":   i.ConfidenceScore,
		"impact_score":       i.ImpactScore,
		"reasoning_path":     string(reasoningJSON),
		"recommendations":    string(recsJSON),
		"expires_at_ms":      i.ExpiresAtMs,
		"tags":               string(tagsJSON),
		"created_at_ms":      i.CreatedAtMs,
	}, nil
}

// HashToInsight converts a Redis hash to an Insight struct.
// JSON fields are decoded back to Go types.
func HashToInsight(hash map[string]string) (*Insight, error) {
	var reasoningPath []string
	if s := hash["reasoning_path"]; s != "" {
		if err := json.Unmarshal([]byte(s), &reasoningPath); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reasoning_path: %w", err)
		}
	}

	var recommendations []string
	if s := hash["recommendations"]; s != "" {
		if err := json.Unmarshal([]byte(s), &recommendations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}

	var tags []string
	if s := hash["tags"]; s != "" {
		if err := json.Unmarshal([]byte(s), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	// Ensure we have empty slices instead of nil for consistency
	if reasoningPath == nil {
		reasoningPath = []string{}
	}
	if recommendations == nil {
		recommendations = []string{}
	}
	if tags == nil {
		tags = []string{}
	}

	confidence, err := parseFloatField(hash, "confidence_score")
	if err != nil {
		return nil, err
	}

	impact, err := parseFloatField(hash, "impact_score")
	if err != nil {
		return nil, err
	}

	expiresAtMs, _ := strconv.ParseInt(hash["expires_at_ms"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Insight{
		ID:                hash["id"],
		UserID:            hash["user_id"],
		EntityType:        EntityType(hash["entity_type"]),
		EntityID:          hash["entity_id"],
		InsightType:       InsightType(hash["insight_type"]),
		Title:             hash["title"],
		Summary:           hash["summary"],
		DetailedReasoning: hash["detailed_reasoning"],
		ConfidenceScore:   confidence,
		ImpactScore:       impact,
		ReasoningPath:     reasoningPath,
		Recommendations:   recommendations,
		ExpiresAtMs:       expiresAtMs,
		Tags:              tags,
		CreatedAtMs:       createdAtMs,
	}, nil
}

// parseFloatField parses a numeric hash field, treating absence as zero.
func parseFloatField(hash map[string]string, field string) (float64, error) {
	s, ok := hash[field]
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", field, err)
	}
	return v, nil
}

// parseIntField parses an integer hash field, treating absence as zero.
func parseIntField(hash map[string]string, field string) (int, error) {
	s, ok := hash[field]
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", field, err)
	}
	return v, nil
}
