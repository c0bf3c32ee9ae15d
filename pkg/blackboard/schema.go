package blackboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to enable
// multiple Trellis instances to safely coexist on a single Redis server.
//
// Key pattern: trellis:{instance_name}:{entity}:{uuid}
// Index pattern: trellis:{instance_name}:user:{user_id}:{entity}s
// Channel pattern: trellis:{instance_name}:{event_type}_events

// PillarKey returns the Redis key for a pillar record.
// Pattern: trellis:{instance_name}:pillar:{pillar_id}
func PillarKey(instanceName, pillarID string) string {
	return fmt.Sprintf("trellis:%s:pillar:%s", instanceName, pillarID)
}

// AreaKey returns the Redis key for an area record.
// Pattern: trellis:{instance_name}:area:{area_id}
func AreaKey(instanceName, areaID string) string {
	return fmt.Sprintf("trellis:%s:area:%s", instanceName, areaID)
}

// ProjectKey returns the Redis key for a project record.
// Pattern: trellis:{instance_name}:project:{project_id}
func ProjectKey(instanceName, projectID string) string {
	return fmt.Sprintf("trellis:%s:project:%s", instanceName, projectID)
}

// TaskKey returns the Redis key for a task record.
// Pattern: trellis:{instance_name}:task:{task_id}
func TaskKey(instanceName, taskID string) string {
	return fmt.Sprintf("trellis:%s:task:%s", instanceName, taskID)
}

// InsightKey returns the Redis key for an insight record.
// Pattern: trellis:{instance_name}:insight:{insight_id}
func InsightKey(instanceName, insightID string) string {
	return fmt.Sprintf("trellis:%s:insight:%s", instanceName, insightID)
}

// RuleKey returns the Redis key for a rule definition.
// Pattern: trellis:{instance_name}:rule:{rule_code}
func RuleKey(instanceName, ruleCode string) string {
	return fmt.Sprintf("trellis:%s:rule:%s", instanceName, ruleCode)
}

// UserProfileKey returns the Redis key for a user profile hash.
// Pattern: trellis:{instance_name}:user:{user_id}:profile
func UserProfileKey(instanceName, userID string) string {
	return fmt.Sprintf("trellis:%s:user:%s:profile", instanceName, userID)
}

// UserIndexKey returns the Redis key for the per-user index SET of one
// entity type. The set holds record UUIDs.
// Pattern: trellis:{instance_name}:user:{user_id}:{entity_type}s
func UserIndexKey(instanceName, userID string, entityType EntityType) string {
	return fmt.Sprintf("trellis:%s:user:%s:%ss", instanceName, userID, entityType)
}

// UserInsightIndexKey returns the Redis key for the per-user insight index SET.
// Pattern: trellis:{instance_name}:user:{user_id}:insights
func UserInsightIndexKey(instanceName, userID string) string {
	return fmt.Sprintf("trellis:%s:user:%s:insights", instanceName, userID)
}

// RuleIndexKey returns the Redis key for the instance-wide rule index SET.
// Rules are shared across users. Pattern: trellis:{instance_name}:rules
func RuleIndexKey(instanceName string) string {
	return fmt.Sprintf("trellis:%s:rules", instanceName)
}

// InsightEventsChannel returns the Pub/Sub channel name for insight events.
// Full insight JSON is published here on every successful write.
// Pattern: trellis:{instance_name}:insight_events
func InsightEventsChannel(instanceName string) string {
	return fmt.Sprintf("trellis:%s:insight_events", instanceName)
}
