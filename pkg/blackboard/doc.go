// Package blackboard provides type-safe Go definitions and Redis schema patterns
// for the Trellis blackboard.
//
// # Overview
//
// The blackboard is the shared store the Trellis reasoning engine works
// against. The user's goal hierarchy (pillars, areas, projects, tasks) is
// read from it, and every finished insight is appended to it. Readers treat
// insights as immutable and honour their expiry timestamps.
//
// # Core Concepts
//
// The hierarchy has four nested levels: Pillar (a life domain with a time
// allocation), Area (a focus area with an importance rating), Project (a
// concrete initiative) and Task (a single actionable item with a status,
// priority, due date and dependencies).
//
// Insights are confidence-scored, expiring analysis results produced by the
// engine: why something is a priority, how well it aligns with its pillar,
// what is blocking it, or what to do next.
//
// Rules are stored definitions that the engine's Rule Catalog caches and
// dispatches to evaluator functions by code.
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to
// enable multiple Trellis instances to safely coexist on a single Redis
// server without interference.
//
// # Usage Example
//
//	import "github.com/dyluth/trellis/pkg/blackboard"
//
//	client, err := blackboard.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	task, err := client.GetTask(ctx, taskID)
//	if blackboard.IsNotFound(err) {
//		// missing records are a normal condition, not a failure
//	}
package blackboard
