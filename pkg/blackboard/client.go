package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the blackboard.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new blackboard client for the specified instance.
// The client automatically namespaces all keys and channels with the instance name.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: Trellis instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
// Returns an error if Redis is not reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the instance this client is scoped to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// CreatePillar writes a pillar record and indexes it for its user.
// Validates the pillar before writing. Idempotent.
func (c *Client) CreatePillar(ctx context.Context, p *Pillar) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid pillar: %w", err)
	}
	return c.writeIndexed(ctx, PillarKey(c.instanceName, p.ID),
		UserIndexKey(c.instanceName, p.UserID, EntityTypePillar), p.ID, PillarToHash(p))
}

// CreateArea writes an area record and indexes it for its user.
func (c *Client) CreateArea(ctx context.Context, a *Area) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid area: %w", err)
	}
	return c.writeIndexed(ctx, AreaKey(c.instanceName, a.ID),
		UserIndexKey(c.instanceName, a.UserID, EntityTypeArea), a.ID, AreaToHash(a))
}

// CreateProject writes a project record and indexes it for its user.
func (c *Client) CreateProject(ctx context.Context, p *Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}
	return c.writeIndexed(ctx, ProjectKey(c.instanceName, p.ID),
		UserIndexKey(c.instanceName, p.UserID, EntityTypeProject), p.ID, ProjectToHash(p))
}

// CreateTask writes a task record and indexes it for its user.
func (c *Client) CreateTask(ctx context.Context, t *Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	hash, err := TaskToHash(t)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}
	return c.writeIndexed(ctx, TaskKey(c.instanceName, t.ID),
		UserIndexKey(c.instanceName, t.UserID, EntityTypeTask), t.ID, hash)
}

// CreateRule writes a rule definition and indexes it for the instance.
// Rules are shared across all users of an instance.
func (c *Client) CreateRule(ctx context.Context, r *Rule) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}
	hash, err := RuleToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize rule: %w", err)
	}
	return c.writeIndexed(ctx, RuleKey(c.instanceName, r.Code),
		RuleIndexKey(c.instanceName), r.Code, hash)
}

// CreateInsight writes a finished insight and publishes an event.
// Validates the insight before writing. Publishes full insight JSON to
// trellis:{instance}:insight_events after a successful write.
//
// Insights are immutable: callers must never write the same ID twice with
// different content. Writing an identical insight twice is safe.
func (c *Client) CreateInsight(ctx context.Context, i *Insight) error {
	if err := i.Validate(); err != nil {
		return fmt.Errorf("invalid insight: %w", err)
	}

	hash, err := InsightToHash(i)
	if err != nil {
		return fmt.Errorf("failed to serialize insight: %w", err)
	}

	key := InsightKey(c.instanceName, i.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write insight to Redis: %w", err)
	}

	if err := c.rdb.SAdd(ctx, UserInsightIndexKey(c.instanceName, i.UserID), i.ID).Err(); err != nil {
		return fmt.Errorf("failed to index insight: %w", err)
	}

	insightJSON, err := json.Marshal(i)
	if err != nil {
		return fmt.Errorf("failed to marshal insight for event: %w", err)
	}

	channel := InsightEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, insightJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish insight event: %w", err)
	}

	return nil
}

// PutUserProfile writes (or overwrites) a user profile.
func (c *Client) PutUserProfile(ctx context.Context, p *UserProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	key := UserProfileKey(c.instanceName, p.UserID)
	hash := map[string]interface{}{
		"user_id":  p.UserID,
		"timezone": p.Timezone,
	}
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write user profile: %w", err)
	}
	return nil
}

// GetUserProfile retrieves a user profile.
// Returns (nil, redis.Nil) if no profile exists for the user.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	hash, err := c.readHash(ctx, UserProfileKey(c.instanceName, userID))
	if err != nil {
		return nil, err
	}
	return &UserProfile{UserID: hash["user_id"], Timezone: hash["timezone"]}, nil
}

// GetPillar retrieves a pillar by ID.
// Returns (nil, redis.Nil) if the pillar doesn't exist. Use IsNotFound() to check.
func (c *Client) GetPillar(ctx context.Context, pillarID string) (*Pillar, error) {
	hash, err := c.readHash(ctx, PillarKey(c.instanceName, pillarID))
	if err != nil {
		return nil, err
	}
	return HashToPillar(hash)
}

// GetArea retrieves an area by ID.
// Returns (nil, redis.Nil) if the area doesn't exist.
func (c *Client) GetArea(ctx context.Context, areaID string) (*Area, error) {
	hash, err := c.readHash(ctx, AreaKey(c.instanceName, areaID))
	if err != nil {
		return nil, err
	}
	return HashToArea(hash)
}

// GetProject retrieves a project by ID.
// Returns (nil, redis.Nil) if the project doesn't exist.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	hash, err := c.readHash(ctx, ProjectKey(c.instanceName, projectID))
	if err != nil {
		return nil, err
	}
	return HashToProject(hash)
}

// GetTask retrieves a task by ID.
// Returns (nil, redis.Nil) if the task doesn't exist.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	hash, err := c.readHash(ctx, TaskKey(c.instanceName, taskID))
	if err != nil {
		return nil, err
	}
	return HashToTask(hash)
}

// GetInsight retrieves an insight by ID.
// Returns (nil, redis.Nil) if the insight doesn't exist.
func (c *Client) GetInsight(ctx context.Context, insightID string) (*Insight, error) {
	hash, err := c.readHash(ctx, InsightKey(c.instanceName, insightID))
	if err != nil {
		return nil, err
	}
	return HashToInsight(hash)
}

// ListPillars returns all pillars belonging to a user, oldest first.
func (c *Client) ListPillars(ctx context.Context, userID string) ([]*Pillar, error) {
	hashes, err := c.listIndexed(ctx, UserIndexKey(c.instanceName, userID, EntityTypePillar),
		func(id string) string { return PillarKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}

	pillars := make([]*Pillar, 0, len(hashes))
	for _, h := range hashes {
		p, err := HashToPillar(h)
		if err != nil {
			return nil, err
		}
		pillars = append(pillars, p)
	}
	sortByCreation(pillars, func(p *Pillar) (int64, string) { return p.CreatedAtMs, p.ID })
	return pillars, nil
}

// ListAreas returns all areas belonging to a user, oldest first.
func (c *Client) ListAreas(ctx context.Context, userID string) ([]*Area, error) {
	hashes, err := c.listIndexed(ctx, UserIndexKey(c.instanceName, userID, EntityTypeArea),
		func(id string) string { return AreaKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}

	areas := make([]*Area, 0, len(hashes))
	for _, h := range hashes {
		a, err := HashToArea(h)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	sortByCreation(areas, func(a *Area) (int64, string) { return a.CreatedAtMs, a.ID })
	return areas, nil
}

// ListProjects returns all projects belonging to a user, oldest first.
func (c *Client) ListProjects(ctx context.Context, userID string) ([]*Project, error) {
	hashes, err := c.listIndexed(ctx, UserIndexKey(c.instanceName, userID, EntityTypeProject),
		func(id string) string { return ProjectKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}

	projects := make([]*Project, 0, len(hashes))
	for _, h := range hashes {
		p, err := HashToProject(h)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	sortByCreation(projects, func(p *Project) (int64, string) { return p.CreatedAtMs, p.ID })
	return projects, nil
}

// ListTasks returns all tasks belonging to a user, oldest first.
func (c *Client) ListTasks(ctx context.Context, userID string) ([]*Task, error) {
	hashes, err := c.listIndexed(ctx, UserIndexKey(c.instanceName, userID, EntityTypeTask),
		func(id string) string { return TaskKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}

	tasks := make([]*Task, 0, len(hashes))
	for _, h := range hashes {
		t, err := HashToTask(h)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	sortByCreation(tasks, func(t *Task) (int64, string) { return t.CreatedAtMs, t.ID })
	return tasks, nil
}

// ListInsights returns all insights belonging to a user, oldest first.
func (c *Client) ListInsights(ctx context.Context, userID string) ([]*Insight, error) {
	hashes, err := c.listIndexed(ctx, UserInsightIndexKey(c.instanceName, userID),
		func(id string) string { return InsightKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}

	insights := make([]*Insight, 0, len(hashes))
	for _, h := range hashes {
		i, err := HashToInsight(h)
		if err != nil {
			return nil, err
		}
		insights = append(insights, i)
	}
	sortByCreation(insights, func(i *Insight) (int64, string) { return i.CreatedAtMs, i.ID })
	return insights, nil
}

// ListRules returns all rule definitions for the instance, sorted by code.
func (c *Client) ListRules(ctx context.Context) ([]*Rule, error) {
	hashes, err := c.listIndexed(ctx, RuleIndexKey(c.instanceName),
		func(code string) string { return RuleKey(c.instanceName, code) })
	if err != nil {
		return nil, err
	}

	rules := make([]*Rule, 0, len(hashes))
	for _, h := range hashes {
		r, err := HashToRule(h)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Code < rules[j].Code })
	return rules, nil
}

// ListTasksByIDs retrieves a batch of tasks in one pipelined round trip.
// Missing IDs are silently skipped; duplicates in ids yield duplicates in
// the result. Result order follows the order of ids.
func (c *Client) ListTasksByIDs(ctx context.Context, ids []string) ([]*Task, error) {
	hashes, err := c.batchReadHashes(ctx, ids, func(id string) string { return TaskKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(hashes))
	for _, h := range hashes {
		t, err := HashToTask(h)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ListProjectsByIDs retrieves a batch of projects in one pipelined round trip.
// Missing IDs are silently skipped.
func (c *Client) ListProjectsByIDs(ctx context.Context, ids []string) ([]*Project, error) {
	hashes, err := c.batchReadHashes(ctx, ids, func(id string) string { return ProjectKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}
	projects := make([]*Project, 0, len(hashes))
	for _, h := range hashes {
		p, err := HashToProject(h)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// ListAreasByIDs retrieves a batch of areas in one pipelined round trip.
// Missing IDs are silently skipped.
func (c *Client) ListAreasByIDs(ctx context.Context, ids []string) ([]*Area, error) {
	hashes, err := c.batchReadHashes(ctx, ids, func(id string) string { return AreaKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}
	areas := make([]*Area, 0, len(hashes))
	for _, h := range hashes {
		a, err := HashToArea(h)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, nil
}

// ListPillarsByIDs retrieves a batch of pillars in one pipelined round trip.
// Missing IDs are silently skipped.
func (c *Client) ListPillarsByIDs(ctx context.Context, ids []string) ([]*Pillar, error) {
	hashes, err := c.batchReadHashes(ctx, ids, func(id string) string { return PillarKey(c.instanceName, id) })
	if err != nil {
		return nil, err
	}
	pillars := make([]*Pillar, 0, len(hashes))
	for _, h := range hashes {
		p, err := HashToPillar(h)
		if err != nil {
			return nil, err
		}
		pillars = append(pillars, p)
	}
	return pillars, nil
}

// ScanInsights returns insight IDs whose UUID starts with the given prefix.
// Used by short-ID resolution in the CLI. Scans incrementally to avoid
// blocking Redis on large keyspaces.
func (c *Client) ScanInsights(ctx context.Context, prefix string) ([]string, error) {
	pattern := InsightKey(c.instanceName, prefix) + "*"
	keyPrefix := InsightKey(c.instanceName, "")

	var matches []string
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan insights: %w", err)
		}
		for _, key := range keys {
			matches = append(matches, strings.TrimPrefix(key, keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Strings(matches)
	return matches, nil
}

// Subscription represents an active Pub/Sub subscription to insight events.
// Caller must call Close() when done to clean up resources.
// Subscriptions deliver full insight objects via the Events() channel.
type Subscription struct {
	events <-chan *Insight
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of insight events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Insight {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeInsightEvents subscribes to insight creation events for this instance.
// Returns a Subscription that delivers full insight objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeInsightEvents(ctx context.Context) (*Subscription, error) {
	channel := InsightEventsChannel(c.instanceName)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *Insight, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var insight Insight
				if err := json.Unmarshal([]byte(msg.Payload), &insight); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal insight event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &insight:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if a Get operation returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// writeIndexed writes a record hash and adds its ID to an index set.
func (c *Client) writeIndexed(ctx context.Context, key, indexKey, id string, hash map[string]interface{}) error {
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write record to Redis: %w", err)
	}
	if err := c.rdb.SAdd(ctx, indexKey, id).Err(); err != nil {
		return fmt.Errorf("failed to index record: %w", err)
	}
	return nil
}

// readHash reads a record hash, translating "no such key" into redis.Nil.
// HGetAll returns an empty map rather than an error for missing keys.
func (c *Client) readHash(ctx context.Context, key string) (map[string]string, error) {
	hash, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record from Redis: %w", err)
	}
	if len(hash) == 0 {
		return nil, redis.Nil
	}
	return hash, nil
}

// listIndexed reads every member of an index set, then fetches all their
// hashes in one pipelined round trip. Stale index entries pointing at
// deleted records are skipped.
func (c *Client) listIndexed(ctx context.Context, indexKey string, keyFor func(string) string) ([]map[string]string, error) {
	ids, err := c.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", indexKey, err)
	}
	return c.batchReadHashes(ctx, ids, keyFor)
}

// batchReadHashes fetches many record hashes in a single pipeline.
// Missing records are skipped. Result order follows id order.
func (c *Client) batchReadHashes(ctx context.Context, ids []string, keyFor func(string) string) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, keyFor(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to execute batched read: %w", err)
	}

	hashes := make([]map[string]string, 0, len(ids))
	for _, cmd := range cmds {
		hash, err := cmd.Result()
		if err != nil || len(hash) == 0 {
			continue
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// sortByCreation orders records by creation time, then ID for determinism.
func sortByCreation[T any](items []T, key func(T) (int64, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti != tj {
			return ti < tj
		}
		return idi < idj
	})
}
