package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Plan is the structured research plan produced by the planner stage and
// held across the plan-review interrupt.
type Plan struct {
	Title   string     `json:"title"`
	Thought string     `json:"thought,omitempty"`
	Steps   []PlanStep `json:"steps"`
}

// PlanStep is one research step of a plan.
type PlanStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Checkpoint is the per-thread workflow state persisted while a run waits
// for plan approval.
type Checkpoint struct {
	ThreadID       string    `json:"thread_id"`
	Plan           Plan      `json:"plan"`
	PlanIterations int       `json:"plan_iterations"`
	Messages       []Message `json:"messages"`
	SavedAt        time.Time `json:"saved_at"`
}

// ThreadCheckpoints stores interrupted-run state in redis, keyed by thread
// id, so a later request can resume where the workflow paused.
type ThreadCheckpoints struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewThreadCheckpoints builds the checkpoint store. A zero ttl keeps
// checkpoints for 24 hours.
func NewThreadCheckpoints(rdb *redis.Client, ttl time.Duration) *ThreadCheckpoints {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ThreadCheckpoints{rdb: rdb, ttl: ttl}
}

func checkpointKey(threadID string) string {
	return "deepwander:checkpoint:" + threadID
}

// Save persists the pending checkpoint for a thread, replacing any previous
// one.
func (c *ThreadCheckpoints) Save(ctx context.Context, cp Checkpoint) error {
	cp.SavedAt = time.Now().UTC()
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return c.rdb.Set(ctx, checkpointKey(cp.ThreadID), raw, c.ttl).Err()
}

// Load returns the pending checkpoint for a thread, if any.
func (c *ThreadCheckpoints) Load(ctx context.Context, threadID string) (Checkpoint, bool, error) {
	raw, err := c.rdb.Get(ctx, checkpointKey(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, true, nil
}

// Clear removes the checkpoint for a thread once the run resumed past it.
func (c *ThreadCheckpoints) Clear(ctx context.Context, threadID string) error {
	return c.rdb.Del(ctx, checkpointKey(threadID)).Err()
}
