package graph

import "context"

// Message is one conversation turn handed to the workflow.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input is the initial state for a fresh workflow run.
type Input struct {
	Messages                      []Message
	PlanIterations                int
	Observations                  []string
	AutoAcceptedPlan              bool
	EnableBackgroundInvestigation bool
	UserID                        int64
	ThreadID                      string
}

// Command resumes a paused workflow with human feedback instead of a fresh
// input.
type Command struct {
	Resume string
}

// Config carries per-run configuration passed alongside the input.
type Config struct {
	ThreadID          string
	MaxPlanIterations int
	MaxStepNum        int
	MCPSettings       map[string]any
	UserID            int64
}

// Graph is the workflow engine boundary. Implementations stream events until
// the run completes, pauses on an interrupt, or fails.
//
// Precondition on implementations: events of one producer arrive
// contiguously. If two producers interleave chunks of the same role, the
// downstream per-role merge will combine them into a single message.
type Graph interface {
	// Stream starts a fresh run.
	Stream(ctx context.Context, in Input, cfg Config) (*Run, error)
	// Resume re-enters a run paused at an interrupt.
	Resume(ctx context.Context, cmd Command, cfg Config) (*Run, error)
}

// Run is one in-flight workflow execution. Events delivers emitted events in
// order and is closed when the run ends; Err reports the terminal error, if
// any, once the channel is closed.
type Run struct {
	events chan Event
	err    error
	done   chan struct{}
}

// NewRun creates a run with a buffered event channel for implementations.
func NewRun(buffer int) *Run {
	return &Run{events: make(chan Event, buffer), done: make(chan struct{})}
}

// Events returns the ordered event stream.
func (r *Run) Events() <-chan Event { return r.events }

// Err returns the terminal error of the run. Only valid after Events is
// closed.
func (r *Run) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Emit delivers one event, honoring context cancellation.
func (r *Run) Emit(ctx context.Context, ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close ends the run with the given terminal error (nil on success).
func (r *Run) Close(err error) {
	r.err = err
	close(r.done)
	close(r.events)
}
