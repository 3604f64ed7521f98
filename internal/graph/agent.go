package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
)

const plannerPrompt = `You are a research planner. Given the conversation so far, produce a focused research plan.

Respond ONLY with valid JSON in the following format:
{
  "title": "plan title",
  "thought": "one short paragraph of reasoning",
  "steps": [
    {"title": "step title", "description": "what to find out"}
  ]
}
Do not include any other text or explanation.`

const researcherPrompt = `You are a researcher executing one step of an approved research plan. Write concise findings for the step below, in Markdown, citing concrete facts where possible.

PLAN: %s
STEP: %s
DETAILS: %s`

const reporterPrompt = `You are a report writer. Using the research observations below, write a complete, well-structured Markdown report answering the user's request.

REQUEST:
%s

OBSERVATIONS:
%s`

// AgentGraph is the built-in planning/research/report workflow. It streams
// model tokens per stage and pauses at an interrupt for plan review unless
// the caller auto-accepted the plan. Thread state across the interrupt lives
// in the redis checkpoint store.
type AgentGraph struct {
	llm         *LLMClient
	checkpoints *ThreadCheckpoints
	logger      *log.Logger
}

// NewAgentGraph wires the reference workflow.
func NewAgentGraph(llm *LLMClient, checkpoints *ThreadCheckpoints, logger *log.Logger) *AgentGraph {
	if logger == nil {
		logger = log.New(log.Writer(), "[GRAPH] ", log.LstdFlags)
	}
	return &AgentGraph{llm: llm, checkpoints: checkpoints, logger: logger}
}

// Stream starts a fresh run: plan, then either pause for review or research
// and report.
func (g *AgentGraph) Stream(ctx context.Context, in Input, cfg Config) (*Run, error) {
	run := NewRun(64)
	go func() {
		run.Close(g.fresh(ctx, run, in, cfg))
	}()
	return run, nil
}

// Resume re-enters a run paused at the plan-review interrupt. The command
// carries "[accepted]" or "[edit_plan]" style feedback followed by the
// user's words.
func (g *AgentGraph) Resume(ctx context.Context, cmd Command, cfg Config) (*Run, error) {
	cp, ok, err := g.checkpoints.Load(ctx, cfg.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("no pending interrupt for thread %s", cfg.ThreadID)
	}
	run := NewRun(64)
	go func() {
		run.Close(g.resumed(ctx, run, cp, cmd, cfg))
	}()
	return run, nil
}

func (g *AgentGraph) fresh(ctx context.Context, run *Run, in Input, cfg Config) error {
	plan, err := g.plan(ctx, run, in.Messages)
	if err != nil {
		return err
	}
	if !in.AutoAcceptedPlan {
		return g.pause(ctx, run, Checkpoint{
			ThreadID:       cfg.ThreadID,
			Plan:           plan,
			PlanIterations: in.PlanIterations + 1,
			Messages:       in.Messages,
		})
	}
	return g.research(ctx, run, plan, in.Messages, cfg)
}

func (g *AgentGraph) resumed(ctx context.Context, run *Run, cp Checkpoint, cmd Command, cfg Config) error {
	if strings.HasPrefix(cmd.Resume, "[edit_plan]") {
		feedback := strings.TrimSpace(strings.TrimPrefix(cmd.Resume, "[edit_plan]"))
		maxIters := cfg.MaxPlanIterations
		if maxIters <= 0 {
			maxIters = 1
		}
		messages := append(append([]Message{}, cp.Messages...), Message{Role: "user", Content: feedback})
		plan, err := g.plan(ctx, run, messages)
		if err != nil {
			return err
		}
		if cp.PlanIterations < maxIters {
			return g.pause(ctx, run, Checkpoint{
				ThreadID:       cp.ThreadID,
				Plan:           plan,
				PlanIterations: cp.PlanIterations + 1,
				Messages:       messages,
			})
		}
		cp.Plan = plan
		cp.Messages = messages
	}
	if err := g.checkpoints.Clear(ctx, cfg.ThreadID); err != nil {
		g.logger.Printf("clear checkpoint for thread %s: %v", cfg.ThreadID, err)
	}
	return g.research(ctx, run, cp.Plan, cp.Messages, cfg)
}

// plan streams planner tokens and returns the parsed plan.
func (g *AgentGraph) plan(ctx context.Context, run *Run, history []Message) (Plan, error) {
	messages := append([]Message{{Role: "system", Content: plannerPrompt}}, history...)
	raw, err := g.stage(ctx, run, "planner", messages)
	if err != nil {
		return Plan{}, err
	}
	plan, err := parsePlan(raw)
	if err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	return plan, nil
}

// pause checkpoints the thread and emits the plan-review interrupt as the
// final event of the run.
func (g *AgentGraph) pause(ctx context.Context, run *Run, cp Checkpoint) error {
	if err := g.checkpoints.Save(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	run.Emit(ctx, Interrupt{
		NS:    []string{"plan_review_" + uuid.NewString()},
		Value: renderPlan(cp.Plan),
	})
	return nil
}

func (g *AgentGraph) research(ctx context.Context, run *Run, plan Plan, history []Message, cfg Config) error {
	maxSteps := cfg.MaxStepNum
	if maxSteps <= 0 {
		maxSteps = len(plan.Steps)
	}
	var observations []string
	for i, step := range plan.Steps {
		if i >= maxSteps {
			break
		}
		prompt := fmt.Sprintf(researcherPrompt, plan.Title, step.Title, step.Description)
		out, err := g.stage(ctx, run, "researcher", []Message{{Role: "user", Content: prompt}})
		if err != nil {
			return err
		}
		observations = append(observations, out)
	}

	request := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			request = history[i].Content
			break
		}
	}
	prompt := fmt.Sprintf(reporterPrompt, request, strings.Join(observations, "\n\n---\n\n"))
	_, err := g.stage(ctx, run, "reporter", []Message{{Role: "user", Content: prompt}})
	return err
}

// stage streams one model call as chunks attributed to the given agent and
// returns the accumulated content.
func (g *AgentGraph) stage(ctx context.Context, run *Run, agent string, messages []Message) (string, error) {
	id := uuid.NewString()
	var sb strings.Builder
	finish, err := g.llm.StreamChat(ctx, messages, func(delta string) error {
		sb.WriteString(delta)
		if !run.Emit(ctx, Chunk{Agent: agent, ID: id, Type: "ai", Content: delta}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s stage: %w", agent, err)
	}
	if !run.Emit(ctx, Chunk{Agent: agent, ID: id, Type: "ai", FinishReason: finish}) {
		return "", ctx.Err()
	}
	return sb.String(), nil
}

func parsePlan(raw string) (Plan, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return Plan{}, err
	}
	if len(plan.Steps) == 0 {
		return Plan{}, fmt.Errorf("plan has no steps")
	}
	return plan, nil
}

func renderPlan(plan Plan) string {
	var b strings.Builder
	b.WriteString("## " + plan.Title + "\n\n")
	if plan.Thought != "" {
		b.WriteString(plan.Thought + "\n\n")
	}
	for i, step := range plan.Steps {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, step.Title, step.Description)
	}
	b.WriteString("\nPlease review the plan.")
	return b.String()
}
