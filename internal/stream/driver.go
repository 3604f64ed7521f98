package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/deepwander/deepwander/internal/graph"
)

// interruptOptions are the plan-review choices offered with every interrupt.
var interruptOptions = []InterruptOption{
	{Text: "修改思路", Value: "edit_plan"},
	{Text: "开始研究", Value: "accepted"},
}

// Request describes one chat stream invocation.
type Request struct {
	ThreadID                      string
	UserID                        int64
	Messages                      []graph.Message
	MaxPlanIterations             int
	MaxStepNum                    int
	AutoAcceptedPlan              bool
	EnableBackgroundInvestigation bool
	InterruptFeedback             string
	MCPSettings                   map[string]any
}

// ResumeInstruction builds the resume command for an interrupted run:
// the feedback choice in brackets followed by the user's latest words.
func ResumeInstruction(feedback string, messages []graph.Message) string {
	instruction := "[" + feedback + "]"
	if len(messages) > 0 {
		instruction += " " + messages[len(messages)-1].Content
	}
	return instruction
}

// Driver runs a workflow and translates its events into SSE frames,
// accumulating message fragments for persistence along the way.
type Driver struct {
	Graph  graph.Graph
	Sink   Sink
	Logger *log.Logger
}

func NewDriver(g graph.Graph, sink Sink, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.New(log.Writer(), "[STREAM] ", log.LstdFlags)
	}
	return &Driver{Graph: g, Sink: sink, Logger: logger}
}

// Run starts or resumes the workflow for the request and streams frames to w,
// calling flush after each one. It returns the workflow's terminal error;
// by then the client has already received every frame produced before the
// failure, and no error frame follows.
func (d *Driver) Run(ctx context.Context, w io.Writer, flush func(), req Request) error {
	cfg := graph.Config{
		ThreadID:          req.ThreadID,
		MaxPlanIterations: req.MaxPlanIterations,
		MaxStepNum:        req.MaxStepNum,
		MCPSettings:       req.MCPSettings,
		UserID:            req.UserID,
	}

	var run *graph.Run
	var err error
	if !req.AutoAcceptedPlan && req.InterruptFeedback != "" {
		streamsStarted.WithLabelValues("resume").Inc()
		cmd := graph.Command{Resume: ResumeInstruction(req.InterruptFeedback, req.Messages)}
		run, err = d.Graph.Resume(ctx, cmd, cfg)
	} else {
		streamsStarted.WithLabelValues("fresh").Inc()
		in := graph.Input{
			Messages:                      req.Messages,
			AutoAcceptedPlan:              req.AutoAcceptedPlan,
			EnableBackgroundInvestigation: req.EnableBackgroundInvestigation,
			UserID:                        req.UserID,
			ThreadID:                      req.ThreadID,
		}
		run, err = d.Graph.Stream(ctx, in, cfg)
	}
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	var acc Accumulator
	for ev := range run.Events() {
		cat, role := Classify(ev)
		wire := WireEvent{ThreadID: req.ThreadID, Role: "assistant"}

		switch e := ev.(type) {
		case graph.Interrupt:
			if len(e.NS) > 0 {
				wire.ID = e.NS[0]
			}
			wire.Content = e.Value
			wire.FinishReason = "interrupt"
			wire.Options = interruptOptions
			d.Sink.Persist(ctx, req.UserID, req.ThreadID, "assistant", e.Value)
		case graph.ToolResult:
			wire.Agent = agentLabel(e.Agent)
			wire.ID = e.ID
			wire.Content = e.Content
			wire.ToolCallID = e.ToolCallID
		case graph.Chunk:
			wire.Agent = agentLabel(e.Agent)
			wire.ID = e.ID
			wire.Content = e.Content
			wire.FinishReason = e.FinishReason
			switch cat {
			case CategoryToolCalls:
				wire.ToolCalls = e.ToolCalls
				wire.ToolCallChunks = e.ToolCallChunks
			case CategoryToolCallChunks:
				wire.ToolCallChunks = e.ToolCallChunks
			}

			// Accumulation covers every non-tool-result chunk: a finish
			// reason riding on a tool-call chunk still completes the buffer.
			complete := e.FinishReason != ""
			flushes := acc.Observe(role, e.Content, complete)
			for _, fl := range flushes {
				d.Sink.Persist(ctx, req.UserID, req.ThreadID, fl.Role, fl.Content)
			}
			if complete && len(flushes) > 0 && agentLabel(e.Agent) == "reporter" {
				if rs, ok := d.Sink.(ReportSink); ok {
					final := flushes[len(flushes)-1]
					if final.Role == "assistant" {
						rs.PersistReport(ctx, req.UserID, req.ThreadID, reportTitle(final.Content), final.Content)
					}
				}
			}
		}

		if err := EncodeFrame(w, cat, wire); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		framesSent.WithLabelValues(string(cat)).Inc()
		flush()
	}

	if err := run.Err(); err != nil {
		d.Logger.Printf("workflow for thread %s failed: %v", req.ThreadID, err)
		return err
	}
	return nil
}

// agentLabel strips the node suffix from a namespaced agent name.
func agentLabel(agent string) string {
	return strings.SplitN(agent, ":", 2)[0]
}

// reportTitle takes the first heading of the report, or its first line.
func reportTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	return "Untitled report"
}
