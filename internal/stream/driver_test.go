package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/deepwander/deepwander/internal/graph"
)

type fakeGraph struct {
	events    []graph.Event
	err       error
	lastInput *graph.Input
	lastCmd   *graph.Command
	lastCfg   graph.Config
}

func (f *fakeGraph) play(ctx context.Context) *graph.Run {
	run := graph.NewRun(len(f.events) + 1)
	go func() {
		for _, ev := range f.events {
			if !run.Emit(ctx, ev) {
				break
			}
		}
		run.Close(f.err)
	}()
	return run
}

func (f *fakeGraph) Stream(ctx context.Context, in graph.Input, cfg graph.Config) (*graph.Run, error) {
	f.lastInput = &in
	f.lastCfg = cfg
	return f.play(ctx), nil
}

func (f *fakeGraph) Resume(ctx context.Context, cmd graph.Command, cfg graph.Config) (*graph.Run, error) {
	f.lastCmd = &cmd
	f.lastCfg = cfg
	return f.play(ctx), nil
}

type persistCall struct {
	UserID   int64
	ThreadID string
	Role     string
	Content  string
}

type fakeSink struct {
	messages []persistCall
	reports  []persistCall
}

func (s *fakeSink) Persist(_ context.Context, userID int64, threadID, role, content string) {
	s.messages = append(s.messages, persistCall{userID, threadID, role, content})
}

func (s *fakeSink) PersistReport(_ context.Context, userID int64, threadID, title, content string) {
	s.reports = append(s.reports, persistCall{userID, threadID, title, content})
}

type frame struct {
	Event string
	Data  map[string]interface{}
}

func parseFrames(t *testing.T, raw string) []frame {
	t.Helper()
	var out []frame
	for _, block := range strings.Split(strings.TrimSuffix(raw, "\n\n"), "\n\n") {
		if block == "" {
			continue
		}
		lines := strings.SplitN(block, "\n", 2)
		if len(lines) != 2 {
			t.Fatalf("malformed frame: %q", block)
		}
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &data); err != nil {
			t.Fatalf("frame data: %v", err)
		}
		out = append(out, frame{Event: strings.TrimPrefix(lines[0], "event: "), Data: data})
	}
	return out
}

func runDriver(t *testing.T, g *fakeGraph, sink Sink, req Request) (string, error) {
	t.Helper()
	d := NewDriver(g, sink, nil)
	var buf bytes.Buffer
	err := d.Run(context.Background(), &buf, func() {}, req)
	return buf.String(), err
}

func TestDriverAccumulatesAndPersists(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "Hel"},
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "lo"},
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", FinishReason: "stop"},
	}}
	sink := &fakeSink{}
	out, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	frames := parseFrames(t, out)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames got %d", len(frames))
	}
	for _, f := range frames {
		if f.Event != "message_chunk" {
			t.Fatalf("unexpected event type %s", f.Event)
		}
		if f.Data["thread_id"] != "t-1" || f.Data["agent"] != "planner" {
			t.Fatalf("unexpected frame payload: %v", f.Data)
		}
	}
	if _, ok := frames[2].Data["content"]; ok {
		t.Fatalf("finish frame has empty content, should be omitted: %v", frames[2].Data)
	}

	want := []persistCall{{7, "t-1", "assistant", "Hello"}}
	if len(sink.messages) != 1 || sink.messages[0] != want[0] {
		t.Fatalf("persisted %+v want %+v", sink.messages, want)
	}
}

func TestDriverRoleChangeFlushesBothMessages(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "Hel"},
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "lo"},
		graph.Chunk{Agent: "planner", ID: "m-2", Type: "human", Content: "Hi", FinishReason: "stop"},
	}}
	sink := &fakeSink{}
	if _, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []persistCall{
		{7, "t-1", "assistant", "Hello"},
		{7, "t-1", "user", "Hi"},
	}
	if len(sink.messages) != 2 || sink.messages[0] != want[0] || sink.messages[1] != want[1] {
		t.Fatalf("persisted %+v want %+v", sink.messages, want)
	}
}

func TestDriverInterruptFrame(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Interrupt{NS: []string{"plan_review_1"}, Value: "please review"},
	}}
	sink := &fakeSink{}
	out, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	frames := parseFrames(t, out)
	if len(frames) != 1 || frames[0].Event != "interrupt" {
		t.Fatalf("expected one interrupt frame, got %+v", frames)
	}
	data := frames[0].Data
	if data["id"] != "plan_review_1" || data["finish_reason"] != "interrupt" || data["content"] != "please review" {
		t.Fatalf("unexpected interrupt payload: %v", data)
	}
	opts, ok := data["options"].([]interface{})
	if !ok || len(opts) != 2 {
		t.Fatalf("interrupt options missing: %v", data)
	}

	want := persistCall{7, "t-1", "assistant", "please review"}
	if len(sink.messages) != 1 || sink.messages[0] != want {
		t.Fatalf("interrupt not persisted: %+v", sink.messages)
	}
}

func TestDriverToolEvents(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Chunk{Agent: "researcher:step-1", ID: "m-1", Type: "ai", ToolCalls: []graph.ToolCall{{ID: "tc-1", Name: "search"}}},
		graph.Chunk{Agent: "researcher:step-1", ID: "m-1", Type: "ai", ToolCallChunks: []graph.ToolCallChunk{{Index: 0, Args: `{"q":`}}},
		graph.ToolResult{Agent: "researcher:step-1", ID: "m-2", ToolCallID: "tc-1", Content: "results"},
	}}
	sink := &fakeSink{}
	out, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	frames := parseFrames(t, out)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames got %d", len(frames))
	}
	if frames[0].Event != "tool_calls" || frames[1].Event != "tool_call_chunks" || frames[2].Event != "tool_call_result" {
		t.Fatalf("unexpected event order: %s %s %s", frames[0].Event, frames[1].Event, frames[2].Event)
	}
	for _, f := range frames {
		if f.Data["agent"] != "researcher" {
			t.Fatalf("agent label not stripped: %v", f.Data)
		}
	}
	if frames[2].Data["tool_call_id"] != "tc-1" {
		t.Fatalf("tool_call_id missing: %v", frames[2].Data)
	}
	if len(sink.messages) != 0 {
		t.Fatalf("tool events must not be persisted: %+v", sink.messages)
	}
}

func TestDriverFinishOnToolCallChunkFlushesBuffer(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Chunk{Agent: "researcher:step-1", ID: "m-1", Type: "ai", Content: "Hel"},
		graph.Chunk{Agent: "researcher:step-1", ID: "m-1", Type: "ai",
			ToolCallChunks: []graph.ToolCallChunk{{Index: 0, Args: `{"q":`}},
			FinishReason:   "tool_calls"},
	}}
	sink := &fakeSink{}
	if _, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []persistCall{{7, "t-1", "assistant", "Hel"}}
	if len(sink.messages) != 1 || sink.messages[0] != want[0] {
		t.Fatalf("buffered text must flush on the tool-call finish: %+v", sink.messages)
	}
}

func TestDriverInterruptKeepsBuffer(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "Hel"},
		graph.Interrupt{NS: []string{"plan_review_1"}, Value: "please review"},
		graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "lo", FinishReason: "stop"},
	}}
	sink := &fakeSink{}
	if _, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []persistCall{
		{7, "t-1", "assistant", "please review"},
		{7, "t-1", "assistant", "Hello"},
	}
	if len(sink.messages) != 2 || sink.messages[0] != want[0] || sink.messages[1] != want[1] {
		t.Fatalf("interrupt must leave the buffer intact: %+v", sink.messages)
	}
}

func TestDriverResumeInstruction(t *testing.T) {
	g := &fakeGraph{}
	sink := &fakeSink{}
	req := Request{
		ThreadID:          "t-1",
		UserID:            7,
		Messages:          []graph.Message{{Role: "user", Content: "focus on costs"}},
		InterruptFeedback: "edit_plan",
	}
	if _, err := runDriver(t, g, sink, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.lastCmd == nil {
		t.Fatal("expected Resume to be called")
	}
	if g.lastCmd.Resume != "[edit_plan] focus on costs" {
		t.Fatalf("resume instruction = %q", g.lastCmd.Resume)
	}
	if g.lastCfg.ThreadID != "t-1" || g.lastCfg.UserID != 7 {
		t.Fatalf("unexpected config: %+v", g.lastCfg)
	}
}

func TestDriverAutoAcceptedPlanNeverResumes(t *testing.T) {
	g := &fakeGraph{}
	req := Request{ThreadID: "t-1", UserID: 7, AutoAcceptedPlan: true, InterruptFeedback: "accepted"}
	if _, err := runDriver(t, g, &fakeSink{}, req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if g.lastCmd != nil {
		t.Fatal("auto-accepted plans start fresh, not resume")
	}
	if g.lastInput == nil {
		t.Fatal("expected Stream to be called")
	}
}

func TestDriverSavesReporterOutput(t *testing.T) {
	g := &fakeGraph{events: []graph.Event{
		graph.Chunk{Agent: "reporter", ID: "m-1", Type: "ai", Content: "# Findings\n\nDetails."},
		graph.Chunk{Agent: "reporter", ID: "m-1", Type: "ai", FinishReason: "stop"},
	}}
	sink := &fakeSink{}
	if _, err := runDriver(t, g, sink, Request{ThreadID: "t-1", UserID: 7}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("expected one report, got %+v", sink.reports)
	}
	if sink.reports[0].Role != "Findings" {
		t.Fatalf("report title = %q", sink.reports[0].Role)
	}
	if sink.reports[0].Content != "# Findings\n\nDetails." {
		t.Fatalf("report content = %q", sink.reports[0].Content)
	}
}

func TestDriverUpstreamErrorTruncatesSilently(t *testing.T) {
	boom := errors.New("model unavailable")
	g := &fakeGraph{
		events: []graph.Event{graph.Chunk{Agent: "planner", ID: "m-1", Type: "ai", Content: "par"}},
		err:    boom,
	}
	out, err := runDriver(t, g, &fakeSink{}, Request{ThreadID: "t-1", UserID: 7})
	if !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	frames := parseFrames(t, out)
	if len(frames) != 1 {
		t.Fatalf("expected only the frames before the failure, got %d", len(frames))
	}
	if frames[0].Event != "message_chunk" {
		t.Fatalf("no error frame may be emitted, got %s", frames[0].Event)
	}
}
