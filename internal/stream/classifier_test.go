package stream

import (
	"testing"

	"github.com/deepwander/deepwander/internal/graph"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		event    graph.Event
		category Category
		role     string
	}{
		{"interrupt", graph.Interrupt{NS: []string{"ns"}, Value: "v"}, CategoryInterrupt, "assistant"},
		{"tool result", graph.ToolResult{Agent: "researcher", ToolCallID: "tc-1"}, CategoryToolCallResult, "assistant"},
		{"complete tool calls", graph.Chunk{ToolCalls: []graph.ToolCall{{ID: "tc-1"}}}, CategoryToolCalls, "assistant"},
		{"tool call fragments", graph.Chunk{ToolCallChunks: []graph.ToolCallChunk{{Index: 0}}}, CategoryToolCallChunks, "assistant"},
		{"plain chunk", graph.Chunk{Content: "hi"}, CategoryMessageChunk, "assistant"},
		{"human chunk", graph.Chunk{Type: "human", Content: "hi"}, CategoryMessageChunk, "user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat, role := Classify(tc.event)
			if cat != tc.category || role != tc.role {
				t.Fatalf("Classify() = (%s, %s), want (%s, %s)", cat, role, tc.category, tc.role)
			}
		})
	}
}

func TestClassifyToolCallsPrecedence(t *testing.T) {
	ev := graph.Chunk{
		ToolCalls:      []graph.ToolCall{{ID: "tc-1"}},
		ToolCallChunks: []graph.ToolCallChunk{{Index: 0}},
	}
	cat, _ := Classify(ev)
	if cat != CategoryToolCalls {
		t.Fatalf("complete tool calls should win over fragments, got %s", cat)
	}
}
