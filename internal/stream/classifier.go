package stream

import "github.com/deepwander/deepwander/internal/graph"

// Category names the wire event type a graph event maps to.
type Category string

const (
	CategoryInterrupt      Category = "interrupt"
	CategoryToolCallResult Category = "tool_call_result"
	CategoryToolCalls      Category = "tool_calls"
	CategoryToolCallChunks Category = "tool_call_chunks"
	CategoryMessageChunk   Category = "message_chunk"
)

// Classify maps a graph event to its wire category and the role used for
// accumulation. Tool call payloads take precedence over chunk fragments, so
// a chunk carrying both complete calls and fragments is a tool_calls event.
func Classify(ev graph.Event) (Category, string) {
	switch e := ev.(type) {
	case graph.Interrupt:
		return CategoryInterrupt, "assistant"
	case graph.ToolResult:
		return CategoryToolCallResult, "assistant"
	case graph.Chunk:
		role := "assistant"
		if e.Type == "human" {
			role = "user"
		}
		switch {
		case len(e.ToolCalls) > 0:
			return CategoryToolCalls, role
		case len(e.ToolCallChunks) > 0:
			return CategoryToolCallChunks, role
		default:
			return CategoryMessageChunk, role
		}
	}
	return CategoryMessageChunk, "assistant"
}
